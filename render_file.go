// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/bw64"
	"github.com/ebu/ebu-adm-renderer/layout"
	"github.com/ebu/ebu-adm-renderer/render"
	"github.com/ebu/ebu-adm-renderer/selection"
)

// RenderOptions carries the ancillary rendering parameters of a
// file-to-file render.
type RenderOptions struct {
	// TargetLayout is a BS.2051 layout name, e.g. "4+5+0".
	TargetLayout string
	// SpeakersFile optionally holds a yaml description of the real
	// listening environment; see layout.LoadRealLayout.
	SpeakersFile io.Reader

	OutputGainDB           float64
	FailOnOverload         bool
	EnableBlockDurationFix bool
	Strict                 bool

	// ApplyConversion optionally converts Objects positions before
	// rendering: "to_cartesian" or "to_polar".
	ApplyConversion string

	// ProgrammeID selects an audioProgramme by ID; empty selects the
	// default.
	ProgrammeID string
	// ComplementaryObjectIDs select audioObjects from complementary
	// groups by ID.
	ComplementaryObjectIDs []string

	// BlockSize is the number of frames rendered per chunk; 0 selects
	// the default of 8192.
	BlockSize int
	// BitDepth of the output file; 0 selects 24.
	BitDepth int

	// Warner receives warnings; nil creates a logging Warner honouring
	// Strict.
	Warner *Warner

	// Cancelled is checked between chunks; rendering stops when it
	// returns true.
	Cancelled func() bool
}

// loadOutputLayout resolves the target layout and the optional speakers
// file into the layout to render to, an upmix matrix and the output
// channel count.
func loadOutputLayout(opts RenderOptions) (*layout.Layout, [][]float64, int, error) {
	spkrLayout, err := layout.Get(opts.TargetLayout)
	if err != nil {
		return nil, nil, 0, err
	}

	if opts.SpeakersFile == nil {
		n := len(spkrLayout.Channels)
		return spkrLayout, nil, n, nil
	}

	realLayout, err := layout.LoadRealLayout(opts.SpeakersFile)
	if err != nil {
		return nil, nil, 0, err
	}

	spkrLayout, upmix := spkrLayout.WithRealLayout(realLayout)

	var positionErrs []string
	spkrLayout.CheckPositions(func(msg string) { positionErrs = append(positionErrs, msg) })
	if len(positionErrs) > 0 {
		return nil, nil, 0, fmt.Errorf("%w: %s", layout.ErrBadSpeakersFile, positionErrs[0])
	}

	var upmixErrs []string
	spkrLayout.CheckUpmixMatrix(upmix, func(msg string) { upmixErrs = append(upmixErrs, msg) })
	if len(upmixErrs) > 0 {
		return nil, nil, 0, fmt.Errorf("%w: %s", layout.ErrBadSpeakersFile, upmixErrs[0])
	}

	return spkrLayout, upmix, len(upmix), nil
}

// LoadDocument parses the AXML and CHNA of a BW64 file into a resolved
// document, applying the timing checks and optional fixes.
func LoadDocument(reader *bw64.Reader, fix bool, warner adm.Warner) (*adm.Document, error) {
	axml := reader.AXML()
	if axml == nil {
		return nil, fmt.Errorf("%w: input has no axml chunk", adm.ErrParse)
	}

	doc, err := adm.Parse(bytes.NewReader(axml), warner)
	if err != nil {
		return nil, err
	}

	var chnaEntries []adm.AudioID
	for _, e := range reader.CHNA() {
		chnaEntries = append(chnaEntries, adm.AudioID{
			TrackIndex:        e.TrackIndex,
			UID:               e.UID,
			TrackOrChannelRef: e.TrackOrChannelRef,
			PackRef:           e.PackRef,
		})
	}
	if err := adm.ApplyCHNA(doc, chnaEntries); err != nil {
		return nil, err
	}

	if err := adm.CheckBlockTimes(doc); err != nil {
		return nil, err
	}
	if err := adm.CheckBlockDurations(doc, fix, warner); err != nil {
		return nil, err
	}

	return doc, nil
}

func selectionOptions(doc *adm.Document, opts RenderOptions, warner adm.Warner) (selection.Options, error) {
	selOpts := selection.Options{Warner: warner}

	if opts.ProgrammeID != "" {
		programme, ok := doc.Lookup(opts.ProgrammeID).(*adm.AudioProgramme)
		if !ok {
			return selOpts, fmt.Errorf("%w: could not find audioProgramme with ID %s", adm.ErrReference, opts.ProgrammeID)
		}
		selOpts.AudioProgramme = programme
	}

	for _, id := range opts.ComplementaryObjectIDs {
		obj, ok := doc.Lookup(id).(*adm.AudioObject)
		if !ok {
			return selOpts, fmt.Errorf("%w: could not find audioObject with ID %s", adm.ErrReference, id)
		}
		selOpts.ComplementaryObjects = append(selOpts.ComplementaryObjects, obj)
	}

	return selOpts, nil
}

// RenderFile renders the ADM content of the BW64 file at inPath to a
// loudspeaker-bed WAV at outPath.
func RenderFile(inPath, outPath string, opts RenderOptions) error {
	warner := opts.Warner
	if warner == nil {
		warner = NewWarner(nil, opts.Strict)
	}
	defer warner.Flush()

	inFile, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer inFile.Close()

	reader, err := bw64.NewReader(inFile)
	if err != nil {
		return err
	}

	doc, err := LoadDocument(reader, opts.EnableBlockDurationFix, warner)
	if err != nil {
		return err
	}
	if err := warner.Err(); err != nil {
		return err
	}

	if opts.ApplyConversion != "" {
		applyConversion(doc, opts.ApplyConversion)
	}

	selOpts, err := selectionOptions(doc, opts, warner)
	if err != nil {
		return err
	}
	items, err := selection.SelectRenderingItems(doc, selOpts)
	if err != nil {
		return err
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if err := renderToWriter(reader, outFile, items, opts, warner); err != nil {
		return err
	}
	return warner.Err()
}

func renderToWriter(reader *bw64.Reader, outFile *os.File, items []render.RenderingItem, opts RenderOptions, warner *Warner) error {
	spkrLayout, upmix, outChannels, err := loadOutputLayout(opts)
	if err != nil {
		return err
	}

	renderer, err := render.NewRenderer(spkrLayout, warner)
	if err != nil {
		return err
	}
	renderer.SetRenderingItems(items)

	writer, err := bw64.NewWriter(outFile, bw64.WriterOptions{
		SampleRate: reader.SampleRate,
		Channels:   outChannels,
		BitDepth:   opts.BitDepth,
	})
	if err != nil {
		return err
	}

	outputGain := math.Pow(10, opts.OutputGainDB/20)
	monitor := NewPeakMonitor(outChannels)

	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 8192
	}

	inBuf := make([]float64, blockSize*reader.Channels)

	for {
		if opts.Cancelled != nil && opts.Cancelled() {
			break
		}

		nFrames, err := reader.ReadFrames(inBuf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if nFrames == 0 {
			break
		}

		rendered, err := renderer.Render(reader.SampleRate, inBuf[:nFrames*reader.Channels], reader.Channels, nFrames)
		if err != nil {
			return err
		}

		out := applyOutput(rendered, renderer.NumChannels(), upmix, outChannels, outputGain)
		monitor.Process(out)
		if opts.FailOnOverload && monitor.HasOverloaded() {
			return fmt.Errorf("%w: stopping", ErrOverload)
		}

		if err := writer.WriteFrames(out); err != nil {
			return err
		}
	}

	monitor.WarnOverloaded(warner)
	return writer.Close()
}

// applyOutput maps rendered frames through the optional speakers-file
// upmix matrix and the output gain.
func applyOutput(rendered []float64, renderChannels int, upmix [][]float64, outChannels int, gain float64) []float64 {
	nFrames := len(rendered) / renderChannels

	if upmix == nil {
		if gain != 1 {
			for i := range rendered {
				rendered[i] *= gain
			}
		}
		return rendered
	}

	out := make([]float64, nFrames*outChannels)
	for f := range nFrames {
		inBase := f * renderChannels
		outBase := f * outChannels
		for o, row := range upmix {
			acc := 0.0
			for i, coeff := range row {
				acc += coeff * rendered[inBase+i]
			}
			out[outBase+o] = acc * gain
		}
	}
	return out
}
