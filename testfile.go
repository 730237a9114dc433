// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/bw64"
	"github.com/ebu/ebu-adm-renderer/hoa"
	"github.com/ebu/ebu-adm-renderer/input"
)

// openInput decodes an audio file with the decoder matching its
// extension, resampling to targetRate when needed.
func openInput(path string, targetRate int) (input.Source, *os.File, error) {
	decoder, ok := input.DecoderForPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", input.ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	src, err := decoder.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	if targetRate != 0 && src.SampleRate() != targetRate {
		return input.NewResampler(src, targetRate), f, nil
	}
	return src, f, nil
}

// writeBWF writes the samples of src into a BW64 file carrying the
// document's AXML and CHNA.
func writeBWF(doc *adm.Document, src input.Source, outPath string, bitDepth int) error {
	var axml bytes.Buffer
	if err := adm.Write(doc, &axml); err != nil {
		return err
	}

	var chna []bw64.ChnaEntry
	for _, e := range adm.CHNAEntries(doc) {
		chna = append(chna, bw64.ChnaEntry{
			TrackIndex:        e.TrackIndex,
			UID:               e.UID,
			TrackOrChannelRef: e.TrackOrChannelRef,
			PackRef:           e.PackRef,
		})
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	writer, err := bw64.NewWriter(out, bw64.WriterOptions{
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		BitDepth:   bitDepth,
		Chna:       chna,
		AXML:       axml.Bytes(),
	})
	if err != nil {
		return err
	}

	buf := make([]float64, 4096*src.Channels())
	for {
		n, err := src.ReadFrames(buf)
		if n > 0 {
			if werr := writer.WriteFrames(buf[:n*src.Channels()]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	return writer.Close()
}

// MakeTestBWF builds a BW64 file from an input audio file, wrapping
// each channel in an Objects track at the given azimuth positions
// (cycled when there are more channels than positions).
func MakeTestBWF(inPath, outPath string, azimuths []float64) error {
	src, f, err := openInput(inPath, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	defer src.Close()

	if len(azimuths) == 0 {
		azimuths = []float64{0}
	}

	builder := adm.NewBuilder()
	builder.AddProgramme("Main")
	builder.AddContent("Main")

	for ch := range src.Channels() {
		builder.AddObject(fmt.Sprintf("Object %d", ch+1))
		pack := builder.AddPackFormat(fmt.Sprintf("Object %d", ch+1), adm.TypeObjects)
		channel := builder.AddChannelFormat(pack, fmt.Sprintf("Object %d", ch+1), &adm.BlockObjects{
			Position: adm.PolarObjectPosition{
				Azimuth:  azimuths[ch%len(azimuths)],
				Distance: 1,
			},
		})
		builder.AddTrackUID(pack, channel, ch+1)
	}

	return writeBWF(builder.Document(), src, outPath, 24)
}

// AmbixToBWF wraps an ambiX WAV (ACN channel order, SN3D) in a BW64
// file with HOA metadata.
func AmbixToBWF(inPath, outPath string, norm string, nfcRefDist float64, screenRef bool) error {
	src, f, err := openInput(inPath, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	defer src.Close()

	if norm == "" {
		norm = "SN3D"
	}

	builder := adm.NewBuilder()
	builder.AddProgramme("Main")
	builder.AddContent("Main")
	builder.AddObject("HOA")
	pack := builder.AddPackFormat("HOA", adm.TypeHOA)

	for acn := range src.Channels() {
		order, degree := hoa.FromACN(acn)

		normalization := norm
		block := &adm.BlockHOA{
			Order:         order,
			Degree:        degree,
			Normalization: &normalization,
		}
		if nfcRefDist != 0 {
			d := nfcRefDist
			block.NFCRefDist = &d
		}
		if screenRef {
			s := true
			block.ScreenRef = &s
		}

		channel := builder.AddChannelFormat(pack, fmt.Sprintf("ACN %d", acn), block)
		builder.AddTrackUID(pack, channel, acn+1)
	}

	return writeBWF(builder.Document(), src, outPath, 24)
}

// ReplaceAXML copies a BW64 file, replacing its axml chunk; with
// regenerate set, the CHNA chunk is rebuilt from the parsed document.
func ReplaceAXML(inPath, outPath string, axml []byte, regenerate bool) error {
	inFile, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer inFile.Close()

	reader, err := bw64.NewReader(inFile)
	if err != nil {
		return err
	}

	chnaEntries := reader.CHNA()
	if regenerate {
		doc, err := adm.Parse(bytes.NewReader(axml), nil)
		if err != nil {
			return err
		}
		var admEntries []adm.AudioID
		for _, e := range chnaEntries {
			admEntries = append(admEntries, adm.AudioID{
				TrackIndex: e.TrackIndex, UID: e.UID,
				TrackOrChannelRef: e.TrackOrChannelRef, PackRef: e.PackRef,
			})
		}
		if err := adm.ApplyCHNA(doc, admEntries); err != nil {
			return err
		}

		chnaEntries = nil
		for _, e := range adm.CHNAEntries(doc) {
			chnaEntries = append(chnaEntries, bw64.ChnaEntry{
				TrackIndex:        e.TrackIndex,
				UID:               e.UID,
				TrackOrChannelRef: e.TrackOrChannelRef,
				PackRef:           e.PackRef,
			})
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	writer, err := bw64.NewWriter(out, bw64.WriterOptions{
		SampleRate: reader.SampleRate,
		Channels:   reader.Channels,
		BitDepth:   reader.BitDepth,
		Chna:       chnaEntries,
		AXML:       axml,
	})
	if err != nil {
		return err
	}

	buf := make([]float64, 4096*reader.Channels)
	for {
		n, err := reader.ReadFrames(buf)
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return err
		}
		if err := writer.WriteFrames(buf[:n*reader.Channels]); err != nil {
			return err
		}
	}

	return writer.Close()
}
