// SPDX-License-Identifier: EPL-2.0

package bw64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// ChnaEntry is one audioID record from a chna chunk, binding a 1-based
// track index to an audioTrackUID and its format references.
type ChnaEntry struct {
	TrackIndex        int
	UID               string
	TrackOrChannelRef string
	PackRef           string
}

const chnaEntrySize = 2 + 12 + 14 + 11 + 1

func fixedString(data []byte) string {
	return strings.TrimRight(string(bytes.TrimRight(data, "\x00")), " ")
}

func putFixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// decodeChna parses the body of a chna chunk.
func decodeChna(data []byte) ([]ChnaEntry, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: chna chunk too short", ErrBadChunk)
	}

	numUIDs := int(binary.LittleEndian.Uint16(data[2:4]))
	body := data[4:]
	if len(body) < numUIDs*chnaEntrySize {
		return nil, fmt.Errorf("%w: chna chunk truncated", ErrBadChunk)
	}

	entries := make([]ChnaEntry, 0, numUIDs)
	for i := range numUIDs {
		rec := body[i*chnaEntrySize : (i+1)*chnaEntrySize]
		entries = append(entries, ChnaEntry{
			TrackIndex:        int(binary.LittleEndian.Uint16(rec[0:2])),
			UID:               fixedString(rec[2:14]),
			TrackOrChannelRef: fixedString(rec[14:28]),
			PackRef:           fixedString(rec[28:39]),
		})
	}
	return entries, nil
}

// encodeChna builds the body of a chna chunk.
func encodeChna(entries []ChnaEntry) []byte {
	tracks := map[int]bool{}
	for _, e := range entries {
		tracks[e.TrackIndex] = true
	}

	data := make([]byte, 4+len(entries)*chnaEntrySize)
	binary.LittleEndian.PutUint16(data[0:2], uint16(len(tracks)))
	binary.LittleEndian.PutUint16(data[2:4], uint16(len(entries)))

	for i, e := range entries {
		rec := data[4+i*chnaEntrySize:]
		binary.LittleEndian.PutUint16(rec[0:2], uint16(e.TrackIndex))
		putFixedString(rec[2:14], e.UID)
		putFixedString(rec[14:28], e.TrackOrChannelRef)
		putFixedString(rec[28:39], e.PackRef)
		rec[39] = 0
	}
	return data
}

// formatInfo is the content of a fmt chunk.
type formatInfo struct {
	formatTag     uint16
	channels      int
	sampleRate    int
	bitsPerSample int
}

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

func decodeFmt(data []byte) (formatInfo, error) {
	if len(data) < 16 {
		return formatInfo{}, fmt.Errorf("%w: fmt chunk too short", ErrBadChunk)
	}

	info := formatInfo{
		formatTag:     binary.LittleEndian.Uint16(data[0:2]),
		channels:      int(binary.LittleEndian.Uint16(data[2:4])),
		sampleRate:    int(binary.LittleEndian.Uint32(data[4:8])),
		bitsPerSample: int(binary.LittleEndian.Uint16(data[14:16])),
	}

	if info.formatTag == formatExtensible {
		if len(data) < 26 {
			return formatInfo{}, fmt.Errorf("%w: extensible fmt chunk too short", ErrBadChunk)
		}
		// the real format is the first two bytes of the sub-format GUID
		info.formatTag = binary.LittleEndian.Uint16(data[24:26])
	}

	switch info.formatTag {
	case formatPCM, formatFloat:
	default:
		return formatInfo{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, info.formatTag)
	}
	return info, nil
}

func encodeFmt(info formatInfo) []byte {
	blockAlign := info.channels * info.bitsPerSample / 8
	data := make([]byte, 16)
	binary.LittleEndian.PutUint16(data[0:2], info.formatTag)
	binary.LittleEndian.PutUint16(data[2:4], uint16(info.channels))
	binary.LittleEndian.PutUint32(data[4:8], uint32(info.sampleRate))
	binary.LittleEndian.PutUint32(data[8:12], uint32(info.sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(data[12:14], uint16(blockAlign))
	binary.LittleEndian.PutUint16(data[14:16], uint16(info.bitsPerSample))
	return data
}
