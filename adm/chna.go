// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"fmt"
	"strings"
)

// ZeroTrackUID is the reserved audioTrackUID value that denotes a
// silent track.
const ZeroTrackUID = "ATU_00000000"

// AudioID is one entry of a CHNA chunk, binding a 1-based track index
// in the file to a trackUID and its format references.
type AudioID struct {
	TrackIndex int
	UID        string
	// Either an audioTrackFormat ID (AT_...) or, in BS.2076-2 style,
	// an audioChannelFormat ID (AC_...).
	TrackOrChannelRef string
	PackRef           string
}

// ApplyCHNA adds the information from a CHNA table to the document's
// trackUIDs. Existing references are checked for consistency; trackUIDs
// that only appear in the CHNA are created.
func ApplyCHNA(doc *Document, entries []AudioID) error {
	byID := make(map[string]*AudioTrackUID, len(doc.TrackUIDs))
	for _, t := range doc.TrackUIDs {
		byID[strings.ToUpper(t.ID)] = t
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.UID, ZeroTrackUID) {
			return fmt.Errorf("%w: in CHNA", ErrZeroTrackUID)
		}

		track := byID[strings.ToUpper(entry.UID)]
		if track == nil {
			track = &AudioTrackUID{ID: strings.ToUpper(entry.UID)}
			doc.TrackUIDs = append(doc.TrackUIDs, track)
			byID[track.ID] = track
			if err := doc.register(track.ID, track); err != nil {
				return err
			}
		}

		if track.TrackIndex != 0 && track.TrackIndex != entry.TrackIndex {
			return fmt.Errorf("%w: track UID %s appears twice in CHNA with different indices", ErrReference, track.ID)
		}
		track.TrackIndex = entry.TrackIndex

		if err := applyTrackOrChannelRef(doc, track, entry.TrackOrChannelRef); err != nil {
			return err
		}
		if err := applyPackRef(doc, track, entry.PackRef); err != nil {
			return err
		}
	}

	return nil
}

func applyTrackOrChannelRef(doc *Document, track *AudioTrackUID, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Trim(ref, "0") == "" {
		return nil
	}

	isChannel := strings.HasPrefix(strings.ToUpper(ref), "AC_")

	// existing reference from the AXML, if any
	var existing string
	switch {
	case track.ChannelFormat != nil:
		existing = track.ChannelFormat.ID
	case track.TrackFormat != nil:
		existing = track.TrackFormat.ID
	}

	if existing != "" {
		if !strings.EqualFold(existing, ref) {
			return fmt.Errorf("%w: track UID %s: CHNA references %q but AXML references %q",
				ErrReference, track.ID, ref, existing)
		}
		return nil
	}

	if isChannel {
		channel, err := lookupAs[*AudioChannelFormat](doc, ref, track.ID)
		if err != nil {
			return err
		}
		track.ChannelFormat = channel
	} else {
		trackFormat, err := lookupAs[*AudioTrackFormat](doc, ref, track.ID)
		if err != nil {
			return err
		}
		track.TrackFormat = trackFormat
	}
	return nil
}

func applyPackRef(doc *Document, track *AudioTrackUID, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Trim(ref, "0") == "" {
		return nil
	}

	if track.PackFormat != nil {
		if !strings.EqualFold(track.PackFormat.ID, ref) {
			return fmt.Errorf("%w: track UID %s: audioPackFormatIDRef in CHNA %q does not match AXML %q",
				ErrReference, track.ID, ref, track.PackFormat.ID)
		}
		return nil
	}

	pack, err := lookupAs[*AudioPackFormat](doc, ref, track.ID)
	if err != nil {
		return err
	}
	track.PackFormat = pack
	return nil
}

// CHNAEntries generates the CHNA table for the document's trackUIDs.
func CHNAEntries(doc *Document) []AudioID {
	entries := make([]AudioID, 0, len(doc.TrackUIDs))
	for _, t := range doc.TrackUIDs {
		entry := AudioID{TrackIndex: t.TrackIndex, UID: t.ID}
		switch {
		case t.ChannelFormat != nil:
			entry.TrackOrChannelRef = t.ChannelFormat.ID
		case t.TrackFormat != nil:
			entry.TrackOrChannelRef = t.TrackFormat.ID
		}
		if t.PackFormat != nil {
			entry.PackRef = t.PackFormat.ID
		}
		entries = append(entries, entry)
	}
	return entries
}
