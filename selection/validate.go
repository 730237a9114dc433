// SPDX-License-Identifier: EPL-2.0

package selection

import (
	"fmt"

	"github.com/ebu/ebu-adm-renderer/adm"
)

// validateObjectLoops checks for loops in the audioObject nesting.
func validateObjectLoops(doc *adm.Document) error {
	visited := map[*adm.AudioObject]bool{}

	var dfs func(node *adm.AudioObject, path []*adm.AudioObject) error
	dfs = func(node *adm.AudioObject, path []*adm.AudioObject) error {
		for _, p := range path {
			if p == node {
				return fmt.Errorf("%w: audioObjects via %s", ErrLoop, node.ID)
			}
		}
		if visited[node] {
			return nil
		}
		visited[node] = true

		path = append(path, node)
		for _, child := range node.Objects {
			if err := dfs(child, path); err != nil {
				return err
			}
		}
		return nil
	}

	for _, obj := range doc.Objects {
		if err := dfs(obj, nil); err != nil {
			return err
		}
	}
	return nil
}

// validatePackChannelMultitree checks that the audioPackFormat
// references form a multitree: from each root, every reachable pack and
// channel is reachable by only one path.
func validatePackChannelMultitree(doc *adm.Document) error {
	for _, root := range doc.PackFormats {
		seenPacks := map[*adm.AudioPackFormat]bool{}
		seenChannels := map[*adm.AudioChannelFormat]bool{}

		var dfs func(node *adm.AudioPackFormat, path []*adm.AudioPackFormat) error
		dfs = func(node *adm.AudioPackFormat, path []*adm.AudioPackFormat) error {
			for _, p := range path {
				if p == node {
					return fmt.Errorf("%w: audioPackFormats via %s", ErrLoop, node.ID)
				}
			}
			if seenPacks[node] {
				return fmt.Errorf("%w: audioPackFormat %s", ErrDiamond, node.ID)
			}
			seenPacks[node] = true

			path = append(path, node)
			for _, channel := range node.ChannelFormats {
				if seenChannels[channel] {
					return fmt.Errorf("%w: audioChannelFormat %s", ErrDiamond, channel.ID)
				}
				seenChannels[channel] = true
			}
			for _, sub := range node.PackFormats {
				if err := dfs(sub, path); err != nil {
					return err
				}
			}
			return nil
		}

		if err := dfs(root, nil); err != nil {
			return err
		}
	}
	return nil
}

// validatePackChannelTypes checks that pack formats only reference
// channel formats of their own type.
func validatePackChannelTypes(doc *adm.Document) error {
	for _, pack := range doc.PackFormats {
		for _, channel := range pack.ChannelFormats {
			if channel.Type != pack.Type {
				return fmt.Errorf("%w: audioPackFormat %s of type %v references audioChannelFormat %s of type %v",
					ErrBadReference, pack.ID, pack.Type, channel.ID, channel.Type)
			}
		}
		for _, sub := range pack.PackFormats {
			if sub.Type != pack.Type {
				return fmt.Errorf("%w: audioPackFormat %s of type %v references audioPackFormat %s of type %v",
					ErrBadReference, pack.ID, pack.Type, sub.ID, sub.Type)
			}
		}
	}
	return nil
}

// validateMatrixPacks checks the structural constraints of matrix
// packs: direct matrices have both input and output references, encode
// only input, decode only output plus exactly one encode reference.
func validateMatrixPacks(doc *adm.Document) error {
	for _, pack := range doc.PackFormats {
		if pack.Type != adm.TypeMatrix {
			continue
		}
		switch matrixType(pack) {
		case matrixInvalid:
			return fmt.Errorf("%w: matrix audioPackFormat %s has neither input nor output pack references",
				ErrBadReference, pack.ID)
		case matrixDecode:
			if len(pack.EncodePackFormats) != 1 {
				return fmt.Errorf("%w: decode matrix %s must reference exactly one encode pack",
					ErrBadReference, pack.ID)
			}
		}

		for _, channel := range pack.ChannelFormats {
			if len(channel.Blocks) != 1 {
				return fmt.Errorf("%w: matrix audioChannelFormat %s must have exactly one block format",
					ErrBadReference, channel.ID)
			}
		}
	}
	return nil
}

// validateStructure runs the structural checks that selection relies
// on.
func validateStructure(doc *adm.Document) error {
	if err := validateObjectLoops(doc); err != nil {
		return err
	}
	if err := validatePackChannelMultitree(doc); err != nil {
		return err
	}
	if err := validatePackChannelTypes(doc); err != nil {
		return err
	}
	return validateMatrixPacks(doc)
}

// validateSelectedTrackUID checks a trackUID selected for rendering.
func validateSelectedTrackUID(track *adm.AudioTrackUID) error {
	if track.TrackIndex == 0 {
		return fmt.Errorf("%w: %s has no CHNA entry", ErrBadTrackUID, track.ID)
	}
	if track.ResolvedChannelFormat() == nil {
		return fmt.Errorf("%w: %s references no audioChannelFormat", ErrBadTrackUID, track.ID)
	}
	return nil
}
