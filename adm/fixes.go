// SPDX-License-Identifier: EPL-2.0

package adm

import "fmt"

func hasInterpolationLength(b BlockFormat) (*BlockObjects, bool) {
	objects, ok := b.(*BlockObjects)
	if !ok {
		return nil, false
	}
	return objects, objects.JumpPosition.Flag && objects.JumpPosition.InterpolationLength != nil
}

// CheckBlockDurations checks that the end of each audioBlockFormat
// matches the rtime of the next within each channel format, and that
// interpolation lengths fit inside their blocks. With fix set the
// durations and interpolation lengths are modified to be consistent,
// with a warning per change; otherwise an ErrTiming error is returned
// for the first inconsistency.
func CheckBlockDurations(doc *Document, fix bool, warner Warner) error {
	if warner == nil {
		warner = discardWarner{}
	}

	for _, channel := range doc.ChannelFormats {
		blocks := channel.Blocks

		for i := 0; i+1 < len(blocks); i++ {
			a, b := blocks[i].Common(), blocks[i+1].Common()
			if a.Rtime == nil || a.Duration == nil || b.Rtime == nil {
				continue
			}

			newDuration := b.Rtime.Sub(*a.Rtime)
			if newDuration.Cmp(*a.Duration) == 0 {
				continue
			}

			if !fix {
				return fmt.Errorf("%w: duration of block format %s does not match rtime of next block",
					ErrTiming, a.ID)
			}

			direction := "contracted"
			if newDuration.Cmp(*a.Duration) > 0 {
				direction = "expanded"
			}
			warner.Warn(fmt.Sprintf("%s duration of block format %s to match next rtime; was: %v, now: %v",
				direction, a.ID, *a.Duration, newDuration))

			oldDuration := *a.Duration
			*a.Duration = newDuration

			// if contracting the block leaves the interpolation
			// hanging past the end, clamp it without any more noise
			if objects, ok := hasInterpolationLength(blocks[i]); ok {
				length := *objects.JumpPosition.InterpolationLength
				if oldDuration.Cmp(length) >= 0 && newDuration.Cmp(length) < 0 {
					*objects.JumpPosition.InterpolationLength = newDuration
				}
			}
		}

		for _, block := range blocks {
			objects, ok := hasInterpolationLength(block)
			if !ok || block.Common().Duration == nil {
				continue
			}

			length := *objects.JumpPosition.InterpolationLength
			duration := *block.Common().Duration
			if length.Cmp(duration) <= 0 {
				continue
			}

			if !fix {
				return fmt.Errorf("%w: interpolationLength of block format %s is greater than duration",
					ErrTiming, block.Common().ID)
			}

			warner.Warn(fmt.Sprintf("contracted interpolationLength of block format %s to match duration; was: %v, now: %v",
				block.Common().ID, length, duration))
			*objects.JumpPosition.InterpolationLength = duration
		}
	}

	return nil
}

// CheckBlockTimes validates that block rtimes within each channel are
// strictly non-decreasing and non-overlapping, and that rtime and
// duration are used together.
func CheckBlockTimes(doc *Document) error {
	for _, channel := range doc.ChannelFormats {
		var lastEnd *Time
		for _, block := range channel.Blocks {
			c := block.Common()

			if (c.Rtime == nil) != (c.Duration == nil) {
				return fmt.Errorf("%w: block %s: rtime and duration must be used together", ErrTiming, c.ID)
			}
			if c.Rtime == nil {
				if len(channel.Blocks) > 1 {
					return fmt.Errorf("%w: channel %s has multiple blocks without timing", ErrTiming, channel.ID)
				}
				continue
			}

			if lastEnd != nil && c.Rtime.Cmp(*lastEnd) < 0 {
				return fmt.Errorf("%w: overlapping block %s", ErrTiming, c.ID)
			}
			end := c.Rtime.Add(*c.Duration)
			lastEnd = &end
		}
	}
	return nil
}
