// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"fmt"
	"math"

	"github.com/ebu/ebu-adm-renderer/adm"
)

// PeakMonitor tracks the peak level of each channel in a multichannel
// stream.
type PeakMonitor struct {
	peaks []float64
}

func NewPeakMonitor(nchannels int) *PeakMonitor {
	return &PeakMonitor{peaks: make([]float64, nchannels)}
}

// Process updates the peaks from a block of interleaved frames.
func (m *PeakMonitor) Process(samples []float64) {
	nch := len(m.peaks)
	for i, s := range samples {
		ch := i % nch
		if a := math.Abs(s); a > m.peaks[ch] {
			m.peaks[ch] = a
		}
	}
}

// HasOverloaded reports whether any channel exceeded full scale.
func (m *PeakMonitor) HasOverloaded() bool {
	for _, p := range m.peaks {
		if p > 1 {
			return true
		}
	}
	return false
}

// WarnOverloaded emits one warning per overloaded channel.
func (m *PeakMonitor) WarnOverloaded(warner adm.Warner) {
	for ch, p := range m.peaks {
		if p > 1 {
			warner.Warn(fmt.Sprintf("overload in channel %d; peak level was %.1fdBFS", ch, 20*math.Log10(p)))
		}
	}
}
