// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Warner collects rendering warnings, deduplicating identical messages:
// each distinct message is logged once when first seen, and Flush
// reports the repeat counts.
type Warner struct {
	log    *logrus.Logger
	strict bool

	counts map[string]int
	order  []string
	err    error
}

// NewWarner creates a warner logging through log; pass nil to use the
// standard logger. With strict set, the first warning is recorded as an
// error retrievable from Err.
func NewWarner(log *logrus.Logger, strict bool) *Warner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Warner{log: log, strict: strict, counts: map[string]int{}}
}

// Warn implements adm.Warner.
func (w *Warner) Warn(msg string) {
	if w.strict && w.err == nil {
		w.err = fmt.Errorf("%w: %s", ErrStrict, msg)
	}

	if w.counts[msg] == 0 {
		w.order = append(w.order, msg)
		w.log.Warn(msg)
	}
	w.counts[msg]++
}

// Err returns the first warning promoted to an error in strict mode.
func (w *Warner) Err() error { return w.err }

// Flush logs a final count for each message that repeated.
func (w *Warner) Flush() {
	for _, msg := range w.order {
		if n := w.counts[msg]; n > 1 {
			w.log.Warnf("warning repeated %d times: %s", n, msg)
		}
	}
	w.counts = map[string]int{}
	w.order = nil
}
