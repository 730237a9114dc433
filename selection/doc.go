// SPDX-License-Identifier: EPL-2.0

// Package selection flattens the ADM reference graph into rendering
// items: it validates the structure, selects a programme and the
// objects below it (honouring complementary-object groups), allocates
// audioTrackUIDs to the channels of matching pack formats, and emits
// one typed rendering item per track (or per pack, for HOA). Matrix
// packs resolve to items of their output pack's type whose samples are
// synthesised by matrix-coefficient track specs.
package selection
