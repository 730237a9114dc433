// SPDX-License-Identifier: EPL-2.0

// Package render implements the rendering pipeline: rendering items and
// track specs, the per-type renderers for Objects, DirectSpeakers and
// HOA content (Matrix content arrives as track-spec chains), the gain
// interpolation and mixing engine, and the block aligner that merges
// the type renderers onto one sample clock.
package render
