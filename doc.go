// SPDX-License-Identifier: EPL-2.0

// Package ear is a renderer for the Audio Definition Model (ITU-R
// BS.2076): given a BW64 file carrying ADM metadata, it produces a
// loudspeaker-bed WAV for a BS.2051 reproduction layout (ITU-R
// BS.2127).
//
// # Quick start
//
// The simplest way to render a file is RenderFile:
//
//	err := ear.RenderFile("input.wav", "output.wav", ear.RenderOptions{
//		TargetLayout: "0+5+0",
//	})
//
// # Pipeline
//
// For more control, the stages are available individually:
//
//	reader, _ := bw64.NewReader(file)
//	doc, _ := ear.LoadDocument(reader, false, warner)
//	items, _ := selection.SelectRenderingItems(doc, selection.Options{})
//
//	layout, _ := layout.Get("4+5+0")
//	renderer, _ := render.NewRenderer(layout, warner)
//	renderer.SetRenderingItems(items)
//
//	out, _ := renderer.Render(rate, samples, channels, nFrames)
//
// The subpackages follow the same split: adm models the metadata, bw64
// the file format, layout the loudspeaker layouts, selection the
// flattening of the reference graph, panner the panning geometry, hoa
// the ambisonics maths, and render the sample pipeline.
package ear
