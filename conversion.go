// SPDX-License-Identifier: EPL-2.0

package ear

import (
	"github.com/ebu/ebu-adm-renderer/adm"
	"github.com/ebu/ebu-adm-renderer/panner"
)

// applyConversion rewrites the Objects block formats of a document to
// the requested coordinate convention ("to_cartesian" or "to_polar"),
// converting position, width, height and depth per BS.2127 section 10;
// the rest of the parameters are unmodified.
func applyConversion(doc *adm.Document, mode string) {
	for _, channel := range doc.ChannelFormats {
		if channel.Type != adm.TypeObjects {
			continue
		}
		for _, block := range channel.Blocks {
			objects, ok := block.(*adm.BlockObjects)
			if !ok {
				continue
			}

			switch mode {
			case "to_cartesian":
				toCartesian(objects)
			case "to_polar":
				toPolar(objects)
			}
		}
	}
}

func toCartesian(block *adm.BlockObjects) {
	pos, ok := block.Position.(adm.PolarObjectPosition)
	if !ok {
		block.Cartesian = true
		return
	}

	v, sx, sy, sz := panner.ExtentPolarToCart(pos.Azimuth, pos.Elevation, pos.Distance,
		block.Width, block.Height, block.Depth)

	block.Position = adm.CartesianObjectPosition{
		X: v[0], Y: v[1], Z: v[2],
		ScreenEdgeLock: pos.ScreenEdgeLock,
	}
	block.Width, block.Depth, block.Height = sx, sy, sz
	block.Cartesian = true
}

func toPolar(block *adm.BlockObjects) {
	pos, ok := block.Position.(adm.CartesianObjectPosition)
	if !ok {
		block.Cartesian = false
		return
	}

	az, el, dist, width, height, depth := panner.ExtentCartToPolar(pos.X, pos.Y, pos.Z,
		block.Width, block.Depth, block.Height)

	block.Position = adm.PolarObjectPosition{
		Azimuth: az, Elevation: el, Distance: dist,
		ScreenEdgeLock: pos.ScreenEdgeLock,
	}
	block.Width, block.Height, block.Depth = width, height, depth
	block.Cartesian = false
}
