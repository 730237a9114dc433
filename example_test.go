// SPDX-License-Identifier: EPL-2.0

package ear_test

import (
	"log"

	ear "github.com/ebu/ebu-adm-renderer"
)

// Render an ADM BW64 file to a 5.1 loudspeaker bed.
func Example_renderFile() {
	err := ear.RenderFile("input.wav", "output.wav", ear.RenderOptions{
		TargetLayout: "0+5+0",
		OutputGainDB: -3,
	})
	if err != nil {
		log.Fatalf("%s: %s", ear.Kind(err), err)
	}
}
