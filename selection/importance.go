// SPDX-License-Identifier: EPL-2.0

package selection

import "github.com/ebu/ebu-adm-renderer/render"

// FilterByImportance removes rendering items whose object or pack
// importance falls below the threshold; items without importance values
// are kept. HOA items are kept if any of their channels pass.
func FilterByImportance(items []render.RenderingItem, threshold int) []render.RenderingItem {
	passes := func(importance render.ImportanceData) bool {
		if importance.AudioObject != nil && *importance.AudioObject < threshold {
			return false
		}
		if importance.AudioPackFormat != nil && *importance.AudioPackFormat < threshold {
			return false
		}
		return true
	}

	var out []render.RenderingItem
	for _, item := range items {
		switch it := item.(type) {
		case *render.ObjectRenderingItem:
			if passes(it.Importance) {
				out = append(out, it)
			}
		case *render.DirectSpeakersRenderingItem:
			if passes(it.Importance) {
				out = append(out, it)
			}
		case *render.HOARenderingItem:
			for _, importance := range it.Importances {
				if passes(importance) {
					out = append(out, it)
					break
				}
			}
		default:
			out = append(out, item)
		}
	}
	return out
}
