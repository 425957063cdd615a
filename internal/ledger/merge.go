package ledger

// MergeDeep fuses a loaded snapshot into the default schema template. The
// rules keep old persisted data loadable after the schema grows:
//   - a key present only in the template keeps the template value
//   - map-valued keys present in both sides merge recursively
//   - for scalars, arrays, and type mismatches the loaded value wins outright
//
// The merge is total: it never fails, whatever shape the loaded map has.
func MergeDeep(template, loaded map[string]any) map[string]any {
	out := make(map[string]any, len(template)+len(loaded))
	for k, v := range template {
		out[k] = v
	}
	for k, lv := range loaded {
		lm, loadedIsMap := lv.(map[string]any)
		if !loadedIsMap {
			out[k] = lv
			continue
		}
		tm, templateIsMap := template[k].(map[string]any)
		if !templateIsMap {
			out[k] = lv
			continue
		}
		out[k] = MergeDeep(tm, lm)
	}
	return out
}
