package schema

// CollectFields flattens rt's inheritance chain into a single field list:
// ancestor fields first, declaration order within each level. Ignored fields
// are kept; filtering is left to the consumers.
func CollectFields(rt *RecordType) []Field {
	if rt == nil {
		return nil
	}
	fields := CollectFields(rt.Parent)
	return append(fields, rt.Fields...)
}

// Columns returns the collected fields that map to table columns, i.e. every
// field without Ignore, in collector order.
func Columns(rt *RecordType) []Field {
	all := CollectFields(rt)
	out := make([]Field, 0, len(all))
	for _, f := range all {
		if f.Ignore {
			continue
		}
		out = append(out, f)
	}
	return out
}
