package dwg

// RecordDiagnostic is the tier-2 side channel named in spec.md §7: one
// entry per handle that failed to decode without bringing the rest of the
// catalog down.
type RecordDiagnostic struct {
	Handle   uint64
	Offset   uint64
	TypeCode uint16
	Reason   string
}

// Diagnostics returns every record-local failure observed so far, in the
// order they were recorded. The returned slice is a copy.
func (c *Catalog) Diagnostics() []RecordDiagnostic {
	out := make([]RecordDiagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

func (c *Catalog) recordDiagnostic(handle, offset uint64, typeCode uint16, reason string) {
	c.diagnostics = append(c.diagnostics, RecordDiagnostic{
		Handle:   handle,
		Offset:   offset,
		TypeCode: typeCode,
		Reason:   reason,
	})
}
