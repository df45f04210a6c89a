package dwg

// OpenOption configures catalog construction, following the teacher's
// FileOption/fileOptions pattern (hdf5/options.go).
type OpenOption func(*openOptions)

type openOptions struct {
	limit          int
	typeFilter     map[string]bool
	skipClassTable bool
}

func defaultOpenOptions() *openOptions {
	return &openOptions{}
}

// WithLimit caps the object header index built at open time to the first n
// handles in object-map order; 0 (the default) indexes every handle. Useful
// for a quick peek at a very large drawing. Per-query limit arguments still
// apply on top of this cap.
func WithLimit(n int) OpenOption {
	return func(o *openOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithTypeFilter restricts query() to the named types when no explicit
// filter is given to query() itself. The object header index built at Open
// is not filtered. Passing no names leaves every supported type eligible.
func WithTypeFilter(types ...string) OpenOption {
	return func(o *openOptions) {
		if len(types) == 0 {
			return
		}
		o.typeFilter = make(map[string]bool, len(types))
		for _, t := range types {
			o.typeFilter[t] = true
		}
	}
}

// WithoutClassTable skips parsing AcDb:Classes. Objects whose type-code is
// >= 500 then have no resolved type name, since their name can only come
// from the class table: Decode fails for them with ErrUnsupportedType, and
// Query and TotalEntities leave them out. Fixed type-codes below the fence
// are unaffected.
func WithoutClassTable() OpenOption {
	return func(o *openOptions) {
		o.skipClassTable = true
	}
}
