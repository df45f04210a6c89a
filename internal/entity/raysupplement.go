package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Ray is the supplemented RAY entity: a point plus an infinite unit
// direction extending only forward from Start. Named in spec.md §4.8's
// to_points contract though absent from the §4.5 decoder table.
type Ray struct {
	base
	Start     bitio.Point3D
	Direction bitio.Point3D
}

func decodeRay(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	start, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	dir, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	return &Ray{base: base{handle: handle, typeName: typeName}, Start: start, Direction: dir}, nil
}

// XLine is the supplemented XLINE entity: identical schema to RAY, but
// its unit direction extends infinitely in both directions.
type XLine struct {
	base
	Start     bitio.Point3D
	Direction bitio.Point3D
}

func decodeXLine(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	start, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	dir, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	return &XLine{base: base{handle: handle, typeName: typeName}, Start: start, Direction: dir}, nil
}
