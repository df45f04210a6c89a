package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Point is the POINT entity: location, thickness, extrusion, and the
// angle of the entity's X axis (used to orient the point's UCS marker).
type Point struct {
	base
	Location   bitio.Point3D
	Thickness  float64
	Extrusion  bitio.Point3D
	XAxisAngle float64
}

func decodePoint(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	loc, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	thickness, err := r.BT(0)
	if err != nil {
		return nil, wrapErr(err)
	}
	extrusion, err := r.BE()
	if err != nil {
		return nil, wrapErr(err)
	}
	xAxisAngle, err := r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}

	return &Point{
		base:       base{handle: handle, typeName: typeName},
		Location:   loc,
		Thickness:  thickness,
		Extrusion:  extrusion,
		XAxisAngle: xAxisAngle,
	}, nil
}
