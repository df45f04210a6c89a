package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Circle is the CIRCLE entity: center, radius, thickness, and extrusion.
type Circle struct {
	base
	Center    bitio.Point3D
	Radius    float64
	Thickness float64
	Extrusion bitio.Point3D
}

func decodeCircle(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	center, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	radius, err := r.BD()
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

	return &Circle{
		base:      base{handle: handle, typeName: typeName},
		Center:    center,
		Radius:    radius,
		Thickness: thickness,
		Extrusion: extrusion,
	}, nil
}
