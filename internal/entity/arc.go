package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Arc is the ARC entity: center, radius, thickness, extrusion, and the
// start/end sweep angles in radians (spec's radians-at-decoder convention).
type Arc struct {
	base
	Center               bitio.Point3D
	Radius               float64
	Thickness            float64
	Extrusion            bitio.Point3D
	StartAngle, EndAngle float64
}

func decodeArc(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
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
	startAngle, err := r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	endAngle, err := r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}

	return &Arc{
		base:       base{handle: handle, typeName: typeName},
		Center:     center,
		Radius:     radius,
		Thickness:  thickness,
		Extrusion:  extrusion,
		StartAngle: startAngle,
		EndAngle:   endAngle,
	}, nil
}
