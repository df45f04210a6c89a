package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Ellipse is the ELLIPSE entity. Unlike ARC, its parameters stay radians
// at every layer including the façade (spec's angle-unit split names
// ELLIPSE explicitly as the one exception).
type Ellipse struct {
	base
	Center               bitio.Point3D
	MajorAxis            bitio.Point3D
	Extrusion            bitio.Point3D
	Ratio                float64
	StartParam, EndParam float64
}

func decodeEllipse(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	center, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	majorAxis, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	extrusion, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	ratio, err := r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	startParam, err := r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	endParam, err := r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}

	return &Ellipse{
		base:       base{handle: handle, typeName: typeName},
		Center:     center,
		MajorAxis:  majorAxis,
		Extrusion:  extrusion,
		Ratio:      ratio,
		StartParam: startParam,
		EndParam:   endParam,
	}, nil
}
