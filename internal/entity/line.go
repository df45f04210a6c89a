package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Line is the LINE entity: two 3D points, thickness, and extrusion.
type Line struct {
	base
	Start, End bitio.Point3D
	Thickness  float64
	Extrusion  bitio.Point3D
}

// decodeLine reads a flag bit marking whether the end point shares the
// start point's Z (the common on-disk shortcut for planar lines), then
// the start as a full 3BD, the end as 2BD plus a conditional Z, thickness,
// and extrusion.
func decodeLine(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	zShared, err := r.B()
	if err != nil {
		return nil, wrapErr(err)
	}

	start, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}

	endXY, err := r.BD2()
	if err != nil {
		return nil, wrapErr(err)
	}
	endZ := start.Z
	if zShared == 0 {
		endZ, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	thickness, err := r.BT(0)
	if err != nil {
		return nil, wrapErr(err)
	}
	extrusion, err := r.BE()
	if err != nil {
		return nil, wrapErr(err)
	}

	return &Line{
		base:      base{handle: handle, typeName: typeName},
		Start:     start,
		End:       bitio.Point3D{X: endXY.X, Y: endXY.Y, Z: endZ},
		Thickness: thickness,
		Extrusion: extrusion,
	}, nil
}
