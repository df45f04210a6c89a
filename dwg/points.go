package dwg

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/entity"
)

// ToPoints projects a decoded entity onto its bounding 3D point set, per
// the per-type rule table in spec.md §4.8. Types outside that table fail
// with ErrNoPointProjection.
func ToPoints(rec entity.Record) ([]bitio.Point3D, error) {
	switch e := rec.(type) {
	case *entity.Line:
		return []bitio.Point3D{e.Start, e.End}, nil

	case *entity.LWPolyline:
		pts := make([]bitio.Point3D, len(e.Points))
		for i, p := range e.Points {
			pts[i] = bitio.Point3D{X: p.X, Y: p.Y, Z: 0}
		}
		return pts, nil

	case *entity.Point:
		return []bitio.Point3D{e.Location}, nil

	case *entity.Text:
		return []bitio.Point3D{{X: e.Insert.X, Y: e.Insert.Y, Z: e.Elevation}}, nil

	case *entity.MText:
		return []bitio.Point3D{e.Insert}, nil

	case *entity.Dimension:
		if e.DefPoint2 != nil && e.DefPoint3 != nil {
			return []bitio.Point3D{
				{X: e.DefPoint2.X, Y: e.DefPoint2.Y, Z: e.TextMidElevation},
				{X: e.DefPoint3.X, Y: e.DefPoint3.Y, Z: e.TextMidElevation},
			}, nil
		}
		return []bitio.Point3D{{X: e.TextMidpoint.X, Y: e.TextMidpoint.Y, Z: e.TextMidElevation}}, nil

	case *entity.Ray:
		return []bitio.Point3D{e.Start, addUnit(e.Start, e.Direction)}, nil

	case *entity.XLine:
		return []bitio.Point3D{subUnit(e.Start, e.Direction), addUnit(e.Start, e.Direction)}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrNoPointProjection, rec.TypeName())
	}
}

func addUnit(p, dir bitio.Point3D) bitio.Point3D {
	return bitio.Point3D{X: p.X + dir.X, Y: p.Y + dir.Y, Z: p.Z + dir.Z}
}

func subUnit(p, dir bitio.Point3D) bitio.Point3D {
	return bitio.Point3D{X: p.X - dir.X, Y: p.Y - dir.Y, Z: p.Z - dir.Z}
}
