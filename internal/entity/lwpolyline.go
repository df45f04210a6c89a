package entity

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// LWPOLYLINE flag bits, low to high: closed, const-width present,
// elevation present, thickness present, extrusion present.
const (
	lwFlagClosed     = 0x01
	lwFlagConstWidth = 0x04
	lwFlagElevation  = 0x08
	lwFlagThickness  = 0x10
	lwFlagExtrusion  = 0x20
)

// LWPolyline is the LWPOLYLINE entity: a lightweight 2D polyline with
// per-vertex bulge and width data. First point is never duplicated to
// mark closedness; Closed is carried as its own flag (spec.md seed
// scenario 4).
type LWPolyline struct {
	base
	Closed     bool
	ConstWidth float64
	Elevation  float64
	Thickness  float64
	Extrusion  bitio.Point3D
	Points     []bitio.Point2D
	Bulges     []float64
	Widths     []Width
}

func decodeLWPolyline(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	flags, err := r.BS()
	if err != nil {
		return nil, wrapErr(err)
	}

	p := &LWPolyline{
		base:      base{handle: handle, typeName: typeName},
		Closed:    flags&lwFlagClosed != 0,
		Extrusion: bitio.Point3D{X: 0, Y: 0, Z: 1},
	}

	if flags&lwFlagConstWidth != 0 {
		p.ConstWidth, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	if flags&lwFlagElevation != 0 {
		p.Elevation, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	if flags&lwFlagThickness != 0 {
		p.Thickness, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	if flags&lwFlagExtrusion != 0 {
		p.Extrusion, err = r.BD3()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	nPoints, err := r.BL()
	if err != nil {
		return nil, wrapErr(err)
	}
	nBulges, err := r.BL()
	if err != nil {
		return nil, wrapErr(err)
	}
	nWidths, err := r.BL()
	if err != nil {
		return nil, wrapErr(err)
	}

	p.Points = make([]bitio.Point2D, nPoints)
	for i := range p.Points {
		pt, err := r.RD2()
		if err != nil {
			return nil, wrapErr(fmt.Errorf("point %d: %w", i, err))
		}
		p.Points[i] = pt
	}

	p.Bulges = make([]float64, nBulges)
	for i := range p.Bulges {
		b, err := r.BD()
		if err != nil {
			return nil, wrapErr(fmt.Errorf("bulge %d: %w", i, err))
		}
		p.Bulges[i] = b
	}

	p.Widths = make([]Width, nWidths)
	for i := range p.Widths {
		sw, err := r.BD()
		if err != nil {
			return nil, wrapErr(fmt.Errorf("width %d start: %w", i, err))
		}
		ew, err := r.BD()
		if err != nil {
			return nil, wrapErr(fmt.Errorf("width %d end: %w", i, err))
		}
		p.Widths[i] = Width{Start: sw, End: ew}
	}

	return p, nil
}
