package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// TEXT data-flag bits: each marks a field as omitted (left at its default)
// rather than present on disk, the way the format elides fields that
// match their common default to shrink typical records. Extrusion and
// thickness are not gated by any of these bits — they're always present,
// encoded as BE/BT the same as LINE, ARC, CIRCLE, and POINT.
const (
	textFlagElevationOmitted   = 0x01
	textFlagAlignOmitted       = 0x02
	textFlagObliqueOmitted     = 0x04
	textFlagRotationOmitted    = 0x08
	textFlagWidthFactorOmitted = 0x10
	textFlagGenerationOmitted  = 0x20
	textFlagHAlignOmitted      = 0x40
	textFlagVAlignOmitted      = 0x80
)

// Text is the TEXT entity.
type Text struct {
	base
	Elevation    float64
	Insert       bitio.Point2D
	Align        bitio.Point2D
	Extrusion    bitio.Point3D
	Thickness    float64
	ObliqueAngle float64
	Rotation     float64
	Height       float64
	WidthFactor  float64
	String       string
	Generation   uint16
	HAlign       uint16
	VAlign       uint16
	StyleHandle  bitio.HandleRef
}

func decodeText(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	flags, err := r.RC()
	if err != nil {
		return nil, wrapErr(err)
	}

	t := &Text{
		base:        base{handle: handle, typeName: typeName},
		Extrusion:   bitio.Point3D{X: 0, Y: 0, Z: 1},
		WidthFactor: 1,
	}

	if flags&textFlagElevationOmitted == 0 {
		t.Elevation, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	t.Insert, err = r.RD2()
	if err != nil {
		return nil, wrapErr(err)
	}

	if flags&textFlagAlignOmitted == 0 {
		t.Align, err = r.RD2()
		if err != nil {
			return nil, wrapErr(err)
		}
	} else {
		t.Align = t.Insert
	}

	t.Extrusion, err = r.BE()
	if err != nil {
		return nil, wrapErr(err)
	}
	t.Thickness, err = r.BT(0)
	if err != nil {
		return nil, wrapErr(err)
	}
	if flags&textFlagObliqueOmitted == 0 {
		t.ObliqueAngle, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	if flags&textFlagRotationOmitted == 0 {
		t.Rotation, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	t.Height, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}

	if flags&textFlagWidthFactorOmitted == 0 {
		t.WidthFactor, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	if v.UsesUTF16Text() {
		t.String, err = r.TU()
	} else {
		t.String, err = r.T()
	}
	if err != nil {
		return nil, wrapErr(err)
	}

	if flags&textFlagGenerationOmitted == 0 {
		t.Generation, err = r.BS()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	if flags&textFlagHAlignOmitted == 0 {
		t.HAlign, err = r.BS()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	if flags&textFlagVAlignOmitted == 0 {
		t.VAlign, err = r.BS()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	t.StyleHandle, err = r.H()
	if err != nil {
		return nil, wrapErr(err)
	}

	return t, nil
}
