package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// MText is the MTEXT entity: a multi-line text block anchored at Insert
// with an optional background fill, present R2004+.
type MText struct {
	base
	Insert                 bitio.Point3D
	Extrusion              bitio.Point3D
	XAxis                  bitio.Point3D
	RefRectWidth           float64
	RefRectHeight          float64
	Attachment             uint16
	DrawingDir             uint16
	ExtentsHeight          float64
	ExtentsWidth           float64
	Text                   string
	LineSpacingStyle       uint16
	LineSpacingFactor      float64
	BackgroundFillFlag     uint32
	BackgroundScale        float64
	BackgroundColor        bitio.ColorRef
	BackgroundTransparency uint32
}

func decodeMText(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	m := &MText{base: base{handle: handle, typeName: typeName}}

	var err error
	m.Insert, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	m.Extrusion, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	m.XAxis, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	m.RefRectWidth, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	if v.AtLeast(version.R2007) {
		m.RefRectHeight, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	m.Attachment, err = r.BS()
	if err != nil {
		return nil, wrapErr(err)
	}
	m.DrawingDir, err = r.BS()
	if err != nil {
		return nil, wrapErr(err)
	}
	m.ExtentsHeight, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	m.ExtentsWidth, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}

	if v.UsesUTF16Text() {
		m.Text, err = r.TU()
	} else {
		m.Text, err = r.T()
	}
	if err != nil {
		return nil, wrapErr(err)
	}

	if v.AtLeast(version.R2000) {
		m.LineSpacingStyle, err = r.BS()
		if err != nil {
			return nil, wrapErr(err)
		}
		m.LineSpacingFactor, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	if v.AtLeast(version.R2004) {
		m.BackgroundFillFlag, err = r.BL()
		if err != nil {
			return nil, wrapErr(err)
		}
		if m.BackgroundFillFlag != 0 {
			m.BackgroundScale, err = r.BD()
			if err != nil {
				return nil, wrapErr(err)
			}
			m.BackgroundColor, err = r.CMC()
			if err != nil {
				return nil, wrapErr(err)
			}
			m.BackgroundTransparency, err = r.BL()
			if err != nil {
				return nil, wrapErr(err)
			}
		}
	}

	return m, nil
}
