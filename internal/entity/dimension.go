package entity

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Dimension subtype names, discriminated by the low 5 bits of the flags
// byte per the format's dimension-type encoding.
const (
	DimLinear     = "LINEAR"
	DimAligned    = "ALIGNED"
	DimAngular3Pt = "ANG3PT"
	DimAngular2Ln = "ANG2LN"
	DimRadius     = "RADIUS"
	DimDiameter   = "DIAMETER"
	DimOrdinate   = "ORDINATE"
)

var dimSubtypeNames = map[uint8]string{
	0: DimLinear,
	1: DimAligned,
	2: DimAngular2Ln,
	3: DimDiameter,
	4: DimRadius,
	5: DimAngular3Pt,
	6: DimOrdinate,
}

// Dimension is the DIMENSION entity. Fields beyond the common block are
// populated according to Subtype; unused subtype fields are left zero.
type Dimension struct {
	base
	Subtype           string
	ClassVersion      uint8
	Extrusion         bitio.Point3D
	TextMidpoint      bitio.Point2D
	TextMidElevation  float64
	Insert            bitio.Point3D
	Flags             uint8
	UserText          string
	TextRotation      float64
	HorizDir          float64
	InsertScale       bitio.Point3D
	InsertRotation    float64
	Attachment        uint16
	LineSpacingStyle  uint16
	LineSpacingFactor float64
	ActualMeasurement float64

	DimRotation     float64
	ExtLineRotation float64
	LeaderLength    float64
	DefPoint        *bitio.Point3D
	DefPoint2       *bitio.Point2D
	DefPoint3       *bitio.Point2D
	DefPoint4       *bitio.Point2D
	Flags2          uint8
}

func decodeDimension(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	d := &Dimension{base: base{handle: handle, typeName: typeName}}

	var err error
	if v.AtLeast(version.R2010) {
		cv, err2 := r.RC()
		if err2 != nil {
			return nil, wrapErr(err2)
		}
		d.ClassVersion = cv
	}

	d.Extrusion, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.TextMidpoint, err = r.RD2()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.TextMidElevation, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.Insert, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}

	flags, err := r.RC()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.Flags = flags
	subtype, ok := dimSubtypeNames[flags&0x1F]
	if !ok {
		return nil, wrapErr(fmt.Errorf("unrecognized dimension subtype 0x%x", flags&0x1F))
	}
	d.Subtype = subtype

	d.UserText, err = textField(r, v)
	if err != nil {
		return nil, wrapErr(err)
	}
	d.TextRotation, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.HorizDir, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.InsertScale, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	d.InsertRotation, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}

	if v.AtLeast(version.R2000) {
		d.Attachment, err = r.BS()
		if err != nil {
			return nil, wrapErr(err)
		}
		d.LineSpacingStyle, err = r.BS()
		if err != nil {
			return nil, wrapErr(err)
		}
		d.LineSpacingFactor, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
		d.ActualMeasurement, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	if err := decodeDimSubtype(d, r); err != nil {
		return nil, wrapErr(err)
	}

	return d, nil
}

// textField reads a T or TU field depending on version, matching the
// conditional in TEXT/MTEXT decode without duplicating the branch.
func textField(r *bitio.Reader, v version.Version) (string, error) {
	if v.UsesUTF16Text() {
		return r.TU()
	}
	return r.T()
}

func decodeDimSubtype(d *Dimension, r *bitio.Reader) error {
	readPoint2Elev := func() (bitio.Point2D, error) {
		p, err := r.RD2()
		if err != nil {
			return bitio.Point2D{}, err
		}
		if _, err := r.BD(); err != nil {
			return bitio.Point2D{}, err
		}
		return p, nil
	}

	switch d.Subtype {
	case DimLinear:
		var err error
		d.DimRotation, err = r.BD()
		if err != nil {
			return err
		}
		d.ExtLineRotation, err = r.BD()
		if err != nil {
			return err
		}
		p2, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint2 = &p2
		p3, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint3 = &p3
		p, err := r.BD3()
		if err != nil {
			return err
		}
		d.DefPoint = &p

	case DimAligned:
		var err error
		d.ExtLineRotation, err = r.BD()
		if err != nil {
			return err
		}
		p2, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint2 = &p2
		p3, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint3 = &p3
		p, err := r.BD3()
		if err != nil {
			return err
		}
		d.DefPoint = &p

	case DimAngular3Pt:
		p, err := r.BD3()
		if err != nil {
			return err
		}
		d.DefPoint = &p
		p2, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint2 = &p2
		p3, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint3 = &p3
		p4, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint4 = &p4

	case DimAngular2Ln:
		p, err := r.BD3()
		if err != nil {
			return err
		}
		d.DefPoint = &p
		p2, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint2 = &p2
		p3, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint3 = &p3
		p4, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint4 = &p4

	case DimRadius, DimDiameter:
		p2, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint2 = &p2
		d.LeaderLength, err = r.BD()
		if err != nil {
			return err
		}

	case DimOrdinate:
		p2, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint2 = &p2
		p3, err := readPoint2Elev()
		if err != nil {
			return err
		}
		d.DefPoint3 = &p3
		flags2, err := r.RC()
		if err != nil {
			return err
		}
		d.Flags2 = flags2
	}

	return nil
}
