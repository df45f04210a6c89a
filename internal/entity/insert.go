package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Insert is the supplemented INSERT entity named explicitly in spec.md
// §6's raw query table: a block reference placed, scaled, and rotated at
// InsertionPoint. BlockHandle resolves to a block-table entry and, by
// extension, a block name, at the catalog layer (spec.md §4.8's
// lazy-by-handle resolution); the decoder itself only carries the handle,
// read from the tail of the handle-stream rather than the type payload
// (original_source/src/entities/insert.rs: "INSERT keeps block and owned
// references in the handle stream").
type Insert struct {
	base
	InsertionPoint         bitio.Point3D
	XScale, YScale, ZScale float64
	Rotation               float64
	Extrusion              bitio.Point3D
	HasAttribs             bool
	OwnedCount             uint32
	BlockHandle            bitio.HandleRef
}

// insertScaleFlag is the 2-bit BB prefix selecting how the per-axis scale
// factors were written, per original_source/src/entities/insert.rs:
// 0x03 -> all three default to 1; 0x01 -> X defaults to 1, Y/Z follow as
// BT-style doubles-with-default; 0x02 -> a single uniform scale RD;
// otherwise X is a raw double and Y/Z default to X unless overridden.
const (
	insertScaleAllDefault = 0x03
	insertScaleXDefault   = 0x01
	insertScaleUniform    = 0x02
)

func decodeInsert(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	ins := &Insert{
		base:      base{handle: handle, typeName: typeName},
		XScale:    1,
		YScale:    1,
		ZScale:    1,
	}

	var err error
	ins.InsertionPoint, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}

	scaleFlag, err := r.BB()
	if err != nil {
		return nil, wrapErr(err)
	}
	switch scaleFlag {
	case insertScaleAllDefault:
		// Leave the 1,1,1 defaults set above.
	case insertScaleXDefault:
		ins.YScale, err = r.BT(1.0)
		if err != nil {
			return nil, wrapErr(err)
		}
		ins.ZScale, err = r.BT(1.0)
		if err != nil {
			return nil, wrapErr(err)
		}
	case insertScaleUniform:
		ins.XScale, err = r.RD()
		if err != nil {
			return nil, wrapErr(err)
		}
		ins.YScale = ins.XScale
		ins.ZScale = ins.XScale
	default:
		ins.XScale, err = r.RD()
		if err != nil {
			return nil, wrapErr(err)
		}
		ins.YScale, err = r.BT(ins.XScale)
		if err != nil {
			return nil, wrapErr(err)
		}
		ins.ZScale, err = r.BT(ins.XScale)
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	ins.Rotation, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	ins.Extrusion, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}

	hasAttribs, err := r.B()
	if err != nil {
		return nil, wrapErr(err)
	}
	ins.HasAttribs = hasAttribs != 0
	if ins.HasAttribs {
		ins.OwnedCount, err = r.BL()
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	return ins, nil
}
