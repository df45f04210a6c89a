package dwg

import (
	"fmt"

	"github.com/rkm/dwg/internal/classtable"
)

// classTableFence is the type-code boundary named in spec.md §4.4: codes
// below it are fixed per the format, codes at or above it resolve through
// the file's own class table.
const classTableFence = 500

// fixedTypeCodes maps the reserved type-codes below classTableFence to
// their symbolic names, grounded on original_source/src/api/bindings/
// decode.rs's matches_type_name call sites.
var fixedTypeCodes = map[uint16]string{
	0x01: "TEXT",
	0x02: "ATTRIB",
	0x03: "ATTDEF",
	0x07: "INSERT",
	0x0A: "VERTEX_2D",
	0x0B: "VERTEX_3D",
	0x10: "POLYLINE_3D",
	0x11: "ARC",
	0x12: "CIRCLE",
	0x13: "LINE",
	0x14: "DIM_ORDINATE",
	0x15: "DIM_LINEAR",
	0x16: "DIM_ALIGNED",
	0x17: "DIM_ANG3PT",
	0x18: "DIM_ANG2LN",
	0x19: "DIM_RADIUS",
	0x1A: "DIM_DIAMETER",
	0x1B: "POINT",
	0x1C: "3DFACE",
	0x1D: "POLYLINE_PFACE",
	0x1E: "POLYLINE_MESH",
	0x1F: "SOLID",
	0x20: "TRACE",
	0x21: "SHAPE",
	0x22: "VIEWPORT",
	0x23: "ELLIPSE",
	0x24: "SPLINE",
	0x25: "REGION",
	0x26: "3DSOLID",
	0x27: "BODY",
	0x28: "RAY",
	0x29: "XLINE",
	0x2B: "OLEFRAME",
	0x2C: "MTEXT",
	0x2D: "LEADER",
	0x2E: "TOLERANCE",
	0x2F: "MLINE",
	0x33: "LAYER",
	0x4A: "OLE2FRAME",
	0x4C: "LONG_TRANSACTION",
	0x4D: "LWPOLYLINE",
	0x4E: "HATCH",
}

// dimSubtypeTypeNames collapses the seven DIM_* fixed codes to the single
// resolved type-name "DIMENSION" that internal/entity's registry dispatches
// on; the subtype itself survives inside the decoded Dimension record.
var dimSubtypeTypeNames = map[string]bool{
	"DIM_LINEAR": true, "DIM_ALIGNED": true, "DIM_ANG3PT": true,
	"DIM_ANG2LN": true, "DIM_RADIUS": true, "DIM_DIAMETER": true,
	"DIM_ORDINATE": true,
}

// resolvedType is the (name, class) pair spec.md §2.5/§4.4 names.
type resolvedType struct {
	Name  string
	Class string // "entity" or "object"
}

// resolveTypeCode maps a numeric type-code to its symbolic name and class,
// consulting classes (possibly nil, when WithoutClassTable was given or the
// code is fixed) only for codes at or above classTableFence.
func resolveTypeCode(code uint16, classes *classtable.Table) (resolvedType, bool) {
	if code < classTableFence {
		name, ok := fixedTypeCodes[code]
		if !ok {
			return resolvedType{}, false
		}
		if dimSubtypeTypeNames[name] {
			name = "DIMENSION"
		}
		class := "object"
		if isFixedEntity(code) {
			class = "entity"
		}
		return resolvedType{Name: name, Class: class}, true
	}

	if classes == nil {
		return resolvedType{}, false
	}
	cls, ok := classes.Lookup(code)
	if !ok {
		return resolvedType{}, false
	}
	class := "object"
	if cls.IsEntity {
		class = "entity"
	}
	return resolvedType{Name: cls.DXFName, Class: class}, true
}

// isFixedEntity reports whether a fixed type-code names a graphical
// entity (as opposed to a non-graphical object such as LAYER). LAYER
// (0x33) and LONG_TRANSACTION (0x4C) are the only non-entity fixed codes
// this decoder names.
func isFixedEntity(code uint16) bool {
	switch code {
	case 0x33, 0x4C:
		return false
	default:
		_, ok := fixedTypeCodes[code]
		return ok
	}
}

func formatTypeCode(code uint16) string {
	return fmt.Sprintf("0x%X", code)
}
