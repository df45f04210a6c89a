// Package entity holds the typed decoders for drawing entities: one
// decoder per supported type, dispatched by resolved type name. Grounded
// on the teacher's internal/message/message.go: a switch-based Parse
// dispatcher over a fixed type enum, with an Unknown wrapper preserving
// raw bytes for unregistered types (here, unregistered type *names*
// rather than numeric codes, resolved upstream by internal/classtable).
package entity

import (
	"errors"
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// ErrMalformedRecord is returned when a type-specific decoder cannot
// complete because the bit stream was truncated or its tag bits were
// inconsistent with the declared schema.
var ErrMalformedRecord = errors.New("entity: malformed record")

// ErrUnsupportedType is returned when no decoder is registered for a
// resolved type name.
var ErrUnsupportedType = errors.New("entity: unsupported type")

// Record is the tagged-union interface every decoded entity satisfies.
// Concrete variants are LINE, ARC, CIRCLE, POINT, ELLIPSE, LWPOLYLINE,
// TEXT, MTEXT, DIMENSION, RAY, XLINE, INSERT, SOLID, TRACE, VERTEX_2D,
// VERTEX_3D, POLYLINE_3D, and the Unknown fallback.
type Record interface {
	Handle() uint64
	TypeName() string
}

// base carries the handle and type name common to every decoded record.
type base struct {
	handle   uint64
	typeName string
}

func (b base) Handle() uint64   { return b.handle }
func (b base) TypeName() string { return b.typeName }

// Unknown preserves the raw payload bytes for a resolved type with no
// registered decoder, so round-trip queries (read_object) keep working
// even when decode() cannot produce a structured record.
type Unknown struct {
	base
	Raw []byte
}

// NewUnknown builds the fallback Unknown variant for a resolved type name
// that has no registered decoder.
func NewUnknown(handle uint64, typeName string, raw []byte) *Unknown {
	return &Unknown{base: base{handle: handle, typeName: typeName}, Raw: raw}
}

// Width is one LWPOLYLINE width entry: the segment's start and end width.
type Width struct {
	Start, End float64
}

type decodeFunc func(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error)

var registry = map[string]decodeFunc{
	"LINE":        decodeLine,
	"ARC":         decodeArc,
	"CIRCLE":      decodeCircle,
	"POINT":       decodePoint,
	"ELLIPSE":     decodeEllipse,
	"LWPOLYLINE":  decodeLWPolyline,
	"TEXT":        decodeText,
	"MTEXT":       decodeMText,
	"DIMENSION":   decodeDimension,
	"RAY":         decodeRay,
	"XLINE":       decodeXLine,
	"INSERT":      decodeInsert,
	"SOLID":       decodeSolid,
	"TRACE":       decodeTrace,
	"VERTEX_2D":   decodeVertex2D,
	"VERTEX_3D":   decodeVertex3D,
	"POLYLINE_3D": decodePolyline3D,
}

// Supported reports whether typeName has a registered decoder.
func Supported(typeName string) bool {
	_, ok := registry[typeName]
	return ok
}

// Decode runs the registered decoder for typeName against r, which must be
// positioned immediately after the object's common header tail (the
// version-conditional bits internal/objheader already consumed). It
// returns ErrUnsupportedType if no decoder is registered, or wraps
// ErrMalformedRecord on any schema failure.
func Decode(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	fn, ok := registry[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typeName)
	}
	rec, err := fn(handle, typeName, r, v)
	if err != nil {
		return nil, fmt.Errorf("entity: decoding %s (handle 0x%X): %w", typeName, handle, err)
	}
	return rec, nil
}

// wrapErr tags an underlying bit-read failure as a malformed record,
// since every field read past this point is part of a fixed schema: any
// short read means the bytes did not match the declared type.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
}
