// Package objheader reads the per-object preamble that precedes every
// entity/object record's type-specific payload, and extracts the object's
// raw bit-stream for CRC validation. Grounded on the teacher's
// internal/object/header.go version dispatch (readV1/readV2) generalized
// from "two header shapes" to a version-indexed table of common-header
// tail bits, per spec.md §9's "keep the four cross-version bits in one
// place" guidance.
package objheader

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Preamble is the decoded object-record header: its declared byte length
// (excluding the trailing CRC), type code, and the absolute bit position
// where the type-specific payload begins.
type Preamble struct {
	Handle        uint64
	Offset        uint64
	SizeBytes     uint64
	TypeCode      uint16
	PayloadBitPos uint64
	crcBasePos    uint64
}

// ReadPreamble positions a reader at byteOffset within data and decodes
// the preamble: MS size, RS type-code, then the version-conditional
// common-header tail (material flag R2007+, shadow flag R2007+,
// visual-style 3 bits R2010+, has-ds-binary-data bit R2013+).
func ReadPreamble(data []byte, handle uint64, byteOffset uint64, v version.Version) (Preamble, error) {
	if byteOffset*8 >= uint64(len(data))*8 {
		return Preamble{}, fmt.Errorf("objheader: %w: offset past end of file", bitio.ErrOutOfBounds)
	}
	r := bitio.NewReader(data)
	r.SetBitPos(byteOffset * 8)

	sizeBytes, err := r.MS()
	if err != nil {
		return Preamble{}, fmt.Errorf("objheader: reading size: %w", err)
	}
	crcBasePos := r.BitPos()

	typeCode, err := r.RS()
	if err != nil {
		return Preamble{}, fmt.Errorf("objheader: reading type code: %w", err)
	}

	if v.HasMaterialFlag() {
		if _, err := r.B(); err != nil {
			return Preamble{}, fmt.Errorf("objheader: reading material flag: %w", err)
		}
	}
	if v.HasShadowFlag() {
		if _, err := r.B(); err != nil {
			return Preamble{}, fmt.Errorf("objheader: reading shadow flag: %w", err)
		}
	}
	if v.HasVisualStyle() {
		if _, err := r.ReadBits(3); err != nil {
			return Preamble{}, fmt.Errorf("objheader: reading visual style bits: %w", err)
		}
	}
	if v.HasDsBinaryData() {
		if _, err := r.B(); err != nil {
			return Preamble{}, fmt.Errorf("objheader: reading ds-binary-data flag: %w", err)
		}
	}

	return Preamble{
		Handle:        handle,
		Offset:        byteOffset,
		SizeBytes:     uint64(sizeBytes),
		TypeCode:      typeCode,
		PayloadBitPos: r.BitPos(),
		crcBasePos:    crcBasePos,
	}, nil
}
