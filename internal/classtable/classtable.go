// Package classtable parses the AcDb:Classes section into the type-code ->
// (dxfname, is-entity) registry that the type resolver consults for every
// record whose header type code is at or above the fixed entity/object
// fence. Grounded on the teacher's internal/message/symboltable.go: a
// fixed-shape record parsed field by field into a small lookup struct, here
// repeated N times instead of once per object header.
package classtable

import (
	"errors"
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// entityItemClassID is the fixed itemclassid value that marks a class as an
// entity (as opposed to a non-graphical object) per spec.md §4.6.
const entityItemClassID = 0x1F2

// classSentinel brackets the start of the AcDb:Classes section body, the
// same way flatStartSentinel brackets the flat locator table.
var classSentinel = [16]byte{0x8D, 0xA1, 0xC4, 0xB8, 0xC4, 0xA9, 0xF8, 0xC5, 0xC0, 0xDC, 0xF4, 0x5F, 0xE7, 0xCF, 0xB6, 0x8A}

// ErrSentinelInvalid is returned when the class section's start sentinel
// does not match the fixed value every AcDb:Classes section begins with.
var ErrSentinelInvalid = errors.New("classtable: sentinel mismatch")

// Class is one class-table entry: the symbolic DXF name a type code
// resolves to, and whether the file's own class definition marks it as
// drawable geometry (an entity) rather than a non-graphical object.
type Class struct {
	Number       uint16
	Version      uint16
	AppName      string
	CppClassName string
	DXFName      string
	WasAZombie   bool
	ItemClassID  uint16
	IsEntity     bool
}

// Table is the decoded class-number -> Class registry for one file.
type Table struct {
	byNumber map[uint16]Class
}

// Lookup resolves a type code to its class entry. ok is false for type
// codes below the fixed entity/object fence, which never appear in the
// class table and are resolved by the caller against the fixed type list
// instead.
func (t *Table) Lookup(typeCode uint16) (Class, bool) {
	c, ok := t.byNumber[typeCode]
	return c, ok
}

// Len returns the number of classes in the table.
func (t *Table) Len() int { return len(t.byNumber) }

// Read parses one AcDb:Classes section body: a 16-byte start sentinel, an
// RL total size in bytes of everything after the size field, N class records, and a trailing CRC-16 over the
// record stream. data is the full section body starting at the sentinel.
// v selects the record shape: AC1021+ (R2007 and later) class records
// carry five extra fields beyond the pre-2004 seven-field layout, and the
// section header itself carries four extra fields ahead of the record
// loop.
func Read(data []byte, v version.Version) (*Table, error) {
	if len(data) < 16+4 {
		return nil, fmt.Errorf("classtable: %w: section too short for header", bitio.ErrOutOfBounds)
	}

	r := bitio.NewReader(data)

	var sentinel [16]byte
	for i := range sentinel {
		b, err := r.RC()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading sentinel: %w", err)
		}
		sentinel[i] = b
	}
	if sentinel != classSentinel {
		return nil, ErrSentinelInvalid
	}

	totalSize, err := r.RL()
	if err != nil {
		return nil, fmt.Errorf("classtable: reading total size: %w", err)
	}
	sizeEndByte := r.BitPos() / 8
	extended := v.AtLeast(version.R2007)
	if extended {
		// AC1021+ carries four extra header fields ahead of the record
		// loop: the highest class number present, two reserved zero
		// bytes, and a bit flag.
		if _, err := r.BS(); err != nil {
			return nil, fmt.Errorf("classtable: reading max class number: %w", err)
		}
		if _, err := r.RC(); err != nil {
			return nil, fmt.Errorf("classtable: reading reserved byte: %w", err)
		}
		if _, err := r.RC(); err != nil {
			return nil, fmt.Errorf("classtable: reading reserved byte: %w", err)
		}
		if _, err := r.Bool(); err != nil {
			return nil, fmt.Errorf("classtable: reading bit flag: %w", err)
		}
	}

	recordsEndByte := sizeEndByte + uint64(totalSize)
	if recordsEndByte > uint64(len(data)) {
		return nil, fmt.Errorf("classtable: %w: declared size exceeds section", bitio.ErrOutOfBounds)
	}

	t := &Table{byNumber: make(map[uint16]Class)}

	for r.BitPos() < recordsEndByte*8 && r.Remaining() >= 8 {
		// A record whose class number reads back as 0 marks the end of
		// real records; the reader has run into the section's
		// zero-padded tail, mirroring how flat.go treats a degenerate
		// final chunk as end-of-data rather than a malformed record.
		startPos := r.BitPos()
		number, err := r.BS()
		if err != nil {
			break
		}
		if number == 0 {
			r.SetBitPos(startPos)
			break
		}

		classVersion, err := r.BS()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading version for class %d: %w", number, err)
		}
		appName, err := r.T()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading appname for class %d: %w", number, err)
		}
		cppClassName, err := r.T()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading cppclassname for class %d: %w", number, err)
		}
		dxfName, err := r.T()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading dxfname for class %d: %w", number, err)
		}
		wasAZombie, err := r.Bool()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading wasazombie for class %d: %w", number, err)
		}
		itemClassID, err := r.BS()
		if err != nil {
			return nil, fmt.Errorf("classtable: reading itemclassid for class %d: %w", number, err)
		}

		if extended {
			// AC1021+ class records carry five more fields than the
			// pre-2004 layout: how many instances of the class the file
			// contains, the dwg/maintenance version that introduced it,
			// and two fields whose purpose isn't otherwise used here.
			if _, err := r.BL(); err != nil {
				return nil, fmt.Errorf("classtable: reading number of objects for class %d: %w", number, err)
			}
			if _, err := r.BS(); err != nil {
				return nil, fmt.Errorf("classtable: reading dwg version for class %d: %w", number, err)
			}
			if _, err := r.BS(); err != nil {
				return nil, fmt.Errorf("classtable: reading maintenance version for class %d: %w", number, err)
			}
			if _, err := r.BL(); err != nil {
				return nil, fmt.Errorf("classtable: reading unknown0 for class %d: %w", number, err)
			}
			if _, err := r.BL(); err != nil {
				return nil, fmt.Errorf("classtable: reading unknown1 for class %d: %w", number, err)
			}
		}

		t.byNumber[number] = Class{
			Number:       number,
			Version:      classVersion,
			AppName:      appName,
			CppClassName: cppClassName,
			DXFName:      dxfName,
			WasAZombie:   wasAZombie,
			ItemClassID:  itemClassID,
			IsEntity:     itemClassID == entityItemClassID,
		}
	}

	return t, nil
}
