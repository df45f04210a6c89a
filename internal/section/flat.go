package section

import (
	"encoding/binary"
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
)

// flatHeaderOffset is the fixed byte offset, immediately after the 6-byte
// version signature and its 2-byte reserved tail, where the AC1014-AC1018
// section-locator header begins.
const flatHeaderOffset = 8

// flatStartSentinel and flatEndSentinel bracket the flat locator table.
// A mismatch on either is a file-fatal sentinel failure (spec.md §4.2).
var (
	flatStartSentinel = [16]byte{0x95, 0xA0, 0x4E, 0x28, 0x99, 0x82, 0x1A, 0xE5, 0x5E, 0x41, 0xE0, 0x5F, 0x9D, 0x3A, 0x4D, 0x00}
	flatEndSentinel    = [16]byte{0x95, 0xA0, 0x4E, 0x28, 0x99, 0x82, 0x1A, 0xE5, 0x5E, 0x41, 0xE0, 0x5F, 0x9D, 0x3A, 0x4D, 0x00}
)

// flatRecordSize is the byte width of one (record-number, seeker, size)
// triple: 1-byte record number, two raw little-endian uint32s.
const flatRecordSize = 9

// flatRecordNames maps the fixed record-number slots used by AC1014-
// AC1018 to the section names later stages expect. Record 0 is the file
// header's own locator entry and is not itself a named section.
var flatRecordNames = map[uint8]string{
	1: "AcDb:Header",
	2: "AcDb:Classes",
	3: "AcDb:Handles",
	4: "AcDb:AcDbObjects",
	5: "AcDb:Preview",
}

// ReadFlat parses the AC1014-AC1018 flat section-locator table.
func ReadFlat(data []byte) ([]Locator, error) {
	if len(data) < flatHeaderOffset+16+4 {
		return nil, fmt.Errorf("%w: file too short for flat locator header", bitio.ErrOutOfBounds)
	}

	pos := flatHeaderOffset
	var start [16]byte
	copy(start[:], data[pos:pos+16])
	if start != flatStartSentinel {
		return nil, fmt.Errorf("%w: flat locator start sentinel", ErrSentinelInvalid)
	}
	pos += 16

	count := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	need := pos + int(count)*flatRecordSize + 16 + 2
	if len(data) < need {
		return nil, fmt.Errorf("%w: file too short for %d flat locator records", bitio.ErrOutOfBounds, count)
	}

	recordsStart := pos
	locators := make([]Locator, 0, count)
	for i := uint32(0); i < count; i++ {
		recNum := data[pos]
		seeker := binary.LittleEndian.Uint32(data[pos+1 : pos+5])
		size := binary.LittleEndian.Uint32(data[pos+5 : pos+9])
		pos += flatRecordSize

		if recNum == 0 {
			continue
		}
		name, ok := flatRecordNames[recNum]
		if !ok {
			name = fmt.Sprintf("AcDb:Record%d", recNum)
		}
		locators = append(locators, Locator{Name: name, Offset: uint64(seeker), Size: uint64(size)})
	}
	recordsEnd := pos

	var end [16]byte
	copy(end[:], data[pos:pos+16])
	if end != flatEndSentinel {
		return nil, fmt.Errorf("%w: flat locator end sentinel", ErrSentinelInvalid)
	}
	pos += 16

	storedCRC := binary.LittleEndian.Uint16(data[pos : pos+2])
	computed := bitio.CRC16(data[recordsStart:recordsEnd], 0xC0C1)
	if computed != storedCRC {
		return nil, fmt.Errorf("%w: flat locator header", ErrCRCMismatch)
	}

	return locators, nil
}
