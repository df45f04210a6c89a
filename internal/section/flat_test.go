package section

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rkm/dwg/internal/bitio"
)

// buildFlatLocator assembles a synthetic AC1014-AC1018 flat locator table
// for testing: 6-byte signature placeholder + reserved, then the
// sentinel-bracketed record table.
func buildFlatLocator(records [][3]uint32) []byte {
	buf := make([]byte, flatHeaderOffset)
	buf = append(buf, flatStartSentinel[:]...)

	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(records)))
	buf = append(buf, countBuf...)

	recordsStart := len(buf)
	for _, rec := range records {
		recBuf := make([]byte, flatRecordSize)
		recBuf[0] = byte(rec[0])
		binary.LittleEndian.PutUint32(recBuf[1:5], rec[1])
		binary.LittleEndian.PutUint32(recBuf[5:9], rec[2])
		buf = append(buf, recBuf...)
	}
	recordsEnd := len(buf)

	buf = append(buf, flatEndSentinel[:]...)

	crc := bitio.CRC16(buf[recordsStart:recordsEnd], 0xC0C1)
	crcBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBuf, crc)
	buf = append(buf, crcBuf...)

	return buf
}

func TestReadFlatValid(t *testing.T) {
	data := buildFlatLocator([][3]uint32{
		{1, 0x100, 0x10},
		{2, 0x200, 0x20},
		{3, 0x300, 0x30},
		{4, 0x400, 0x40},
	})

	locators, err := ReadFlat(data)
	if err != nil {
		t.Fatalf("ReadFlat failed: %v", err)
	}
	if len(locators) != 4 {
		t.Fatalf("expected 4 locators, got %d", len(locators))
	}
	byName := ByName(locators)
	handles, ok := byName["AcDb:Handles"]
	if !ok {
		t.Fatalf("expected AcDb:Handles locator")
	}
	if handles.Offset != 0x300 || handles.Size != 0x30 {
		t.Errorf("unexpected handles locator: %+v", handles)
	}
}

func TestReadFlatBadSentinel(t *testing.T) {
	data := buildFlatLocator([][3]uint32{{1, 0x100, 0x10}})
	data[flatHeaderOffset] ^= 0xFF // corrupt the start sentinel
	if _, err := ReadFlat(data); !errors.Is(err, ErrSentinelInvalid) {
		t.Errorf("expected sentinel error, got %v", err)
	}
}

func TestReadFlatBadCRC(t *testing.T) {
	data := buildFlatLocator([][3]uint32{{1, 0x100, 0x10}})
	data[len(data)-1] ^= 0xFF // corrupt the stored CRC
	if _, err := ReadFlat(data); !errors.Is(err, ErrCRCMismatch) {
		t.Errorf("expected CRC error, got %v", err)
	}
}
