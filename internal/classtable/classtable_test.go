package classtable

import (
	"encoding/binary"
	"testing"

	"github.com/rkm/dwg/internal/version"
)

// classtable.Read consumes a bitio.Reader, so tests build the section body
// bit by bit using a tiny local bit-writer, mirroring how objmap's tests
// hand-encode MC fields directly against the decoder's bit semantics.
type bitWriter struct {
	bits []bool
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, (v>>uint(i))&1 == 1)
	}
}

func (w *bitWriter) writeBS(v uint16) {
	w.writeBits(0, 2) // prefix 00: full 16 bits follow
	w.writeBits(uint64(v), 16)
}

func (w *bitWriter) writeBool(v bool) {
	if v {
		w.writeBits(1, 1)
	} else {
		w.writeBits(0, 1)
	}
}

func (w *bitWriter) writeT(s string) {
	w.writeBS(uint16(len(s)))
	for i := 0; i < len(s); i++ {
		w.writeBits(uint64(s[i]), 8)
	}
}

func (w *bitWriter) writeBL(v uint32) {
	w.writeBits(0, 2) // prefix 00: full 32 bits follow
	w.writeBits(uint64(v), 32)
}

func (w *bitWriter) writeRC(v byte) {
	w.writeBits(uint64(v), 8)
}

func (w *bitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, b := range w.bits {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func buildClassSection(classes []Class, extended bool) []byte {
	w := &bitWriter{}
	if extended {
		w.writeBS(0) // max class number, unused by the decoder
		w.writeRC(0)
		w.writeRC(0)
		w.writeBool(false)
	}
	for _, c := range classes {
		w.writeBS(c.Number)
		w.writeBS(c.Version)
		w.writeT(c.AppName)
		w.writeT(c.CppClassName)
		w.writeT(c.DXFName)
		w.writeBool(c.WasAZombie)
		w.writeBS(c.ItemClassID)
		if extended {
			w.writeBL(0) // number of objects
			w.writeBS(0) // dwg version
			w.writeBS(0) // maintenance version
			w.writeBL(0) // unknown0
			w.writeBL(0) // unknown1
		}
	}
	body := w.bytes()

	out := make([]byte, 16)
	copy(out, classSentinel[:])
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(body)))
	out = append(out, sizeBuf...)
	out = append(out, body...)
	return out
}

func TestReadClassesResolvesEntityFlag(t *testing.T) {
	classes := []Class{
		{Number: 500, Version: 0, AppName: "ObjectDBX Classes", CppClassName: "AcDbLine", DXFName: "LINE", WasAZombie: false, ItemClassID: 0x1F2},
		{Number: 501, Version: 0, AppName: "ObjectDBX Classes", CppClassName: "AcDbDictionary", DXFName: "DICTIONARY", WasAZombie: false, ItemClassID: 0x1F3},
	}
	data := buildClassSection(classes, false)

	table, err := Read(data, version.R2000)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 classes, got %d", table.Len())
	}

	line, ok := table.Lookup(500)
	if !ok {
		t.Fatalf("expected class 500 to resolve")
	}
	if !line.IsEntity {
		t.Errorf("expected class 500 (itemclassid 0x1F2) to be marked as entity")
	}
	if line.DXFName != "LINE" {
		t.Errorf("expected dxfname LINE, got %q", line.DXFName)
	}

	dict, ok := table.Lookup(501)
	if !ok {
		t.Fatalf("expected class 501 to resolve")
	}
	if dict.IsEntity {
		t.Errorf("expected class 501 (itemclassid 0x1F3) to not be marked as entity")
	}
}

func TestReadClassesRejectsBadSentinel(t *testing.T) {
	data := buildClassSection(nil, false)
	data[0] ^= 0xFF

	if _, err := Read(data, version.R2000); err == nil {
		t.Errorf("expected sentinel mismatch error")
	}
}

func TestReadClassesEmptyTable(t *testing.T) {
	data := buildClassSection(nil, false)
	table, err := Read(data, version.R2000)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d entries", table.Len())
	}
}

func TestReadClassesExtendedSchema(t *testing.T) {
	classes := []Class{
		{Number: 500, Version: 0, AppName: "ObjectDBX Classes", CppClassName: "AcDbLine", DXFName: "LINE", WasAZombie: false, ItemClassID: 0x1F2},
		{Number: 501, Version: 0, AppName: "ObjectDBX Classes", CppClassName: "AcDbDictionary", DXFName: "DICTIONARY", WasAZombie: false, ItemClassID: 0x1F3},
	}
	data := buildClassSection(classes, true)

	table, err := Read(data, version.R2007)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 classes, got %d", table.Len())
	}

	line, ok := table.Lookup(500)
	if !ok {
		t.Fatalf("expected class 500 to resolve")
	}
	if !line.IsEntity {
		t.Errorf("expected class 500 (itemclassid 0x1F2) to be marked as entity")
	}
	if line.DXFName != "LINE" {
		t.Errorf("expected dxfname LINE, got %q", line.DXFName)
	}
}
