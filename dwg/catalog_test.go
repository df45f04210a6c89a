package dwg

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/entity"
	"github.com/rkm/dwg/internal/version"
)

// The fixtures below hand-assemble a minimal but byte-accurate AC1015
// file, mirroring the encoding each sub-package's own tests already
// hand-roll (internal/objheader's buildRecord, internal/objmap's
// buildPage, internal/section's buildFlatLocator): this package's tests
// exercise the whole pipeline those pieces compose into.

var flatLocatorStartSentinel = [16]byte{0x95, 0xA0, 0x4E, 0x28, 0x99, 0x82, 0x1A, 0xE5, 0x5E, 0x41, 0xE0, 0x5F, 0x9D, 0x3A, 0x4D, 0x00}
var flatLocatorEndSentinel = flatLocatorStartSentinel

// bitWriter builds a hand-crafted entity payload bit by bit, MSB-first,
// matching internal/entity's test fixtures.
type bitWriter struct {
	bits []bool
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, (v>>uint(i))&1 == 1)
	}
}
func (w *bitWriter) writeB(b bool) {
	if b {
		w.writeBits(1, 1)
	} else {
		w.writeBits(0, 1)
	}
}
func (w *bitWriter) writeBDFull(f float64) {
	w.writeBits(0, 2)
	w.writeRD(f)
}
func (w *bitWriter) writeBD3Full(x, y, z float64) {
	w.writeBDFull(x)
	w.writeBDFull(y)
	w.writeBDFull(z)
}

// writeRD writes a raw little-endian double: low byte first, each byte
// MSB-first, mirroring RD's byte order.
func (w *bitWriter) writeRD(f float64) {
	b := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		w.writeBits((b>>(8*uint(i)))&0xFF, 8)
	}
}
func (w *bitWriter) writeRD2(x, y float64) {
	w.writeRD(x)
	w.writeRD(y)
}
func (w *bitWriter) writeBTAbsent() { w.writeB(false) }
func (w *bitWriter) writeBEDefault() { w.writeB(false) }

// writeH appends an H (handle reference) field: a 4-bit code, a 4-bit byte
// count fixed at 1, and that single value byte.
func (w *bitWriter) writeH(code bitio.HandleCode, value uint8) {
	w.writeBits(uint64(code), 4)
	w.writeBits(1, 4)
	w.writeBits(uint64(value), 8)
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

// buildObjectRecord assembles one full, CRC-validated object record: MS
// size (bytes), RS type code, the version's common-header tail bits, the
// already bit-packed payload, and a trailing CRC-16.
func buildObjectRecord(v version.Version, typeCode uint16, payload []byte) []byte {
	body := []byte{byte(typeCode), byte(typeCode >> 8)}

	var tailBits int
	if v.HasMaterialFlag() {
		tailBits++
	}
	if v.HasShadowFlag() {
		tailBits++
	}
	if v.HasVisualStyle() {
		tailBits += 3
	}
	if v.HasDsBinaryData() {
		tailBits++
	}
	body = append(body, make([]byte, (tailBits+7)/8)...)
	body = append(body, payload...)

	sizeBytes := uint64(len(body))
	var msBytes []byte
	remaining := sizeBytes
	for {
		chunk := remaining & 0x7FFF
		remaining >>= 15
		b0 := byte(chunk)
		b1 := byte(chunk >> 8)
		if remaining != 0 {
			b1 |= 0x80
		}
		msBytes = append(msBytes, b0, b1)
		if remaining == 0 {
			break
		}
	}

	record := append(msBytes, body...)
	crc := bitio.CRC16(body, 0xC0C1)
	return append(record, byte(crc), byte(crc>>8))
}

// encodeMC mirrors internal/objmap's MC decoder: 7-bit continuation
// chunks holding the low-order magnitude, terminated by a byte whose low
// 6 bits hold the remaining magnitude and bit 6 holds the sign.
func encodeMC(v int64) []byte {
	neg := v < 0
	mag := v
	if neg {
		mag = -v
	}
	var out []byte
	for mag >= 0x40 {
		out = append(out, byte(mag&0x7F)|0x80)
		mag >>= 7
	}
	final := byte(mag)
	if neg {
		final |= 0x40
	}
	return append(out, final)
}

// buildObjectMapSection encodes a single-page AcDb:Handles section body
// for the given (handle, offset) pairs, terminated by a zero-size page.
func buildObjectMapSection(entries [][2]uint64) []byte {
	var h, o int64
	var body []byte
	for _, e := range entries {
		body = append(body, encodeMC(int64(e[0])-h)...)
		body = append(body, encodeMC(int64(e[1])-o)...)
		h, o = int64(e[0]), int64(e[1])
	}
	crc := bitio.CRC16(body, 0xC0C1)
	pageSize := uint16(len(body) + 2)

	page := make([]byte, 2)
	binary.BigEndian.PutUint16(page, pageSize)
	page = append(page, body...)
	crcBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(crcBuf, crc)
	page = append(page, crcBuf...)

	return append(page, 0x00, 0x00) // terminator page
}

// flatFile assembles a complete AC1014-AC1018-style file: signature,
// flat section-locator table, then whatever section bytes the caller
// lays out at the offsets it declares.
// flatFile's offsets are tracked relative to the start of its data
// region (everything after the locator table) while sections are being
// laid out, since the table's own length — and therefore the data
// region's absolute start — depends on how many records it ends up
// holding. finish() resolves every relative offset to absolute once the
// record count is final.
type flatFile struct {
	v    version.Version
	buf  []byte
	recs [][3]uint32 // (record-number, relative-offset, size)
}

func newFlatFile(v version.Version) *flatFile {
	return &flatFile{v: v}
}

// appendSection appends data to the file's data region and records its
// flat locator entry under recNum (1=Header, 2=Classes, 3=Handles,
// 4=AcDbObjects), returning the relative offset it was placed at.
func (f *flatFile) appendSection(recNum uint8, data []byte) uint64 {
	off := uint64(len(f.buf))
	f.buf = append(f.buf, data...)
	f.recs = append(f.recs, [3]uint32{uint32(recNum), uint32(off), uint32(len(data))})
	return off
}

// placeObjectRecord appends a pre-built object record and returns the
// relative offset it was placed at, for the object map to point to once
// finish() rebases it to absolute.
func (f *flatFile) placeObjectRecord(rec []byte) uint64 {
	off := uint64(len(f.buf))
	f.buf = append(f.buf, rec...)
	return off
}

// flatRecordCount is the number of locator entries every fixture in this
// file declares (Header, Classes, Handles, AcDbObjects) — fixed so
// absoluteOffset can rebase a relative offset before the record table
// itself is finalized by finish().
const flatRecordCount = 4

// finish computes the locator table's fixed length from the final
// record count, rebases every recorded relative offset to absolute by
// that length, and assembles signature + table + data region.
func (f *flatFile) finish() []byte {
	if len(f.recs) != flatRecordCount {
		panic("flatFile: fixture must declare exactly flatRecordCount sections")
	}
	absoluteBase := uint64(8 + 16 + 4 + len(f.recs)*9 + 16 + 2)

	var table []byte
	table = append(table, flatLocatorStartSentinel[:]...)
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(f.recs)))
	table = append(table, countBuf...)

	recordsStart := len(table)
	for _, r := range f.recs {
		rec := make([]byte, 9)
		rec[0] = byte(r[0])
		binary.LittleEndian.PutUint32(rec[1:5], uint32(absoluteBase)+r[1])
		binary.LittleEndian.PutUint32(rec[5:9], r[2])
		table = append(table, rec...)
	}
	recordsEnd := len(table)
	table = append(table, flatLocatorEndSentinel[:]...)

	crc := bitio.CRC16(table[recordsStart:recordsEnd], 0xC0C1)
	crcBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBuf, crc)
	table = append(table, crcBuf...)

	out := make([]byte, 8)
	copy(out, []byte(f.v))
	out = append(out, table...)
	return append(out, f.buf...)
}

// absoluteOffset mirrors finish()'s base computation so callers (the
// object-map builder) can convert a relative offset returned by
// appendSection/placeObjectRecord into the same absolute offset finish()
// will bake into the locator table.
func (f *flatFile) absoluteOffset(relOff uint64) uint64 {
	return uint64(8+16+4+flatRecordCount*9+16+2) + relOff
}

// lineEntityPayload builds a LINE type-specific payload bit-stream.
func lineEntityPayload(sx, sy, sz, ex, ey, ez float64) []byte {
	w := &bitWriter{}
	w.writeB(false) // z not shared
	w.writeBD3Full(sx, sy, sz)
	w.writeBDFull(ex)
	w.writeBDFull(ey)
	w.writeBDFull(ez)
	w.writeBTAbsent()
	w.writeBEDefault()
	return w.bytes()
}

// lineEntityPayloadWithHandleStream builds a LINE type-specific payload
// immediately followed by its trailing handle-stream (owner, xdictionary,
// layer, linetype, plotstyle, colorbook — no reactors or subentities,
// matching HandleStreamRefs/EntityStyle's reactorCount=0/subentityCount=0
// convention), bit-packed as one continuous stream with no byte padding
// between the two, the way a real record lays them out.
func lineEntityPayloadWithHandleStream(sx, sy, sz, ex, ey, ez float64, owner, xdict, layer, linetype, plotstyle, colorbook uint8) []byte {
	w := &bitWriter{}
	w.writeB(false) // z not shared
	w.writeBD3Full(sx, sy, sz)
	w.writeBDFull(ex)
	w.writeBDFull(ey)
	w.writeBDFull(ez)
	w.writeBTAbsent()
	w.writeBEDefault()
	w.writeH(bitio.HandleSoftOwner, owner)
	w.writeH(bitio.HandleSoftPointer, xdict)
	w.writeH(bitio.HandleSoftPointer, layer)
	w.writeH(bitio.HandleSoftPointer, linetype)
	w.writeH(bitio.HandleSoftPointer, plotstyle)
	w.writeH(bitio.HandleSoftPointer, colorbook)
	return w.bytes()
}

func circleEntityPayload(cx, cy, cz, r float64) []byte {
	w := &bitWriter{}
	w.writeBD3Full(cx, cy, cz)
	w.writeBDFull(r)
	w.writeBTAbsent()
	w.writeBEDefault()
	return w.bytes()
}

// writeTempFile writes data to a fresh file under t's temp dir and
// returns its path.
func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}
	return path
}

func TestOpenMinimalLineFile(t *testing.T) {
	f := newFlatFile(version.R2000)
	f.appendSection(1, []byte("header"))
	f.appendSection(2, nil) // AcDb:Classes, never read (WithoutClassTable)

	rec := buildObjectRecord(version.R2000, 0x13, lineEntityPayload(1, 2, 3, 4, 5, 6))
	objOff := f.placeObjectRecord(rec)
	f.appendSection(4, []byte{0x00}) // AcDb:AcDbObjects, presence only

	objMap := buildObjectMapSection([][2]uint64{{0x1E, f.absoluteOffset(objOff)}})
	f.appendSection(3, objMap)

	path := writeTempFile(t, "minimal.dwg", f.finish())

	c, err := Open(path, WithoutClassTable())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if c.Version() != version.R2000 {
		t.Errorf("expected version R2000, got %s", c.Version())
	}
	if c.TotalEntities() != 1 {
		t.Fatalf("expected 1 entity, got %d", c.TotalEntities())
	}

	rec2, err := c.Decode(0x1E)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	line, ok := rec2.(*entity.Line)
	if !ok {
		t.Fatalf("expected *entity.Line, got %T", rec2)
	}
	if line.Start != (bitio.Point3D{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected start: %+v", line.Start)
	}

	lines := c.Lines(0)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line tuple, got %d", len(lines))
	}
	if lines[0].Handle != 0x1E || lines[0].EX != 4 {
		t.Errorf("unexpected line tuple: %+v", lines[0])
	}

	pts, err := ToPoints(rec2)
	if err != nil {
		t.Fatalf("ToPoints failed: %v", err)
	}
	if len(pts) != 2 {
		t.Errorf("expected 2 points for a LINE, got %d", len(pts))
	}
}

func TestQueryMixedTypesUnion(t *testing.T) {
	f := newFlatFile(version.R2004)
	f.appendSection(1, []byte("header"))
	f.appendSection(2, nil)

	lineRec := buildObjectRecord(version.R2004, 0x13, lineEntityPayload(0, 0, 0, 1, 1, 1))
	lineOff := f.placeObjectRecord(lineRec)
	circleRec := buildObjectRecord(version.R2004, 0x12, circleEntityPayload(5, 5, 0, 2.5))
	circleOff := f.placeObjectRecord(circleRec)
	f.appendSection(4, []byte{0x00})

	objMap := buildObjectMapSection([][2]uint64{{1, f.absoluteOffset(lineOff)}, {2, f.absoluteOffset(circleOff)}})
	f.appendSection(3, objMap)

	path := writeTempFile(t, "mixed.dwg", f.finish())
	c, err := Open(path, WithoutClassTable())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	union := c.Query([]string{"LINE", "CIRCLE"}, 0)
	if len(union) != 2 {
		t.Fatalf("expected 2 records in union query, got %d", len(union))
	}
	if union[0].Handle() != 1 || union[1].Handle() != 2 {
		t.Errorf("expected object-map order (1, 2), got (%d, %d)", union[0].Handle(), union[1].Handle())
	}

	onlyCircles := c.Circles(0)
	if len(onlyCircles) != 1 || onlyCircles[0].Handle != 2 {
		t.Fatalf("unexpected circles tuple: %+v", onlyCircles)
	}
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	data := append([]byte("AC9999"), make([]byte, 32)...)
	path := writeTempFile(t, "bad-version.dwg", data)

	_, err := Open(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestCorruptObjectSkipAndContinue(t *testing.T) {
	f := newFlatFile(version.R2000)
	f.appendSection(1, []byte("header"))
	f.appendSection(2, nil)

	goodRec := buildObjectRecord(version.R2000, 0x13, lineEntityPayload(0, 0, 0, 1, 0, 0))
	goodOff := f.placeObjectRecord(goodRec)

	badRec := buildObjectRecord(version.R2000, 0x13, lineEntityPayload(0, 0, 0, 2, 0, 0))
	badRec[len(badRec)-1] ^= 0xFF // corrupt the trailing CRC
	badOff := f.placeObjectRecord(badRec)

	f.appendSection(4, []byte{0x00})

	objMap := buildObjectMapSection([][2]uint64{{1, f.absoluteOffset(goodOff)}, {2, f.absoluteOffset(badOff)}})
	f.appendSection(3, objMap)

	path := writeTempFile(t, "corrupt.dwg", f.finish())
	c, err := Open(path, WithoutClassTable())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	lines := c.Query([]string{"LINE"}, 0)
	if len(lines) != 1 {
		t.Fatalf("expected the corrupt record to be skipped, got %d records", len(lines))
	}
	if lines[0].Handle() != 1 {
		t.Errorf("expected the surviving record to be handle 1, got %d", lines[0].Handle())
	}

	if _, err := c.Decode(2); err == nil {
		t.Errorf("expected Decode(2) to fail on CRC mismatch")
	}

	diags := c.Diagnostics()
	if len(diags) == 0 {
		t.Fatalf("expected at least one diagnostic for the corrupt record")
	}
	found := false
	for _, d := range diags {
		if d.Handle == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a diagnostic entry for handle 2, got %+v", diags)
	}
}

func TestReadObjectRawBytes(t *testing.T) {
	f := newFlatFile(version.R2000)
	f.appendSection(1, []byte("header"))
	f.appendSection(2, nil)

	payload := lineEntityPayload(0, 0, 0, 9, 9, 9)
	rec := buildObjectRecord(version.R2000, 0x13, payload)
	off := f.placeObjectRecord(rec)
	f.appendSection(4, []byte{0x00})
	objMap := buildObjectMapSection([][2]uint64{{0x5, f.absoluteOffset(off)}})
	f.appendSection(3, objMap)

	path := writeTempFile(t, "readobject.dwg", f.finish())
	c, err := Open(path, WithoutClassTable())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	result, err := c.ReadObject(0x5)
	if err != nil {
		t.Fatalf("ReadObject failed: %v", err)
	}
	if result.TypeCode != 0x13 {
		t.Errorf("expected type code 0x13, got 0x%X", result.TypeCode)
	}
	if len(result.Bytes) == 0 {
		t.Errorf("expected non-empty raw bytes")
	}
}

func TestReadObjectUnknownHandle(t *testing.T) {
	f := newFlatFile(version.R2000)
	f.appendSection(1, []byte("header"))
	f.appendSection(2, nil)
	f.appendSection(4, []byte{0x00})
	f.appendSection(3, buildObjectMapSection(nil))

	path := writeTempFile(t, "empty.dwg", f.finish())
	c, err := Open(path, WithoutClassTable())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if _, err := c.ReadObject(0xDEAD); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
}

// TestHandleStreamRefsIndependentOfDecodeOrder guards against the cached
// objheader.Record.Reader aliasing bug: HandleStreamRefs must return the
// same answer whether it is called before Decode has ever run for the
// handle (triggering one internally to learn the handle-stream's start),
// or called again afterward, or called twice in a row — none of those
// calls may observe a reader position some other caller left behind.
func TestHandleStreamRefsIndependentOfDecodeOrder(t *testing.T) {
	f := newFlatFile(version.R2000)
	f.appendSection(1, []byte("header"))
	f.appendSection(2, nil)

	payload := lineEntityPayloadWithHandleStream(0, 0, 0, 1, 1, 1, 0x10, 0x00, 0x20, 0x00, 0x00, 0x00)
	rec := buildObjectRecord(version.R2000, 0x13, payload)
	off := f.placeObjectRecord(rec)
	f.appendSection(4, []byte{0x00})
	objMap := buildObjectMapSection([][2]uint64{{0x30, f.absoluteOffset(off)}})
	f.appendSection(3, objMap)

	path := writeTempFile(t, "handlestream.dwg", f.finish())
	c, err := Open(path, WithoutClassTable())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	wantRefs := []uint64{0x10, 0x00, 0x20, 0x00, 0x00, 0x00}

	before, err := c.HandleStreamRefs(0x30)
	if err != nil {
		t.Fatalf("HandleStreamRefs (before Decode) failed: %v", err)
	}
	if !refsEqual(before.Refs, wantRefs) {
		t.Fatalf("HandleStreamRefs (before Decode) = %v, want %v", before.Refs, wantRefs)
	}

	again, err := c.HandleStreamRefs(0x30)
	if err != nil {
		t.Fatalf("HandleStreamRefs (repeat call) failed: %v", err)
	}
	if !refsEqual(again.Refs, wantRefs) {
		t.Fatalf("HandleStreamRefs (repeat call) = %v, want %v", again.Refs, wantRefs)
	}

	if _, err := c.Decode(0x30); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	after, err := c.HandleStreamRefs(0x30)
	if err != nil {
		t.Fatalf("HandleStreamRefs (after Decode) failed: %v", err)
	}
	if !refsEqual(after.Refs, wantRefs) {
		t.Fatalf("HandleStreamRefs (after Decode) = %v, want %v", after.Refs, wantRefs)
	}

	style, err := c.EntityStyle(0x30)
	if err != nil {
		t.Fatalf("EntityStyle failed: %v", err)
	}
	if style.LayerHandle != 0 {
		t.Errorf("expected layer 0x20 absent from the layer index, got LayerHandle=0x%X", style.LayerHandle)
	}
}

func refsEqual(got, want []uint64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
