package section

import (
	"encoding/binary"
	"testing"
)

// compressR18Literal encodes data as a single all-literal R18 opcode
// stream (no back-references) — a valid, if poorly compressed, input to
// decompressR18, good enough to exercise the system-section framing
// without needing a real R18 compressor. Bodies of 4-18 bytes take the
// short-literal form; longer bodies, such as every page map / section map
// body in this file's fixtures, take the extended-length prefix the real
// format also uses.
func compressR18Literal(data []byte) []byte {
	n := len(data)
	var out []byte
	switch {
	case n == 0:
		out = append(out, 0x11)
		return out
	case n <= 18:
		out = append(out, byte(n-3))
	default:
		out = append(out, 0x00)
		rem := n - 18
		for rem > 0xFF {
			out = append(out, 0x00)
			rem -= 0xFF
		}
		out = append(out, byte(rem))
	}
	out = append(out, data...)
	return out
}

func systemSectionBytes(signature uint32, body []byte) []byte {
	compressed := compressR18Literal(body)
	hdr := make([]byte, 20)
	binary.LittleEndian.PutUint32(hdr[0:4], signature)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(body)))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(hdr[12:16], 2) // compressed_type: R18
	return append(hdr, compressed...)
}

func pageMapBody(entries [][2]uint32) []byte {
	var out []byte
	for _, e := range entries {
		rec := make([]byte, 8)
		binary.LittleEndian.PutUint32(rec[0:4], e[0])
		binary.LittleEndian.PutUint32(rec[4:8], e[1])
		out = append(out, rec...)
	}
	return out
}

type sectionMapEntrySpec struct {
	name                string
	maxDecompressedSize uint32
	compressed          uint32
	encrypted           uint32
	pageIDs             []uint32
}

func sectionMapBody(entries []sectionMapEntrySpec) []byte {
	out := make([]byte, 0, 128)
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(entries)))
	out = append(out, count...)
	out = append(out, make([]byte, 16)...) // 4 reserved u32 fields

	for _, e := range entries {
		out = append(out, make([]byte, 8)...) // size (unused by the decoder)
		pageCount := make([]byte, 4)
		binary.LittleEndian.PutUint32(pageCount, uint32(len(e.pageIDs)))
		out = append(out, pageCount...)
		mds := make([]byte, 4)
		binary.LittleEndian.PutUint32(mds, e.maxDecompressedSize)
		out = append(out, mds...)
		out = append(out, make([]byte, 4)...) // unknown
		c := make([]byte, 4)
		binary.LittleEndian.PutUint32(c, e.compressed)
		out = append(out, c...)
		out = append(out, make([]byte, 4)...) // section id (unused)
		enc := make([]byte, 4)
		binary.LittleEndian.PutUint32(enc, e.encrypted)
		out = append(out, enc...)
		name := make([]byte, 64)
		copy(name, e.name)
		out = append(out, name...)

		for _, id := range e.pageIDs {
			rec := make([]byte, 16)
			binary.LittleEndian.PutUint32(rec[0:4], id)
			out = append(out, rec...)
		}
	}
	return out
}

func encryptedDataPage(fileOffset uint64, payload []byte) []byte {
	header := make([]byte, 32)
	binary.LittleEndian.PutUint32(header[0:4], dataSectionMagic)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	mask := dataSectionXORBase ^ uint32(fileOffset)
	for i := 0; i < 32; i += 4 {
		v := binary.LittleEndian.Uint32(header[i:i+4]) ^ mask
		binary.LittleEndian.PutUint32(header[i:i+4], v)
	}
	return append(header, payload...)
}

// buildEncryptedFile assembles a full, byte-accurate AC1021+ file: the
// obscured fixed header, one page map, one section map, and one
// uncompressed, unencrypted data page per named section.
func buildEncryptedFile(t *testing.T, sectionPayloads map[string][]byte) []byte {
	t.Helper()

	const sectionMapID = 7
	names := make([]string, 0, len(sectionPayloads))
	for name := range sectionPayloads {
		names = append(names, name)
	}

	// Lay out the section-map page first, then one data page per named
	// section, each addressed by the running total of every prior page's
	// on-disk size — exactly how read_page_map accumulates addresses.
	type placedPage struct {
		id      uint32
		address uint64
		bytes   []byte
	}
	var pages []placedPage
	addr := uint64(0x100)

	entries := make([]sectionMapEntrySpec, 0, len(names))
	nextPageID := uint32(10)
	for _, name := range names {
		payload := sectionPayloads[name]
		pageID := nextPageID
		nextPageID++
		entries = append(entries, sectionMapEntrySpec{
			name:                name,
			maxDecompressedSize: uint32(len(payload)),
			compressed:          0,
			encrypted:           0,
			pageIDs:             []uint32{pageID},
		})
		pages = append(pages, placedPage{id: pageID})
	}

	sectionMapPageBytes := systemSectionBytes(sectionMapMagic, sectionMapBody(entries))
	sectionMapPage := placedPage{id: sectionMapID, address: addr, bytes: sectionMapPageBytes}
	addr += uint64(len(sectionMapPageBytes))

	for i, name := range names {
		payload := sectionPayloads[name]
		pages[i].address = addr
		pages[i].bytes = encryptedDataPage(addr, payload)
		addr += uint64(len(pages[i].bytes))
	}

	// Page map lives after every other page, to keep its own address
	// (header.section_page_map_address + 0x100) distinct from theirs.
	pageMapEntries := [][2]uint32{{sectionMapID, uint32(len(sectionMapPageBytes))}}
	for i, p := range pages {
		pageMapEntries = append(pageMapEntries, [2]uint32{p.id, uint32(len(p.bytes))})
		_ = i
	}
	pageMapPageBytes := systemSectionBytes(sectionPageMapMagic, pageMapBody(pageMapEntries))
	pageMapAddress := addr

	fileLen := int(pageMapAddress) + len(pageMapPageBytes)
	file := make([]byte, fileLen)

	plainHeader := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint64(plainHeader[0x54:0x5C], pageMapAddress-0x100)
	binary.LittleEndian.PutUint32(plainHeader[0x5C:0x60], sectionMapID)
	magic := magicSequence()
	encryptedHeader := make([]byte, fileHeaderSize)
	for i := range encryptedHeader {
		encryptedHeader[i] = plainHeader[i] ^ magic[i]
	}
	copy(file[fileHeaderOffset:fileHeaderOffset+fileHeaderSize], encryptedHeader)

	copy(file[sectionMapPage.address:], sectionMapPage.bytes)
	for _, p := range pages {
		copy(file[p.address:], p.bytes)
	}
	copy(file[pageMapAddress:], pageMapPageBytes)

	return file
}

func TestReadEncryptedResolvesNamedSections(t *testing.T) {
	file := buildEncryptedFile(t, map[string][]byte{
		"AcDb:Header":      bytes32("header-bytes"),
		"AcDb:Classes":     bytes32("classes-bytes"),
		"AcDb:Handles":     bytes32("handle-map-bytes"),
		"AcDb:AcDbObjects": bytes32("object-bytes"),
	})

	locators, err := ReadEncrypted(file)
	if err != nil {
		t.Fatalf("ReadEncrypted failed: %v", err)
	}
	byName := ByName(locators)

	handles, ok := byName["AcDb:Handles"]
	if !ok {
		t.Fatalf("expected AcDb:Handles locator")
	}
	if string(handles.Data) != "handle-map-bytes" {
		t.Errorf("unexpected handles section bytes: %q", handles.Data)
	}
	if !handles.Flags.Encrypted {
		t.Errorf("expected AC1021+ locators to be marked encrypted")
	}

	objects, ok := byName["AcDb:AcDbObjects"]
	if !ok {
		t.Fatalf("expected AcDb:AcDbObjects locator")
	}
	if string(objects.Data) != "object-bytes" {
		t.Errorf("unexpected AcDbObjects section bytes: %q", objects.Data)
	}
}

// bytes32 returns s as a byte slice, unpadded. The data pages that carry
// these bytes are stored uncompressed, so compressR18Literal never sees them.
func bytes32(s string) []byte {
	return []byte(s)
}

func TestReadEncryptedTooShort(t *testing.T) {
	if _, err := ReadEncrypted([]byte{0x01, 0x02}); err == nil {
		t.Errorf("expected error for truncated encrypted header")
	}
}
