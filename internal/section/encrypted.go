package section

import (
	"encoding/binary"
	"fmt"
)

// Layout constants for the AC1021+ (R2004 and later) file header, grounded
// on original_source/src/dwg/r2004.rs.
const (
	fileHeaderOffset = 0x80
	fileHeaderSize   = 0x6c

	sectionPageMapMagic uint32 = 0x41630E3B
	sectionMapMagic     uint32 = 0x4163003B
	dataSectionMagic    uint32 = 0x4163043B

	// dataSectionXORBase is XORed against a data-section page's own file
	// offset to derive that page's 32-byte header mask.
	dataSectionXORBase uint32 = 0x4164536B
)

// magicSequence reproduces the fixed keystream every AC1021+ writer XORs
// the 0x6c-byte encrypted file header against: an MSVC rand()-style linear
// congruential generator seeded at 1, one output byte per step taken from
// the state's high half.
func magicSequence() [fileHeaderSize]byte {
	var seq [fileHeaderSize]byte
	var randseed uint32 = 1
	for i := range seq {
		randseed = randseed*0x343fd + 0x269ec3
		seq[i] = byte(randseed >> 16)
	}
	return seq
}

// fileHeaderData is the handful of fields the decrypted file header
// carries that the rest of ReadEncrypted needs: where the page map lives,
// and which page map entry is the section map itself.
type fileHeaderData struct {
	sectionPageMapAddress uint64
	sectionMapID          uint32
}

func readFileHeaderData(data []byte) (fileHeaderData, error) {
	if len(data) < fileHeaderOffset+fileHeaderSize {
		return fileHeaderData{}, fmt.Errorf("%w: file too small for AC1021+ header", ErrSentinelInvalid)
	}
	encrypted := data[fileHeaderOffset : fileHeaderOffset+fileHeaderSize]
	magic := magicSequence()
	decrypted := make([]byte, fileHeaderSize)
	for i := range decrypted {
		decrypted[i] = encrypted[i] ^ magic[i]
	}

	// The fields this decoder needs start at 0x50: a section-page-map id
	// this decoder doesn't use, the section-page-map address, and the
	// section-map id.
	const fieldsStart = 0x50
	if len(decrypted) < fieldsStart+4+8+4 {
		return fileHeaderData{}, fmt.Errorf("%w: AC1021+ header too short for locator fields", ErrSentinelInvalid)
	}
	pos := fieldsStart + 4
	sectionPageMapAddress := binary.LittleEndian.Uint64(decrypted[pos : pos+8])
	pos += 8
	sectionMapID := binary.LittleEndian.Uint32(decrypted[pos : pos+4])

	return fileHeaderData{
		sectionPageMapAddress: sectionPageMapAddress,
		sectionMapID:          sectionMapID,
	}, nil
}

// readSystemSection reads and, if needed, decompresses one of the file's
// two fixed system sections (the page map or the section map), each
// framed by its own 20-byte header: signature, decompressed size,
// compressed size, compression type, checksum.
func readSystemSection(data []byte, address uint64, expectedSignature uint32) ([]byte, error) {
	offset := int(address)
	if offset+20 > len(data) {
		return nil, fmt.Errorf("%w: system section header out of range", ErrSentinelInvalid)
	}
	signature := binary.LittleEndian.Uint32(data[offset : offset+4])
	decompressedSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
	compressedSize := binary.LittleEndian.Uint32(data[offset+8 : offset+12])
	compressedType := binary.LittleEndian.Uint32(data[offset+12 : offset+16])
	if signature != expectedSignature {
		return nil, fmt.Errorf("%w: unexpected system section signature", ErrSentinelInvalid)
	}

	dataStart := offset + 20
	dataEnd := dataStart + int(compressedSize)
	if dataEnd > len(data) {
		return nil, fmt.Errorf("%w: system section data out of range", ErrSentinelInvalid)
	}
	if compressedSize == 0 {
		return nil, nil
	}
	switch compressedType {
	case 2:
		return decompressR18(data[dataStart:dataEnd], int(decompressedSize))
	default:
		return nil, fmt.Errorf("%w: unsupported system section compression type %d", ErrSentinelInvalid, compressedType)
	}
}

// pageMapEntry is one record of the decompressed page map: a page id
// (negative ids mark a 16-byte gap record this decoder skips over, never
// a usable page) and that page's absolute file offset.
type pageMapEntry struct {
	id      int32
	address uint64
}

// readPageMap decodes the page map section at header's declared address,
// accumulating each entry's absolute file offset from a running total of
// every prior page's declared size.
func readPageMap(data []byte, hdr fileHeaderData) ([]pageMapEntry, error) {
	body, err := readSystemSection(data, hdr.sectionPageMapAddress+0x100, sectionPageMapMagic)
	if err != nil {
		return nil, fmt.Errorf("reading section page map: %w", err)
	}

	var entries []pageMapEntry
	pageAddress := uint64(0x100)
	pos := 0
	for pos+8 <= len(body) {
		id := int32(binary.LittleEndian.Uint32(body[pos : pos+4]))
		size := binary.LittleEndian.Uint32(body[pos+4 : pos+8])
		pos += 8
		entries = append(entries, pageMapEntry{id: id, address: pageAddress})
		pageAddress += uint64(size)
		if id < 0 {
			if pos+16 > len(body) {
				return nil, fmt.Errorf("%w: page map gap entry truncated", ErrSentinelInvalid)
			}
			pos += 16
		}
	}
	return entries, nil
}

func pageLookup(pageMap []pageMapEntry) map[uint32]pageMapEntry {
	m := make(map[uint32]pageMapEntry, len(pageMap))
	for _, e := range pageMap {
		if e.id > 0 {
			m[uint32(e.id)] = e
		}
	}
	return m
}

// sectionPageInfo names one page (by id, into the page map) a section's
// bytes are split across, in order.
type sectionPageInfo struct {
	pageID uint32
}

// sectionEntry is one named data section as declared by the section map:
// its maximum decompressed size per page, the ordered pages carrying its bytes, and the
// compressed/encrypted flags every one of those pages shares.
type sectionEntry struct {
	maxDecompressedSize uint32
	compressed          uint32
	encrypted           uint32
	name                string
	pages               []sectionPageInfo
}

// readSectionMap decodes the section map page named by hdr.sectionMapID,
// yielding every named data section's page list.
func readSectionMap(data []byte, hdr fileHeaderData, pageMap []pageMapEntry) ([]sectionEntry, error) {
	var mapPage *pageMapEntry
	for i := range pageMap {
		if pageMap[i].id == int32(hdr.sectionMapID) {
			mapPage = &pageMap[i]
			break
		}
	}
	if mapPage == nil {
		return nil, fmt.Errorf("%w: section map page not found in page map", ErrSentinelInvalid)
	}

	body, err := readSystemSection(data, mapPage.address, sectionMapMagic)
	if err != nil {
		return nil, fmt.Errorf("reading section map: %w", err)
	}
	if len(body) < 20 {
		return nil, fmt.Errorf("%w: section map header truncated", ErrSentinelInvalid)
	}
	entryCount := binary.LittleEndian.Uint32(body[0:4])
	pos := 20 // entry count + 4 reserved u32 fields this decoder ignores

	entries := make([]sectionEntry, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		const entryHeaderSize = 8 + 4 + 4 + 4 + 4 + 4 + 4 + 64 // size u64, page_count, max_decompressed_size, unknown, compressed, section_id, encrypted, name[64]
		if pos+entryHeaderSize > len(body) {
			return nil, fmt.Errorf("%w: section map entry truncated", ErrSentinelInvalid)
		}
		pageCount := binary.LittleEndian.Uint32(body[pos+8 : pos+12])
		maxDecompressedSize := binary.LittleEndian.Uint32(body[pos+12 : pos+16])
		compressed := binary.LittleEndian.Uint32(body[pos+20 : pos+24])
		encrypted := binary.LittleEndian.Uint32(body[pos+28 : pos+32])
		name := readCString(body[pos+32 : pos+96])
		pos += entryHeaderSize

		pages := make([]sectionPageInfo, 0, pageCount)
		for j := uint32(0); j < pageCount; j++ {
			const pageInfoSize = 4 + 4 + 8 // page_id, data_size, start_offset
			if pos+pageInfoSize > len(body) {
				return nil, fmt.Errorf("%w: section page info truncated", ErrSentinelInvalid)
			}
			pageID := binary.LittleEndian.Uint32(body[pos : pos+4])
			pos += pageInfoSize
			pages = append(pages, sectionPageInfo{pageID: pageID})
		}

		entries = append(entries, sectionEntry{
			maxDecompressedSize: maxDecompressedSize,
			compressed:          compressed,
			encrypted:           encrypted,
			name:                name,
			pages:               pages,
		})
	}
	return entries, nil
}

func readCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// decryptDataSectionPageHeader reverses the per-page XOR obscuring a data
// section page's 32-byte header: each 4-byte little-endian word is masked
// with dataSectionXORBase XORed against the page's own file offset.
func decryptDataSectionPageHeader(b []byte, offset uint64) [32]byte {
	var out [32]byte
	copy(out[:], b)
	mask := dataSectionXORBase ^ uint32(offset)
	for i := 0; i < 32; i += 4 {
		v := binary.LittleEndian.Uint32(out[i:i+4]) ^ mask
		binary.LittleEndian.PutUint32(out[i:i+4], v)
	}
	return out
}

// loadSectionData assembles one named data section's decompressed bytes
// from its ordered pages, each framed by its own XOR-obscured 32-byte
// page header ahead of the (optionally compressed) page payload.
func loadSectionData(data []byte, sec sectionEntry, pages map[uint32]pageMapEntry) ([]byte, error) {
	if sec.encrypted == 1 {
		return nil, fmt.Errorf("%w: encrypted AC1021+ data sections are not supported", ErrSentinelInvalid)
	}
	pageSize := int(sec.maxDecompressedSize)
	total := pageSize * len(sec.pages)
	if total == 0 {
		// Locator.Data must stay non-nil for an encrypted-family locator
		// even when empty, since ReadSectionData uses nilness to tell
		// the two locator families apart.
		return []byte{}, nil
	}
	out := make([]byte, total)

	for i, p := range sec.pages {
		entry, ok := pages[p.pageID]
		if !ok {
			return nil, fmt.Errorf("%w: section page not found in page map", ErrSentinelInvalid)
		}
		pageOffset := int(entry.address)
		if pageOffset+32 > len(data) {
			return nil, fmt.Errorf("%w: data section page header out of range", ErrSentinelInvalid)
		}
		header := decryptDataSectionPageHeader(data[pageOffset:pageOffset+32], entry.address)
		signature := binary.LittleEndian.Uint32(header[0:4])
		compressedSize := binary.LittleEndian.Uint32(header[8:12])
		if signature != dataSectionMagic {
			return nil, fmt.Errorf("%w: invalid data section page signature", ErrSentinelInvalid)
		}

		dataStart := pageOffset + 32
		dataEnd := dataStart + int(compressedSize)
		if dataEnd > len(data) {
			return nil, fmt.Errorf("%w: data section page data out of range", ErrSentinelInvalid)
		}
		raw := data[dataStart:dataEnd]

		var decompressed []byte
		var err error
		if sec.compressed == 2 {
			decompressed, err = decompressR18(raw, pageSize)
			if err != nil {
				return nil, fmt.Errorf("decompressing section %q page %d: %w", sec.name, i, err)
			}
		} else {
			decompressed = raw
		}

		start := i * pageSize
		if start >= len(out) {
			continue
		}
		end := start + len(decompressed)
		if end > len(out) {
			end = len(out)
		}
		copy(out[start:end], decompressed[:end-start])
	}
	return out, nil
}

// ReadEncrypted parses the AC1021+ (R2004 and later) file header: its
// XOR-obscured fixed-size preamble, the page map and section map it
// points to, and every named data section's pages — fully assembling
// each section's decompressed bytes up front, since resolving them again
// later would mean re-walking the same page/section map machinery.
func ReadEncrypted(data []byte) ([]Locator, error) {
	hdr, err := readFileHeaderData(data)
	if err != nil {
		return nil, err
	}
	rawPageMap, err := readPageMap(data, hdr)
	if err != nil {
		return nil, err
	}
	sections, err := readSectionMap(data, hdr, rawPageMap)
	if err != nil {
		return nil, err
	}
	pages := pageLookup(rawPageMap)

	locators := make([]Locator, 0, len(sections))
	for _, sec := range sections {
		body, err := loadSectionData(data, sec, pages)
		if err != nil {
			return nil, fmt.Errorf("loading section %q: %w", sec.name, err)
		}
		locators = append(locators, Locator{
			Name: sec.name,
			Size: uint64(len(body)),
			Data: body,
			Flags: Flags{
				Compressed: sec.compressed == 2,
				Encrypted:  true,
			},
		})
	}
	return locators, nil
}
