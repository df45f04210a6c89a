package section

import "fmt"

// decompressR18 decodes Autodesk's R18 (AC1021+) compression scheme: a
// literal-run/back-reference opcode stream used for both of the file
// header's fixed system sections (the page map, the section map) and for
// individual data-section pages. It is hand-rolled the way the teacher
// hand-rolls its own checksum algorithm (internal/binary/checksum.go)
// rather than delegating to compress/flate — this is not a DEFLATE
// stream, it is Autodesk's own opcode table, grounded on
// original_source/src/dwg/r2004.rs's decompress_r18.
//
// The first opcode is always a literal-length prefix (no leading
// back-reference); afterward, each loop iteration consumes one
// back-reference opcode (0x10, 0x11, 0x12-0x1F, 0x20, 0x21-0x3F, or
// 0x40-0xFF, each with its own offset/length bit-width) followed by the
// literal run it chains to. Opcode 0x11 ends the stream.
func decompressR18(src []byte, dstSize int) ([]byte, error) {
	dst := make([]byte, 0, dstSize)
	cur := &lz77Cursor{data: src}

	literalLen, opcode1, err := readLiteralLength(cur)
	if err != nil {
		return nil, err
	}
	if dst, err = copyLiteral(dst, cur, literalLen); err != nil {
		return nil, err
	}

loop:
	for cur.pos < len(src) {
		if opcode1 == 0x00 {
			if opcode1, err = cur.readByte(); err != nil {
				return nil, err
			}
		}

		var compBytes, compOffset, nextLiteralLen int
		var nextOpcode1 byte

		switch {
		case opcode1 == 0x10:
			extra, err := readLongCompressionOffset(cur)
			if err != nil {
				return nil, err
			}
			compBytes = extra + 9
			offset, literalCount, err := readTwoByteOffset(cur)
			if err != nil {
				return nil, err
			}
			compOffset = offset + 0x3FFF
			if literalCount == 0 {
				if nextLiteralLen, nextOpcode1, err = readLiteralLength(cur); err != nil {
					return nil, err
				}
			} else {
				nextLiteralLen = literalCount
			}

		case opcode1 == 0x11:
			break loop

		case opcode1 >= 0x12 && opcode1 <= 0x1F:
			compBytes = int(opcode1&0x0F) + 2
			offset, literalCount, err := readTwoByteOffset(cur)
			if err != nil {
				return nil, err
			}
			compOffset = offset + 0x3FFF
			if literalCount == 0 {
				if nextLiteralLen, nextOpcode1, err = readLiteralLength(cur); err != nil {
					return nil, err
				}
			} else {
				nextLiteralLen = literalCount
			}

		case opcode1 == 0x20:
			extra, err := readLongCompressionOffset(cur)
			if err != nil {
				return nil, err
			}
			compBytes = extra + 0x21
			offset, literalCount, err := readTwoByteOffset(cur)
			if err != nil {
				return nil, err
			}
			compOffset = offset
			if literalCount == 0 {
				if nextLiteralLen, nextOpcode1, err = readLiteralLength(cur); err != nil {
					return nil, err
				}
			} else {
				nextLiteralLen = literalCount
			}

		case opcode1 >= 0x21 && opcode1 <= 0x3F:
			compBytes = int(opcode1) - 0x1E
			offset, literalCount, err := readTwoByteOffset(cur)
			if err != nil {
				return nil, err
			}
			compOffset = offset
			if literalCount == 0 {
				if nextLiteralLen, nextOpcode1, err = readLiteralLength(cur); err != nil {
					return nil, err
				}
			} else {
				nextLiteralLen = literalCount
			}

		case opcode1 >= 0x40:
			compBytes = int((opcode1&0xF0)>>4) - 1
			b2, err := cur.readByte()
			if err != nil {
				return nil, err
			}
			compOffset = (int(b2) << 2) | (int(opcode1&0x0C) >> 2)
			if opcode1&0x03 != 0 {
				nextLiteralLen = int(opcode1 & 0x03)
			} else {
				if nextLiteralLen, nextOpcode1, err = readLiteralLength(cur); err != nil {
					return nil, err
				}
			}

		default:
			return nil, fmt.Errorf("dwg: invalid r18 compression opcode 0x%02X", opcode1)
		}

		if dst, err = copyBackReference(dst, compOffset+1, compBytes); err != nil {
			return nil, err
		}
		if dst, err = copyLiteral(dst, cur, nextLiteralLen); err != nil {
			return nil, err
		}
		opcode1 = nextOpcode1
	}

	switch {
	case len(dst) > dstSize:
		dst = dst[:dstSize]
	case len(dst) < dstSize:
		dst = append(dst, make([]byte, dstSize-len(dst))...)
	}
	return dst, nil
}

// lz77Cursor is a forward-only byte cursor over the compressed input,
// mirroring the Cursor helper r2004.rs uses for the same opcode reader.
type lz77Cursor struct {
	data []byte
	pos  int
}

func (c *lz77Cursor) readByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, fmt.Errorf("dwg: r18 compressed stream exhausted")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// readLiteralLength reads the prefix byte that either names a short
// literal run directly (0x01-0x0F), an extended literal run (0x00
// followed by a length-extension chain), or hands back a fresh
// back-reference opcode (any byte with its high nibble set) for the
// caller to dispatch on next.
func readLiteralLength(cur *lz77Cursor) (int, byte, error) {
	b, err := cur.readByte()
	if err != nil {
		return 0, 0, err
	}
	switch {
	case b >= 0x01 && b <= 0x0F:
		return int(b) + 3, 0, nil
	case b&0xF0 != 0:
		return 0, b, nil
	default: // b == 0x00
		length := 0x0F
		next, err := cur.readByte()
		if err != nil {
			return 0, 0, err
		}
		for next == 0x00 {
			length += 0xFF
			if next, err = cur.readByte(); err != nil {
				return 0, 0, err
			}
		}
		length += int(next) + 3
		return length, 0, nil
	}
}

// readLongCompressionOffset reads a base-0xFF-chained extension value
// used by opcodes 0x10 and 0x20 to carry a match length wider than the
// opcode's inline nibble.
func readLongCompressionOffset(cur *lz77Cursor) (int, error) {
	value := 0
	b, err := cur.readByte()
	if err != nil {
		return 0, err
	}
	if b == 0x00 {
		value = 0xFF
		for {
			if b, err = cur.readByte(); err != nil {
				return 0, err
			}
			if b != 0x00 {
				break
			}
			value += 0xFF
		}
	}
	return value + int(b), nil
}

// readTwoByteOffset reads the two-byte (offset, trailing-literal-count)
// pair that every multi-byte back-reference opcode carries: the offset's
// low bits share a byte with the literal count that follows the match.
func readTwoByteOffset(cur *lz77Cursor) (int, int, error) {
	b1, err := cur.readByte()
	if err != nil {
		return 0, 0, err
	}
	b2, err := cur.readByte()
	if err != nil {
		return 0, 0, err
	}
	value := int(b1>>2) | (int(b2) << 6)
	literalCount := int(b1 & 0x03)
	return value, literalCount, nil
}

// copyLiteral appends the next length bytes read directly from the
// compressed stream (not a back-reference) to dst.
func copyLiteral(dst []byte, cur *lz77Cursor, length int) ([]byte, error) {
	if length == 0 {
		return dst, nil
	}
	end := cur.pos + length
	if end > len(cur.data) {
		return nil, fmt.Errorf("dwg: r18 literal run exceeds compressed data")
	}
	dst = append(dst, cur.data[cur.pos:end]...)
	cur.pos = end
	return dst, nil
}

// copyBackReference appends length bytes copied from offset bytes behind
// the current end of dst. An offset beyond what has been produced so far
// is a corrupt stream; rather than failing the whole section, it is
// zero-filled and decoding continues, matching the original decoder's
// tolerance for the malformed blocks seen in the wild.
func copyBackReference(dst []byte, offset, length int) ([]byte, error) {
	if length == 0 {
		return dst, nil
	}
	dstIdx := len(dst)
	if offset > dstIdx {
		return append(dst, make([]byte, length)...), nil
	}
	for i := 0; i < length; i++ {
		dst = append(dst, dst[dstIdx-offset+i])
	}
	return dst, nil
}
