package objheader

import (
	"errors"
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
)

// ErrCRCMismatch is returned when a record's trailing checksum does not
// match the computed CRC-16 over its body.
var ErrCRCMismatch = errors.New("objheader: record CRC mismatch")

// Record is the raw, CRC-validated bit-stream for one object, minus its
// framing (the size field and trailing CRC), ready for typed decode.
type Record struct {
	Handle   uint64
	TypeCode uint16
	Reader   *bitio.Reader // positioned at PayloadBitPos, bounded to the record's declared length
	Raw      []byte        // the record body, byte-aligned copy, for diagnostics and read_object
}

// Extract validates pre's CRC and returns the record's payload reader.
// The record body spans from the byte immediately after the MS size field
// through pre.SizeBytes bytes later; a 16-bit CRC-16 immediately follows,
// byte-aligned, covering that span.
func Extract(data []byte, pre Preamble) (Record, error) {
	bodyEndBit := pre.crcBasePos + pre.SizeBytes*8
	if bodyEndBit%8 != 0 {
		// Align up to the next byte for the trailing CRC, matching the
		// format's convention of byte-aligning CRC fields.
		bodyEndBit += 8 - bodyEndBit%8
	}
	bodyStartByte := pre.crcBasePos / 8
	bodyEndByte := bodyEndBit / 8
	if bodyEndByte+2 > uint64(len(data)) {
		return Record{}, fmt.Errorf("objheader: %w: record body exceeds file", bitio.ErrOutOfBounds)
	}

	body := data[bodyStartByte:bodyEndByte]
	storedCRC := uint16(data[bodyEndByte]) | uint16(data[bodyEndByte+1])<<8
	computed := bitio.CRC16(body, 0xC0C1)
	if computed != storedCRC {
		return Record{}, fmt.Errorf("%w: handle 0x%X", ErrCRCMismatch, pre.Handle)
	}

	r := bitio.NewReaderBits(data, bodyEndBit)
	r.SetBitPos(pre.PayloadBitPos)

	return Record{
		Handle:   pre.Handle,
		TypeCode: pre.TypeCode,
		Reader:   r,
		Raw:      body,
	}, nil
}
