// Package objmap parses the AcDb:Handles section into the handle -> file
// offset mapping that every later decoding stage looks up into. Grounded
// on the teacher's page/node-based readers (internal/btree/v1_group.go,
// internal/heap/local.go): a signature-less page format consumed in a
// loop, accumulating entries until a terminator page is seen.
package objmap

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/rkm/dwg/internal/bitio"
)

// pageCRCSeed seeds the CRC-16 computed over each page's body.
const pageCRCSeed = 0xC0C1

// shardCount shards the handle->offset table by a fast non-cryptographic
// hash (xxhash) rather than relying on Go's built-in map hash, the way a
// handle-indexed lookup table in a hot decode path would in production:
// fixed shard count keeps per-shard maps small as the handle count grows
// into the hundreds of thousands for large drawings.
const shardCount = 16

// Map is the decoded handle -> offset table, plus the object-map insertion
// order that spec.md requires query() to iterate in.
type Map struct {
	shards     [shardCount]map[uint64]uint64
	order      []uint64
	duplicates int
}

// New creates an empty Map.
func New() *Map {
	m := &Map{}
	for i := range m.shards {
		m.shards[i] = make(map[uint64]uint64)
	}
	return m
}

func shardFor(handle uint64) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], handle)
	return int(xxhash.Sum64(buf[:]) % shardCount)
}

// put inserts handle -> offset. Per spec.md §4.3, duplicate handles follow
// "last wins" (observed writer behavior, not a documented contract); the
// first occurrence fixes the handle's position in iteration order.
func (m *Map) put(handle, offset uint64) {
	shard := m.shards[shardFor(handle)]
	if _, exists := shard[handle]; exists {
		m.duplicates++
	} else {
		m.order = append(m.order, handle)
	}
	shard[handle] = offset
}

// Get looks up the file offset for handle.
func (m *Map) Get(handle uint64) (uint64, bool) {
	off, ok := m.shards[shardFor(handle)][handle]
	return off, ok
}

// Handles returns every handle in object-map insertion order. The returned
// slice is a copy; callers may retain it without aliasing the map's
// internal state.
func (m *Map) Handles() []uint64 {
	out := make([]uint64, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of distinct handles in the map.
func (m *Map) Len() int { return len(m.order) }

// Duplicates returns how many (handle, offset) pairs overwrote an earlier
// entry for the same handle while parsing.
func (m *Map) Duplicates() int { return m.duplicates }

// Read parses the AcDb:Handles section body into a Map. Pages are
// big-endian-size-prefixed; each page's body is a sequence of MC-encoded
// (handle-delta, offset-delta) pairs accumulating against running handle
// and offset values, followed by a CRC-16 over the body. A zero-size page
// terminates the map.
func Read(data []byte) (*Map, error) {
	m := New()
	pos := 0
	var handle, offset int64

	for {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("objmap: %w: truncated page size", bitio.ErrOutOfBounds)
		}
		pageSize := binary.BigEndian.Uint16(data[pos : pos+2])
		pos += 2
		if pageSize == 0 {
			break
		}
		if int(pageSize) < 2 {
			return nil, fmt.Errorf("objmap: page size %d too small for trailing CRC", pageSize)
		}
		bodyEnd := pos + int(pageSize) - 2
		if bodyEnd < pos || bodyEnd+2 > len(data) {
			return nil, fmt.Errorf("objmap: %w: page body out of bounds", bitio.ErrOutOfBounds)
		}

		body := data[pos:bodyEnd]
		storedCRC := binary.BigEndian.Uint16(data[bodyEnd : bodyEnd+2])
		if computed := bitio.CRC16(body, pageCRCSeed); computed != storedCRC {
			return nil, fmt.Errorf("objmap: page ending at byte %d failed CRC validation", bodyEnd)
		}

		r := bitio.NewReader(body)
		for r.Remaining() > 0 {
			handleDelta, err := r.MC()
			if err != nil {
				break
			}
			offsetDelta, err := r.MC()
			if err != nil {
				return nil, fmt.Errorf("objmap: reading offset delta: %w", err)
			}
			handle += handleDelta
			offset += offsetDelta
			m.put(uint64(handle), uint64(offset))
		}

		pos = bodyEnd + 2
	}

	return m, nil
}
