package dwg

import (
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/classtable"
	"github.com/rkm/dwg/internal/entity"
	"github.com/rkm/dwg/internal/objheader"
	"github.com/rkm/dwg/internal/objmap"
	"github.com/rkm/dwg/internal/section"
	"github.com/rkm/dwg/internal/style"
	"github.com/rkm/dwg/internal/version"
)

// rawCacheSize and entityCacheSize bound the catalog's two write-once-per-
// key LRU caches (spec.md §5). A DWG file's object count can run into the
// hundreds of thousands, so an unbounded map (the teacher's externalFiles
// cache shape) is replaced with a real bound here.
const (
	rawCacheSize    = 8192
	entityCacheSize = 8192
)

// handleState is one node of the decode lifecycle state machine named in
// spec.md §4.8. Transitions are one-way; HEADER_BAD and PAYLOAD_BAD are
// terminal.
type handleState int

const (
	stateHeaderRead handleState = iota
	stateHeaderBad
	statePayloadDecoded
	statePayloadBad
	stateCached
)

// headerEntry is the lazily-consulted object header index entry (spec.md
// §3 "Object header", §4.4).
type headerEntry struct {
	preamble objheader.Preamble
	resolved resolvedType
	hasType  bool
	state    handleState

	// handleStreamBitPos is the absolute bit position where this handle's
	// trailing handle-stream begins, captured once as a side effect of
	// decoding its type-specific payload (the handle-stream's start isn't
	// known until the payload has actually been walked). handleStreamKnown
	// is false until that has happened at least once; a type with no
	// registered decoder never gets one.
	handleStreamBitPos uint64
	handleStreamKnown  bool
}

// Catalog is the open, queryable view of one decoded DWG file (spec.md
// §4.8). Grounded on the teacher's File type (hdf5/file.go): an immutable
// handle to the file's bytes plus lazily populated, write-once caches, with
// Close() releasing the underlying descriptor deterministically.
type Catalog struct {
	path string
	file *os.File
	data []byte

	version  version.Version
	locators map[string]section.Locator
	objMap   *objmap.Map
	classes  *classtable.Table

	headers map[uint64]*headerEntry

	rawCache    *lru.Cache[uint64, objheader.Record]
	entityCache *lru.Cache[uint64, entity.Record]
	layers      *style.LayerIndex

	diagnostics []RecordDiagnostic
	opts        *openOptions
	closed      bool
}

// Open reads path, classifies its version, locates its sections, and
// builds the object map, object header index, class table, and layer
// index eagerly; raw records and decoded entities remain lazy (spec.md §3
// "Lifecycle").
func Open(path string, opts ...OpenOption) (*Catalog, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dwg: opening file: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dwg: reading file: %w", err)
	}

	v, err := version.Probe(data)
	if err != nil {
		f.Close()
		return nil, err
	}

	locators, err := section.Locate(data, v)
	if err != nil {
		f.Close()
		return nil, err
	}
	byName := section.ByName(locators)

	objMapData, err := section.ReadSectionData(data, byName["AcDb:Handles"])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dwg: %w: %w", ErrCRCMismatch, err)
	}
	objMap, err := objmap.Read(objMapData)
	if err != nil {
		f.Close()
		return nil, err
	}

	var classes *classtable.Table
	if !o.skipClassTable {
		classData, err := section.ReadSectionData(data, byName["AcDb:Classes"])
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dwg: %w: %w", ErrCRCMismatch, err)
		}
		classes, err = classtable.Read(classData, v)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	rawCache, err := lru.New[uint64, objheader.Record](rawCacheSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dwg: creating raw record cache: %w", err)
	}
	entityCache, err := lru.New[uint64, entity.Record](entityCacheSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dwg: creating entity cache: %w", err)
	}

	c := &Catalog{
		path:        path,
		file:        f,
		data:        data,
		version:     v,
		locators:    byName,
		objMap:      objMap,
		classes:     classes,
		headers:     make(map[uint64]*headerEntry, objMap.Len()),
		rawCache:    rawCache,
		entityCache: entityCache,
		layers:      style.NewLayerIndex(),
		opts:        o,
	}

	c.buildHeaderIndex()
	c.buildLayerIndex()

	return c, nil
}

// Close releases the catalog's underlying file descriptor. It does not
// clear the in-memory byte buffer, the derived indices or the caches.
// Calling Close again returns nil.
func (c *Catalog) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

// Version reports the file's release signature.
func (c *Catalog) Version() version.Version { return c.version }

// buildHeaderIndex walks the object map in insertion order, reading each
// object's preamble and resolving its type-name. Per spec.md §7 tier 2,
// a preamble failure marks that handle HEADER_BAD and is recorded on the
// diagnostic channel; it never aborts the walk.
func (c *Catalog) buildHeaderIndex() {
	handles := c.objMap.Handles()
	if c.opts.limit > 0 && len(handles) > c.opts.limit {
		handles = handles[:c.opts.limit]
	}

	for _, handle := range handles {
		offset, _ := c.objMap.Get(handle)
		pre, err := objheader.ReadPreamble(c.data, handle, offset, c.version)
		if err != nil {
			c.headers[handle] = &headerEntry{state: stateHeaderBad}
			c.recordDiagnostic(handle, offset, 0, err.Error())
			continue
		}
		resolved, hasType := resolveTypeCode(pre.TypeCode, c.classes)
		c.headers[handle] = &headerEntry{
			preamble: pre,
			resolved: resolved,
			hasType:  hasType,
			state:    stateHeaderRead,
		}
	}
}

// buildLayerIndex decodes every LAYER object's color record so the style
// resolver has something to look up against (spec.md §4.7).
func (c *Catalog) buildLayerIndex() {
	for _, handle := range c.objMap.Handles() {
		entry, ok := c.headers[handle]
		if !ok || entry.state != stateHeaderRead || !entry.hasType {
			continue
		}
		if entry.resolved.Name != "LAYER" {
			continue
		}
		raw, err := c.rawRecord(handle)
		if err != nil {
			continue
		}
		// decodeLayerColor only reads a prefix of the LAYER payload, so its
		// end position isn't the handle-stream start; still, it must never
		// advance the cached record's own reader, which other callers
		// (HandleStreamRefs, EntityStyle) rely on staying at PayloadBitPos.
		rec, err := decodeLayerColor(handle, raw.Reader.At(raw.Reader.BitPos()), c.version)
		if err != nil {
			c.recordDiagnostic(handle, entry.preamble.Offset, entry.preamble.TypeCode, err.Error())
			continue
		}
		c.layers.Add(rec)
	}
}

// rawRecord extracts and CRC-validates handle's raw bit-stream, caching
// the result. A CRC failure transitions the handle to PAYLOAD_BAD and is
// recorded on the diagnostic channel; neighboring handles are unaffected.
func (c *Catalog) rawRecord(handle uint64) (objheader.Record, error) {
	entry, ok := c.headers[handle]
	if !ok {
		return objheader.Record{}, fmt.Errorf("%w: 0x%X", ErrUnknownHandle, handle)
	}
	if entry.state == stateHeaderBad {
		return objheader.Record{}, fmt.Errorf("%w: 0x%X", ErrMalformedRecord, handle)
	}
	if entry.state == statePayloadBad {
		return objheader.Record{}, fmt.Errorf("%w: 0x%X", ErrCRCMismatch, handle)
	}
	if rec, ok := c.rawCache.Get(handle); ok {
		return rec, nil
	}

	rec, err := objheader.Extract(c.data, entry.preamble)
	if err != nil {
		entry.state = statePayloadBad
		c.recordDiagnostic(handle, entry.preamble.Offset, entry.preamble.TypeCode, err.Error())
		return objheader.Record{}, fmt.Errorf("%w: %w", ErrCRCMismatch, err)
	}
	c.rawCache.Add(handle, rec)
	return rec, nil
}

// ReadObject is the raw record query of spec.md §4.8 / §6: (handle,
// offset, size, type-code, bytes). It fails with ErrUnknownHandle when
// handle is absent from the object map.
type ReadObjectResult struct {
	Handle   uint64
	Offset   uint64
	Size     uint64
	TypeCode uint16
	Bytes    []byte
}

// ReadObject returns handle's raw, CRC-validated record.
func (c *Catalog) ReadObject(handle uint64) (ReadObjectResult, error) {
	entry, ok := c.headers[handle]
	if !ok {
		return ReadObjectResult{}, fmt.Errorf("%w: 0x%X", ErrUnknownHandle, handle)
	}
	rec, err := c.rawRecord(handle)
	if err != nil {
		return ReadObjectResult{}, err
	}
	return ReadObjectResult{
		Handle:   handle,
		Offset:   entry.preamble.Offset,
		Size:     entry.preamble.SizeBytes,
		TypeCode: entry.preamble.TypeCode,
		Bytes:    rec.Raw,
	}, nil
}

// Decode resolves handle to a decoded entity record (spec.md §4.8). A
// type-code that cannot be named at all (neither the fixed table nor the
// class table resolves it) or that resolves to a non-entity object fails
// with ErrUnsupportedType; a resolved entity type without a registered
// decoder still succeeds, returning entity.Unknown so the raw bytes
// survive the round trip (spec.md §9 "Dynamic tagged records").
func (c *Catalog) Decode(handle uint64) (entity.Record, error) {
	if rec, ok := c.entityCache.Get(handle); ok {
		return rec, nil
	}

	entry, ok := c.headers[handle]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%X", ErrUnknownHandle, handle)
	}
	if entry.state == stateHeaderBad {
		return nil, fmt.Errorf("%w: 0x%X", ErrMalformedRecord, handle)
	}
	if !entry.hasType {
		return nil, fmt.Errorf("%w: handle 0x%X type-code %s", ErrUnsupportedType, handle, formatTypeCode(entry.preamble.TypeCode))
	}
	if entry.resolved.Class != "entity" {
		return nil, fmt.Errorf("%w: handle 0x%X is a %s, not an entity", ErrUnsupportedType, handle, entry.resolved.Class)
	}

	raw, err := c.rawRecord(handle)
	if err != nil {
		return nil, err
	}

	if !entity.Supported(entry.resolved.Name) {
		rec := entity.NewUnknown(handle, entry.resolved.Name, raw.Raw)
		c.entityCache.Add(handle, rec)
		entry.state = stateCached
		return rec, nil
	}

	// entity.Decode consumes the type-specific payload in place; run it
	// against an independent reader rather than raw.Reader itself, since
	// raw.Reader is cached by handle and every other consumer of this
	// record (HandleStreamRefs, EntityStyle, a repeat Decode) expects to
	// find it still sitting at PayloadBitPos.
	payloadReader := raw.Reader.At(raw.Reader.BitPos())
	rec, err := entity.Decode(handle, entry.resolved.Name, payloadReader, c.version)
	if err != nil {
		entry.state = statePayloadBad
		c.recordDiagnostic(handle, entry.preamble.Offset, entry.preamble.TypeCode, err.Error())
		return nil, err
	}
	// payloadReader now sits exactly at the handle-stream start; capture it
	// before resolveInsertBlockHandle advances it further for INSERT.
	entry.handleStreamBitPos = payloadReader.BitPos()
	entry.handleStreamKnown = true
	if ins, ok := rec.(*entity.Insert); ok {
		resolveInsertBlockHandle(ins, payloadReader, c.version)
	}

	entry.state = stateCached
	c.entityCache.Add(handle, rec)
	return rec, nil
}

// Query returns every decodable entity whose type-name is in types (object
// map order); an empty types list falls back to the catalog's
// WithTypeFilter default, or every supported type when neither is set.
// limit caps the number of records returned; 0 means unlimited. Record-
// local decode failures are skipped, not surfaced, per spec.md §7 tier 2 —
// callers wanting the reason consult Diagnostics().
func (c *Catalog) Query(types []string, limit int) []entity.Record {
	var filter map[string]bool
	if len(types) > 0 {
		filter = make(map[string]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	} else {
		filter = c.opts.typeFilter
	}

	var out []entity.Record
	for _, handle := range c.objMap.Handles() {
		entry, ok := c.headers[handle]
		if !ok || entry.state == stateHeaderBad || !entry.hasType || entry.resolved.Class != "entity" {
			continue
		}
		if filter != nil && !filter[entry.resolved.Name] {
			continue
		}
		if filter == nil && !entity.Supported(entry.resolved.Name) {
			continue
		}
		rec, err := c.Decode(handle)
		if err != nil {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// resolveInsertBlockHandle reads the handle stream trailing an INSERT's
// type payload and, immediately after it, the block-table reference
// original_source/src/entities/insert.rs reads before any owned/attrib
// handles. r is left positioned wherever this consumes it to; nothing
// downstream reads past an INSERT's block handle today, so a short read
// here just leaves BlockHandle unresolved rather than failing decode.
func resolveInsertBlockHandle(ins *entity.Insert, r *bitio.Reader, v version.Version) {
	if _, err := style.ReadHandleStream(r, v, 0, 0); err != nil {
		return
	}
	h, err := r.H()
	if err != nil {
		return
	}
	ins.BlockHandle = h
}

// TotalEntities reports how many object-map handles resolve to a
// supported or Unknown-fallback entity type, without decoding any of
// them — the header index alone is enough to answer it.
func (c *Catalog) TotalEntities() int {
	n := 0
	for _, entry := range c.headers {
		if entry.state != stateHeaderBad && entry.hasType && entry.resolved.Class == "entity" {
			n++
		}
	}
	return n
}
