package dwg

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/entity"
	"github.com/rkm/dwg/internal/objheader"
	"github.com/rkm/dwg/internal/style"
	"github.com/rkm/dwg/internal/version"
)

// clampLimit truncates s to limit entries when limit > 0.
func clampLimit[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// SectionLocatorTuple is the (name, offset, size) raw projection of §6.
type SectionLocatorTuple struct {
	Name   string
	Offset uint64
	Size   uint64
}

// SectionLocators returns every located section, in no particular order
// beyond what the underlying map iteration yields — sections are not
// handle-ordered data, so spec.md's ordering guarantee does not apply here.
func (c *Catalog) SectionLocators(limit int) []SectionLocatorTuple {
	out := make([]SectionLocatorTuple, 0, len(c.locators))
	for _, loc := range c.locators {
		out = append(out, SectionLocatorTuple{Name: loc.Name, Offset: loc.Offset, Size: loc.Size})
	}
	return clampLimit(out, limit)
}

// ObjectMapTuple is the (handle, offset) raw projection of §6.
type ObjectMapTuple struct {
	Handle uint64
	Offset uint64
}

// ObjectMap returns the handle->offset table in object-map insertion order.
func (c *Catalog) ObjectMap(limit int) []ObjectMapTuple {
	handles := c.objMap.Handles()
	out := make([]ObjectMapTuple, 0, len(handles))
	for _, h := range handles {
		off, _ := c.objMap.Get(h)
		out = append(out, ObjectMapTuple{Handle: h, Offset: off})
	}
	return clampLimit(out, limit)
}

// ObjectHeaderTuple is the (handle, offset, size, type-code[, type-name,
// class]) raw projection of §6.
type ObjectHeaderTuple struct {
	Handle   uint64
	Offset   uint64
	Size     uint64
	TypeCode uint16
	TypeName string
	Class    string
}

// ObjectHeaders returns the object header index in object-map order,
// including handles whose preamble failed to parse (TypeName/Class empty).
func (c *Catalog) ObjectHeaders(limit int) []ObjectHeaderTuple {
	out := make([]ObjectHeaderTuple, 0, len(c.headers))
	for _, h := range c.objMap.Handles() {
		entry, ok := c.headers[h]
		if !ok {
			continue
		}
		t := ObjectHeaderTuple{Handle: h}
		if entry.state != stateHeaderBad {
			t.Offset = entry.preamble.Offset
			t.Size = entry.preamble.SizeBytes
			t.TypeCode = entry.preamble.TypeCode
			if entry.hasType {
				t.TypeName = entry.resolved.Name
				t.Class = entry.resolved.Class
			}
		}
		out = append(out, t)
	}
	return clampLimit(out, limit)
}

// handleStreamRecord returns handle's raw record together with the
// header entry recording where its handle-stream begins, decoding the
// handle first if that position hasn't been established yet. The reader
// callers read from must always be a fresh copy seeked to
// entry.handleStreamBitPos (via raw.Reader.At) — raw.Reader itself is the
// cached, shared instance other callers expect to find untouched at
// PayloadBitPos.
func (c *Catalog) handleStreamRecord(handle uint64) (objheader.Record, *headerEntry, error) {
	entry, ok := c.headers[handle]
	if !ok || entry.state == stateHeaderBad {
		return objheader.Record{}, nil, fmt.Errorf("%w: 0x%X", ErrUnknownHandle, handle)
	}
	if !entry.handleStreamKnown {
		if _, err := c.Decode(handle); err != nil {
			return objheader.Record{}, nil, fmt.Errorf("dwg: resolving handle-stream start: %w", err)
		}
		if !entry.handleStreamKnown {
			return objheader.Record{}, nil, fmt.Errorf("%w: handle 0x%X has no decodable handle-stream start", ErrUnsupportedType, handle)
		}
	}
	raw, err := c.rawRecord(handle)
	if err != nil {
		return objheader.Record{}, nil, err
	}
	return raw, entry, nil
}

// HandleStreamTuple is the (handle, [ref-handle...]) raw projection of §6,
// decoding the handle-stream that trails a handle's type-specific payload.
type HandleStreamTuple struct {
	Handle uint64
	Refs   []uint64
}

// HandleStreamRefs decodes handle's trailing handle-stream and flattens it
// into an ordered list of resolved absolute handles: owner, reactors,
// xdictionary, layer, linetype, material, plotstyle, colorbook,
// subentities, in that fixed order.
func (c *Catalog) HandleStreamRefs(handle uint64) (HandleStreamTuple, error) {
	raw, entry, err := c.handleStreamRecord(handle)
	if err != nil {
		return HandleStreamTuple{}, err
	}

	hs, err := style.ReadHandleStream(raw.Reader.At(entry.handleStreamBitPos), c.version, 0, 0)
	if err != nil {
		return HandleStreamTuple{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	refs := []uint64{hs.Owner.Resolve(handle)}
	for _, r := range hs.Reactors {
		refs = append(refs, r.Resolve(handle))
	}
	refs = append(refs,
		hs.XDictionary.Resolve(handle),
		hs.Layer.Resolve(handle),
		hs.Linetype.Resolve(handle),
	)
	if c.version.HasMaterialFlag() {
		refs = append(refs, hs.Material.Resolve(handle))
	}
	refs = append(refs, hs.PlotStyle.Resolve(handle), hs.ColorBook.Resolve(handle))
	for _, s := range hs.Subentities {
		refs = append(refs, s.Resolve(handle))
	}

	return HandleStreamTuple{Handle: handle, Refs: refs}, nil
}

// EntityStyleTuple is the (handle, color-index?, true-color?, layer-handle)
// raw projection of §6.
type EntityStyleTuple struct {
	Handle      uint64
	ColorIndex  uint8
	TrueColor   *uint32
	LayerHandle uint64
}

// EntityStyle resolves handle's effective style by reading its handle
// stream and cross-referencing the layer index built at Open (spec.md
// §4.7). The entity's own CMC color field lives in the common entity data
// that precedes the handle stream, which none of this decoder's type
// decoders model (they start reading directly at the type-specific
// payload, by established convention). Without it, the entity's own color
// is treated as the "by layer" sentinel, so the resolved style always
// reflects the layer's color; a real own-color override is a known
// simplification.
func (c *Catalog) EntityStyle(handle uint64) (EntityStyleTuple, error) {
	raw, entry, err := c.handleStreamRecord(handle)
	if err != nil {
		return EntityStyleTuple{}, err
	}

	hs, err := style.ReadHandleStream(raw.Reader.At(entry.handleStreamBitPos), c.version, 0, 0)
	if err != nil {
		return EntityStyleTuple{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	byLayer := bitio.ColorRef{Index: 256}
	resolved := style.Resolve(handle, hs.Layer, byLayer, c.layers)
	return EntityStyleTuple{
		Handle:      handle,
		ColorIndex:  resolved.ColorIndex,
		TrueColor:   resolved.TrueColor,
		LayerHandle: resolved.LayerHandle,
	}, nil
}

// LayerColorTuple is the (handle, color-index, true-color?) raw projection
// of §6.
type LayerColorTuple struct {
	Handle     uint64
	ColorIndex uint8
	TrueColor  *uint32
}

// LayerColors returns every decoded LAYER record's own color, in
// object-map order.
func (c *Catalog) LayerColors(limit int) []LayerColorTuple {
	var out []LayerColorTuple
	for _, h := range c.objMap.Handles() {
		entry, ok := c.headers[h]
		if !ok || entry.state == stateHeaderBad || !entry.hasType || entry.resolved.Name != "LAYER" {
			continue
		}
		rec, ok := c.layers.Get(h)
		if !ok {
			continue
		}
		out = append(out, LayerColorTuple{Handle: h, ColorIndex: rec.ColorIndex, TrueColor: rec.TrueColor})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// LineTuple is the (handle, sx, sy, sz, ex, ey, ez) raw projection of §6.
type LineTuple struct {
	Handle                 uint64
	SX, SY, SZ, EX, EY, EZ float64
}

// Lines returns the raw tuple projection of every LINE entity.
func (c *Catalog) Lines(limit int) []LineTuple {
	var out []LineTuple
	for _, rec := range c.Query([]string{"LINE"}, 0) {
		l := rec.(*entity.Line)
		out = append(out, LineTuple{
			Handle: l.Handle(),
			SX:     l.Start.X, SY: l.Start.Y, SZ: l.Start.Z,
			EX: l.End.X, EY: l.End.Y, EZ: l.End.Z,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ArcTuple is the (handle, cx, cy, cz, r, start-rad, end-rad) raw
// projection of §6.
type ArcTuple struct {
	Handle               uint64
	CX, CY, CZ           float64
	R                    float64
	StartRad, EndRad     float64
}

// Arcs returns the raw tuple projection of every ARC entity.
func (c *Catalog) Arcs(limit int) []ArcTuple {
	var out []ArcTuple
	for _, rec := range c.Query([]string{"ARC"}, 0) {
		a := rec.(*entity.Arc)
		out = append(out, ArcTuple{
			Handle: a.Handle(),
			CX:     a.Center.X, CY: a.Center.Y, CZ: a.Center.Z,
			R:        a.Radius,
			StartRad: a.StartAngle, EndRad: a.EndAngle,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// CircleTuple is the (handle, cx, cy, cz, r) raw projection of §6.
type CircleTuple struct {
	Handle     uint64
	CX, CY, CZ float64
	R          float64
}

// Circles returns the raw tuple projection of every CIRCLE entity.
func (c *Catalog) Circles(limit int) []CircleTuple {
	var out []CircleTuple
	for _, rec := range c.Query([]string{"CIRCLE"}, 0) {
		ci := rec.(*entity.Circle)
		out = append(out, CircleTuple{Handle: ci.Handle(), CX: ci.Center.X, CY: ci.Center.Y, CZ: ci.Center.Z, R: ci.Radius})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// PointTuple is the (handle, x, y, z, thickness) raw projection of §6.
type PointTuple struct {
	Handle       uint64
	X, Y, Z      float64
	Thickness    float64
}

// Points returns the raw tuple projection of every POINT entity.
func (c *Catalog) Points(limit int) []PointTuple {
	var out []PointTuple
	for _, rec := range c.Query([]string{"POINT"}, 0) {
		p := rec.(*entity.Point)
		out = append(out, PointTuple{Handle: p.Handle(), X: p.Location.X, Y: p.Location.Y, Z: p.Location.Z, Thickness: p.Thickness})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// LWPolylineTuple is the (handle, flags, points, bulges, widths,
// const-width?) raw projection of §6.
type LWPolylineTuple struct {
	Handle     uint64
	Closed     bool
	Points     [][2]float64
	Bulges     []float64
	Widths     [][2]float64
	ConstWidth *float64
}

// LWPolylines returns the raw tuple projection of every LWPOLYLINE entity.
func (c *Catalog) LWPolylines(limit int) []LWPolylineTuple {
	var out []LWPolylineTuple
	for _, rec := range c.Query([]string{"LWPOLYLINE"}, 0) {
		p := rec.(*entity.LWPolyline)
		t := LWPolylineTuple{Handle: p.Handle(), Closed: p.Closed}
		for _, pt := range p.Points {
			t.Points = append(t.Points, [2]float64{pt.X, pt.Y})
		}
		t.Bulges = append(t.Bulges, p.Bulges...)
		for _, w := range p.Widths {
			t.Widths = append(t.Widths, [2]float64{w.Start, w.End})
		}
		if p.ConstWidth != 0 {
			cw := p.ConstWidth
			t.ConstWidth = &cw
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// InsertTuple is the (handle, x, y, z, xs, ys, zs, rot, block-name?) raw
// projection of §6. It carries BlockHandle, the block reference's raw
// handle, in place of a block name: resolving a block handle to its name
// requires decoding the block table, which is outside this decoder's
// entity set.
type InsertTuple struct {
	Handle                 uint64
	X, Y, Z                float64
	XS, YS, ZS             float64
	Rotation               float64
	BlockHandle            uint64
}

// Inserts returns the raw tuple projection of every INSERT entity.
func (c *Catalog) Inserts(limit int) []InsertTuple {
	var out []InsertTuple
	for _, rec := range c.Query([]string{"INSERT"}, 0) {
		ins := rec.(*entity.Insert)
		out = append(out, InsertTuple{
			Handle: ins.Handle(),
			X:      ins.InsertionPoint.X, Y: ins.InsertionPoint.Y, Z: ins.InsertionPoint.Z,
			XS: ins.XScale, YS: ins.YScale, ZS: ins.ZScale,
			Rotation:    ins.Rotation,
			BlockHandle: ins.BlockHandle.Resolve(ins.Handle()),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// VersionTuple is the (version-code) raw projection of §6.
func (c *Catalog) VersionTuple() version.Version { return c.version }
