package style

import "github.com/rkm/dwg/internal/bitio"

// LayerRecord is the decoded style-relevant subset of a LAYER object:
// enough to resolve an entity's effective style without decoding the
// full LAYER schema (line type, plot flags, lock state, etc. are outside
// this decoder's scope).
type LayerRecord struct {
	Handle     uint64
	ColorIndex uint8
	TrueColor  *uint32
}

// LayerIndex is the write-once-per-key cache of decoded layers that the
// style resolver consults. Populated as LAYER objects are decoded;
// absent from spec.md's Data Model as a named type, but required by
// §4.7 ("cached layer index previously built by decoding all LAYER
// objects").
type LayerIndex struct {
	byHandle map[uint64]LayerRecord
}

// NewLayerIndex creates an empty layer index.
func NewLayerIndex() *LayerIndex {
	return &LayerIndex{byHandle: make(map[uint64]LayerRecord)}
}

// Add inserts rec, first write wins: once a layer's style is published,
// later insertions for the same handle are no-ops, matching the write-once
// cache discipline spec.md §5 requires of every catalog cache.
func (idx *LayerIndex) Add(rec LayerRecord) {
	if _, exists := idx.byHandle[rec.Handle]; exists {
		return
	}
	idx.byHandle[rec.Handle] = rec
}

// Get looks up a layer's record by handle.
func (idx *LayerIndex) Get(handle uint64) (LayerRecord, bool) {
	rec, ok := idx.byHandle[handle]
	return rec, ok
}

// Style is the resolved (color-index, true-color, layer-handle) triple
// spec.md §4.7 names.
type Style struct {
	ColorIndex  uint8
	TrueColor   *uint32
	LayerHandle uint64
}

// byLayerColorIndex is the CMC sentinel index meaning "inherit this
// entity's color from its layer" rather than carrying an explicit color.
const byLayerColorIndex = 256

// Resolve computes an entity's effective style. layerRef is the entity's
// own layer handle reference (absolute or offset-from-self per its 4-bit
// H code); ownColor is the entity's own CMC color field. When the
// resolved layer handle has no entry in layers, LayerHandle is 0 and the
// entity's own color is returned unchanged (spec.md §4.7: "missing layer
// yields layer-handle = 0, color inherited from the entity's own CMC").
// When the layer does resolve, the entity's own color still wins unless
// it carries the "by layer" sentinel index, in which case the layer's
// color is inherited.
func Resolve(hostHandle uint64, layerRef bitio.HandleRef, ownColor bitio.ColorRef, layers *LayerIndex) Style {
	layerHandle := layerRef.Resolve(hostHandle)

	layer, ok := layers.Get(layerHandle)
	if !ok {
		return Style{ColorIndex: uint8(ownColor.Index), TrueColor: ownColor.TrueColor, LayerHandle: 0}
	}

	if ownColor.Index != byLayerColorIndex {
		return Style{ColorIndex: uint8(ownColor.Index), TrueColor: ownColor.TrueColor, LayerHandle: layerHandle}
	}

	return Style{ColorIndex: layer.ColorIndex, TrueColor: layer.TrueColor, LayerHandle: layerHandle}
}
