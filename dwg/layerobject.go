package dwg

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/style"
	"github.com/rkm/dwg/internal/version"
)

// decodeLayerColor reads the portion of a LAYER object's payload the style
// resolver needs: its entry name (skipped — the catalog resolves layers by
// handle, not name), state flags, and CMC color. Grounded on
// original_source/src/api/bindings/layer.rs's decode_layer_color_record,
// simplified to this decoder's established convention of dropping the
// EED/reactor-count preface every typed decoder in internal/entity already
// omits (spec.md §4.5's payload tables start at the type-specific fields,
// not the handle-stream preface).
func decodeLayerColor(handle uint64, r *bitio.Reader, v version.Version) (style.LayerRecord, error) {
	var name string
	var err error
	if v.UsesUTF16Text() {
		name, err = r.TU()
	} else {
		name, err = r.T()
	}
	if err != nil {
		return style.LayerRecord{}, fmt.Errorf("dwg: reading layer name: %w", err)
	}
	_ = name

	if _, err := r.BS(); err != nil {
		return style.LayerRecord{}, fmt.Errorf("dwg: reading layer flags: %w", err)
	}

	color, err := r.CMC()
	if err != nil {
		return style.LayerRecord{}, fmt.Errorf("dwg: reading layer color: %w", err)
	}

	return style.LayerRecord{
		Handle:     handle,
		ColorIndex: uint8(color.Index),
		TrueColor:  color.TrueColor,
	}, nil
}
