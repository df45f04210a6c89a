// Package style decodes an object's handle-stream references and resolves
// an entity's effective (color, layer) style by cross-referencing its
// layer reference against a cached index of decoded LAYER objects.
// Grounded on the teacher's hdf5/attribute.go pattern of resolving a
// reference field through a previously built lookup table rather than a
// live pointer, generalized from HDF5 global-heap references to DWG
// handle references.
package style

import (
	"fmt"

	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// HandleStream is the ordered set of handle references every object
// carries after its type-specific payload: owner, reactors, xdictionary,
// layer, linetype, material, plotstyle, colorbook, and subentity
// references (spec.md §3 "Handle reference stream").
type HandleStream struct {
	Owner       bitio.HandleRef
	Reactors    []bitio.HandleRef
	XDictionary bitio.HandleRef
	Layer       bitio.HandleRef
	Linetype    bitio.HandleRef
	Material    bitio.HandleRef
	PlotStyle   bitio.HandleRef
	ColorBook   bitio.HandleRef
	Subentities []bitio.HandleRef
}

// ReadHandleStream decodes the handle-stream that trails an object's
// type-specific payload. reactorCount and subentityCount are read from
// the payload itself by the caller (the decoder for the owning type), since
// their position within the payload is type-specific; this function reads
// exactly reactorCount + subentityCount + 6 handle references (7 from R2007
// on, which adds the material handle) in the fixed order spec.md names.
func ReadHandleStream(r *bitio.Reader, v version.Version, reactorCount, subentityCount uint32) (HandleStream, error) {
	var hs HandleStream

	var err error
	hs.Owner, err = r.H()
	if err != nil {
		return HandleStream{}, fmt.Errorf("style: reading owner handle: %w", err)
	}

	hs.Reactors = make([]bitio.HandleRef, reactorCount)
	for i := range hs.Reactors {
		hs.Reactors[i], err = r.H()
		if err != nil {
			return HandleStream{}, fmt.Errorf("style: reading reactor %d: %w", i, err)
		}
	}

	hs.XDictionary, err = r.H()
	if err != nil {
		return HandleStream{}, fmt.Errorf("style: reading xdictionary handle: %w", err)
	}
	hs.Layer, err = r.H()
	if err != nil {
		return HandleStream{}, fmt.Errorf("style: reading layer handle: %w", err)
	}
	hs.Linetype, err = r.H()
	if err != nil {
		return HandleStream{}, fmt.Errorf("style: reading linetype handle: %w", err)
	}

	if v.HasMaterialFlag() {
		hs.Material, err = r.H()
		if err != nil {
			return HandleStream{}, fmt.Errorf("style: reading material handle: %w", err)
		}
	}

	hs.PlotStyle, err = r.H()
	if err != nil {
		return HandleStream{}, fmt.Errorf("style: reading plotstyle handle: %w", err)
	}
	hs.ColorBook, err = r.H()
	if err != nil {
		return HandleStream{}, fmt.Errorf("style: reading colorbook handle: %w", err)
	}

	hs.Subentities = make([]bitio.HandleRef, subentityCount)
	for i := range hs.Subentities {
		hs.Subentities[i], err = r.H()
		if err != nil {
			return HandleStream{}, fmt.Errorf("style: reading subentity %d: %w", i, err)
		}
	}

	return hs, nil
}
