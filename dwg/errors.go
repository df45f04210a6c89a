// Package dwg exposes a read-only, lazy, random-access catalog over a
// decoded DWG drawing file: open a file, then query, read, and decode its
// objects by handle. Grounded on the teacher's hdf5.File/Group/Walk split
// (github.com/robert-malhotra/go-hdf5), generalized from an object-header
// tree keyed by path to an object-map keyed by handle.
package dwg

import (
	"errors"

	"github.com/rkm/dwg/internal/entity"
	"github.com/rkm/dwg/internal/objheader"
	"github.com/rkm/dwg/internal/section"
	"github.com/rkm/dwg/internal/version"
)

// Boundary errors, one per code named in the raw query surface.
// ErrUnsupportedVersion, ErrMissingSection, ErrMalformedRecord and
// ErrUnsupportedType are the sub-package sentinels themselves, so
// errors.Is matches them under either name; the others are defined here.
var (
	ErrUnsupportedVersion = version.ErrUnsupportedVersion
	ErrMissingSection     = section.ErrMissingSection
	ErrCRCMismatch        = errors.New("dwg: CRC mismatch")
	ErrMalformedRecord    = entity.ErrMalformedRecord
	ErrUnknownHandle      = errors.New("dwg: unknown handle")
	ErrUnsupportedType    = entity.ErrUnsupportedType
	ErrNoPointProjection  = errors.New("dwg: entity has no point projection")
	ErrOutOfBounds        = errors.New("dwg: out of bounds")
	ErrClosed             = errors.New("dwg: catalog is closed")
)

// recordLocalErr reports whether err represents a record-local failure
// (spec tier 2): the handle is skipped from query results but the catalog
// stays usable. File-fatal sub-package errors (ErrSentinelInvalid,
// ErrMissingSection) never reach here — they fail Open outright.
func recordLocalErr(err error) bool {
	return errors.Is(err, objheader.ErrCRCMismatch) ||
		errors.Is(err, entity.ErrMalformedRecord)
}
