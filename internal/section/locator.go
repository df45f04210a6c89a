// Package section locates the named byte regions ("sections") inside a DWG
// file, following the version-specific header format: a flat table for
// AC1014-AC1018, or an encrypted, page-based system/data section map for
// AC1021+. Grounded on the teacher's per-version superblock dispatch
// (internal/superblock/v0.go, v2.go) generalized from "one struct shape"
// to "one locator table shape" per version family.
package section

import (
	"errors"
	"fmt"
)

// Errors surfaced at the §6 boundary.
var (
	ErrCRCMismatch     = errors.New("dwg: section locator CRC mismatch")
	ErrSentinelInvalid = errors.New("dwg: section locator sentinel mismatch")
	ErrMissingSection  = errors.New("dwg: required section missing")
)

// Flags carries the per-section compression/encryption state relevant to
// AC1021+ data sections; pre-2004 flat-table entries leave these false.
type Flags struct {
	Compressed bool
	Encrypted  bool
}

// Locator describes one named section: its name, file offset, byte size,
// and flags. The ordered set produced by Locate is immutable once built.
//
// Data carries the already-resolved bytes for AC1021+ sections: by the
// time ReadEncrypted can name a section at all, it has necessarily walked
// that section's page map and decompressed every page, so there is
// nothing left for ReadSectionData to redo against Offset/Size the way it
// can for a flat-table section's uncompressed, contiguous span. Data is
// nil for flat-table locators.
type Locator struct {
	Name   string
	Offset uint64
	Size   uint64
	Data   []byte
	Flags  Flags
}

// RequiredSections lists the sections the decoder's later stages depend
// on; a file missing any of these fails open with ErrMissingSection.
var RequiredSections = []string{
	"AcDb:Header",
	"AcDb:Handles",
	"AcDb:AcDbObjects",
	"AcDb:Classes",
}

// ByName indexes a locator slice by section name for later stages.
func ByName(locators []Locator) map[string]Locator {
	m := make(map[string]Locator, len(locators))
	for _, l := range locators {
		m[l.Name] = l
	}
	return m
}

// CheckRequired verifies that every section named in RequiredSections is
// present in locators.
func CheckRequired(locators []Locator) error {
	byName := ByName(locators)
	for _, name := range RequiredSections {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingSection, name)
		}
	}
	return nil
}
