// Locate dispatches to the flat or encrypted section-locator parser based
// on version, the way the teacher's superblock.Read dispatches to
// readV0/readV1/readV2/readV3 on a version byte.
package section

import (
	"fmt"

	"github.com/rkm/dwg/internal/version"
)

// Locate parses the section-locator table appropriate to v and validates
// that every section the decoder's later stages require is present.
func Locate(data []byte, v version.Version) ([]Locator, error) {
	var locators []Locator
	var err error
	if v.UsesFlatSectionTable() {
		locators, err = ReadFlat(data)
	} else {
		locators, err = ReadEncrypted(data)
	}
	if err != nil {
		return nil, err
	}
	if err := CheckRequired(locators); err != nil {
		return nil, fmt.Errorf("section: %w", err)
	}
	return locators, nil
}
