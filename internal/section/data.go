package section

import "fmt"

// ReadSectionData returns the decompressed bytes of one located section:
// loc.Data directly when ReadEncrypted already resolved it (AC1021+), or
// a slice of the flat table's raw, uncompressed bytes otherwise. Later
// stages (objmap, classtable) consume this uniformly regardless of which
// locator family produced loc.
func ReadSectionData(data []byte, loc Locator) ([]byte, error) {
	if loc.Data != nil {
		return loc.Data, nil
	}

	end := loc.Offset + loc.Size
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("section: %w: %s extends past end of file", ErrSentinelInvalid, loc.Name)
	}
	return data[loc.Offset:end], nil
}
