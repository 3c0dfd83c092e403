package image

import "fmt"

// InvalidImageError reports a malformed DOL header or section table.
// Fatal at the Image Loader stage.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image: %s", e.Reason)
}

// UnmappedAddressError reports an address outside every section, or inside
// BSS where no file content backs it.
type UnmappedAddressError struct {
	Addr uint32
}

func (e *UnmappedAddressError) Error() string {
	return fmt.Sprintf("unmapped address: 0x%08X", e.Addr)
}
