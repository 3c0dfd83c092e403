// Package image parses GameCube DOL executables into an immutable, section-
// addressed view of the program: big-endian text/data sections plus the
// entry address the Decoder and CFG Builder walk from.
package image

import (
	"encoding/binary"
	"fmt"
)

// Kind classifies a Section by how the loader found it in the DOL header.
type Kind int

const (
	// Text sections hold executable PowerPC words.
	Text Kind = iota
	// Data sections hold initialized data.
	Data
	// BSS is the single zero-initialized section described by the header.
	BSS
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Data:
		return "data"
	case BSS:
		return "bss"
	default:
		return "unknown"
	}
}

// Section is one contiguous, disjoint range of the loaded program.
type Section struct {
	FileOffset uint32
	Load       uint32
	Length     uint32
	Kind       Kind
	// raw holds the section's bytes for Text/Data; nil for BSS, which the
	// DOL format never backs with file content.
	raw []byte
}

// End is the exclusive end of the section's load range.
func (s Section) End() uint32 {
	return s.Load + s.Length
}

// Contains reports whether addr falls in this section's load range.
func (s Section) Contains(addr uint32) bool {
	return addr >= s.Load && addr < s.End()
}

const (
	headerSize   = 0x100
	textCount    = 7
	dataCount    = 11
	textOffsBase = 0x00
	dataOffsBase = 0x1C
	textAddrBase = 0x48
	dataAddrBase = 0x64
	textSizeBase = 0x90
	dataSizeBase = 0xAC
	bssAddrOff   = 0xD8
	bssSizeOff   = 0xDC
	entryOff     = 0xE0
)

// Image is the immutable result of loading a DOL file: its sections plus
// the program entry address. Section load ranges never overlap.
type Image struct {
	sections []Section
	entry    uint32
}

// Entry returns the program's entry address.
func (img *Image) Entry() uint32 {
	return img.entry
}

// Sections returns all sections in header order: text sections first, then
// data sections, then BSS (if present).
func (img *Image) Sections() []Section {
	out := make([]Section, len(img.sections))
	copy(out, img.sections)
	return out
}

// Contains reports whether addr is covered by any section.
func (img *Image) Contains(addr uint32) bool {
	_, ok := img.find(addr)
	return ok
}

// ContainsText reports whether addr falls inside a text section.
func (img *Image) ContainsText(addr uint32) bool {
	s, ok := img.find(addr)
	return ok && s.Kind == Text
}

func (img *Image) find(addr uint32) (Section, bool) {
	for _, s := range img.sections {
		if s.Contains(addr) {
			return s, true
		}
	}
	return Section{}, false
}

// ReadWord reads a big-endian 32-bit word at addr, failing with
// UnmappedAddress if addr is not covered by any section, or if it falls in
// BSS (which has no file-backed content).
func (img *Image) ReadWord(addr uint32) (uint32, error) {
	s, ok := img.find(addr)
	if !ok || s.Kind == BSS {
		return 0, &UnmappedAddressError{Addr: addr}
	}
	off := addr - s.Load
	if off+4 > uint32(len(s.raw)) {
		return 0, &UnmappedAddressError{Addr: addr}
	}
	return binary.BigEndian.Uint32(s.raw[off:]), nil
}

// Load parses a DOL image out of buf.
func Load(buf []byte) (*Image, error) {
	if len(buf) < headerSize {
		return nil, &InvalidImageError{Reason: fmt.Sprintf("file too short for DOL header: %d bytes", len(buf))}
	}

	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(buf[off:]) }

	var sections []Section
	for i := 0; i < textCount; i++ {
		fileOff := u32(textOffsBase + i*4)
		load := u32(textAddrBase + i*4)
		size := u32(textSizeBase + i*4)
		if size == 0 {
			continue
		}
		raw, err := sliceFile(buf, fileOff, size)
		if err != nil {
			return nil, err
		}
		if size%4 != 0 {
			return nil, &InvalidImageError{Reason: fmt.Sprintf("text section %d size %d is not word-aligned", i, size)}
		}
		sections = append(sections, Section{FileOffset: fileOff, Load: load, Length: size, Kind: Text, raw: raw})
	}
	for i := 0; i < dataCount; i++ {
		fileOff := u32(dataOffsBase + i*4)
		load := u32(dataAddrBase + i*4)
		size := u32(dataSizeBase + i*4)
		if size == 0 {
			continue
		}
		raw, err := sliceFile(buf, fileOff, size)
		if err != nil {
			return nil, err
		}
		sections = append(sections, Section{FileOffset: fileOff, Load: load, Length: size, Kind: Data, raw: raw})
	}

	bssAddr := u32(bssAddrOff)
	bssSize := u32(bssSizeOff)
	if bssSize != 0 {
		sections = append(sections, Section{Load: bssAddr, Length: bssSize, Kind: BSS})
	}

	if err := checkDisjoint(sections); err != nil {
		return nil, err
	}

	entry := u32(entryOff)
	img := &Image{sections: sections, entry: entry}
	if !img.ContainsText(entry) {
		return nil, &InvalidImageError{Reason: fmt.Sprintf("entry point 0x%08X does not lie in any text section", entry)}
	}

	return img, nil
}

func sliceFile(buf []byte, fileOff, size uint32) ([]byte, error) {
	end := uint64(fileOff) + uint64(size)
	if end > uint64(len(buf)) {
		return nil, &InvalidImageError{Reason: fmt.Sprintf("section at file offset 0x%X size %d overruns file (len %d)", fileOff, size, len(buf))}
	}
	return buf[fileOff:end], nil
}

func checkDisjoint(sections []Section) error {
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			a, b := sections[i], sections[j]
			if a.Load < b.End() && b.Load < a.End() {
				return &InvalidImageError{Reason: fmt.Sprintf("section load ranges overlap: [0x%X,0x%X) and [0x%X,0x%X)", a.Load, a.End(), b.Load, b.End())}
			}
		}
	}
	return nil
}
