package image_test

import (
	"encoding/binary"
	"testing"

	"github.com/dolrecomp/dolrecomp/image"
)

// buildDOL constructs a minimal valid DOL header plus one text section
// containing the given words, entry at the section base.
func buildDOL(words []uint32) []byte {
	const headerSize = 0x100
	textBytes := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(textBytes[i*4:], w)
	}

	buf := make([]byte, headerSize+len(textBytes))
	binary.BigEndian.PutUint32(buf[0x00:], headerSize)     // text[0] file offset
	binary.BigEndian.PutUint32(buf[0x48:], 0x80003000)     // text[0] load address
	binary.BigEndian.PutUint32(buf[0x90:], uint32(len(textBytes))) // text[0] size
	binary.BigEndian.PutUint32(buf[0xE0:], 0x80003000)     // entry point
	copy(buf[headerSize:], textBytes)
	return buf
}

func TestLoadSimpleImage(t *testing.T) {
	buf := buildDOL([]uint32{0x7C632214, 0x4E800020})
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Entry() != 0x80003000 {
		t.Errorf("entry = 0x%08X, want 0x80003000", img.Entry())
	}
	if !img.ContainsText(0x80003000) {
		t.Errorf("expected 0x80003000 to be text")
	}

	w, err := img.ReadWord(0x80003000)
	if err != nil {
		t.Fatalf("ReadWord failed: %v", err)
	}
	if w != 0x7C632214 {
		t.Errorf("ReadWord(0x80003000) = 0x%08X, want 0x7C632214", w)
	}

	w, err = img.ReadWord(0x80003004)
	if err != nil || w != 0x4E800020 {
		t.Errorf("ReadWord(0x80003004) = 0x%08X, err=%v", w, err)
	}

	if _, err := img.ReadWord(0x80009000); err == nil {
		t.Errorf("expected UnmappedAddress for out-of-range read")
	}
}

func TestLoadTruncatedFileFails(t *testing.T) {
	buf := buildDOL([]uint32{0x7C632214})
	// Claim a section size larger than the file actually has.
	binary.BigEndian.PutUint32(buf[0x90:], 0x10000)

	_, err := image.Load(buf)
	if err == nil {
		t.Fatalf("expected InvalidImage for overrunning section")
	}
	var invalid *image.InvalidImageError
	if !isInvalidImage(err, &invalid) {
		t.Errorf("expected *InvalidImageError, got %T: %v", err, err)
	}
}

func isInvalidImage(err error, target **image.InvalidImageError) bool {
	if e, ok := err.(*image.InvalidImageError); ok {
		*target = e
		return true
	}
	return false
}

func TestLoadHeaderTooShort(t *testing.T) {
	_, err := image.Load(make([]byte, 16))
	if err == nil {
		t.Fatalf("expected InvalidImage for short header")
	}
}

func TestOverlappingSectionsRejected(t *testing.T) {
	buf := buildDOL([]uint32{0x60000000, 0x60000000})
	// Add a second text section overlapping the first.
	binary.BigEndian.PutUint32(buf[0x04:], 0x100) // text[1] file offset
	binary.BigEndian.PutUint32(buf[0x4C:], 0x80003004)
	binary.BigEndian.PutUint32(buf[0x94:], 4)

	_, err := image.Load(buf)
	if err == nil {
		t.Fatalf("expected InvalidImage for overlapping sections")
	}
}
