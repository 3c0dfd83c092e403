package ppc

import "fmt"

// DecodeError reports a word the Decoder could not classify. The decoder
// never panics; callers receive this instead and may proceed with the
// instruction marked opaque (spec.md's DecodeUnknown, §7).
type DecodeError struct {
	Word    uint32
	Address uint32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unknown or unimplemented instruction 0x%08X at 0x%08X", e.Word, e.Address)
}
