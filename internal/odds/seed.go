package odds

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed draws a simulation seed from the OS entropy source. Callers that
// need reproducible runs pass their own seed instead.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("reading random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
