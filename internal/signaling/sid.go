package signaling

import (
	"crypto/rand"
	"encoding/binary"
)

// newStreamID returns a uniformly random 32-bit StreamId. Knowledge of a
// peer's sid must not be guessable from anything but the server's own
// random source (§3).
func newStreamID() uint32 {
	var b [4]byte
	// crypto/rand.Read on the fixed-size local buffer only fails on a
	// broken entropy source, which this process cannot recover from.
	if _, err := rand.Read(b[:]); err != nil {
		panic("signaling: system randomness unavailable: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}
