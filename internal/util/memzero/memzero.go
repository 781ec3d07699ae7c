// Package memzero wipes secret material once it is no longer needed.
package memzero

import "runtime"

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// Key wipes a 32-byte symmetric key in place.
func Key(k *[32]byte) {
	Zero(k[:])
}
