// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers used to size FFT buffers.
// Everything here is allocation free and constant time.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, and 1 for
// non-positive sizes. Subtracting one first keeps exact powers of two
// unchanged: 8-1 = 0b0111 has length 3, and 1<<3 = 8.
//
//	Input  Output
//	48000  65536
//	4096   4096
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single set bit, so clearing its lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// PaddingFor returns how many zero samples extend n samples to the next
// power of two.
func PaddingFor(n int) int {
	if n <= 0 {
		return 1
	}
	return NextPowerOfTwo(n) - n
}
