package backend

import (
	"encoding/binary"
	"math/bits"
)

// golden is the mixing constant of the avalanche hash, 2^64 / phi.
const golden = 0x9e3779b97f4a7c15

// blockSize is the vector lane width: 32 bytes processed as four
// 64-bit words per iteration.
const blockSize = 32

// SWAR byte-broadcast masks for zero-byte detection.
const (
	lowBytes  = 0x0101010101010101
	lowSeven  = 0x7f7f7f7f7f7f7f7f
	newlineLo = 0x0a * lowBytes
)

func mix(h, w uint64) uint64 {
	h ^= w
	h *= golden
	return bits.RotateLeft64(h, 27)
}

// zeroByteMask returns a mask with the high bit set in exactly the bytes
// of w that are zero. The per-byte add cannot carry across byte lanes, so
// the mask popcount is an exact zero-byte count.
func zeroByteMask(w uint64) uint64 {
	return ^(((w & lowSeven) + lowSeven) | w | lowSeven)
}

// hashBytes computes the avalanche hash of data and counts its newlines.
// Whole 32-byte blocks run through the four-lane mixing loop; the
// remainder goes through the scalar tail. The result depends only on the
// input bytes, never on the backend executing it.
func hashBytes(data []byte) (hash, lines uint64) {
	hash = golden

	n := len(data)
	full := n / blockSize * blockSize
	for base := 0; base < full; base += blockSize {
		for lane := 0; lane < blockSize; lane += 8 {
			w := binary.LittleEndian.Uint64(data[base+lane:])
			hash = mix(hash, w)
			lines += uint64(bits.OnesCount64(zeroByteMask(w ^ newlineLo)))
		}
	}
	for _, c := range data[full:] {
		hash ^= uint64(c) + golden + (hash << 6) + (hash >> 2)
		if c == '\n' {
			lines++
		}
	}

	// Final avalanche so short inputs still spread across all bits.
	hash ^= hash >> 33
	hash *= 0xff51afd7ed558ccd
	hash ^= hash >> 29
	return hash, lines
}

// diffBytes compares a and b over their common prefix, counting differing
// bytes and the newlines seen in a. Blocks are compared eight bytes at a
// time by XOR and zero-byte popcount; the tail is scalar.
func diffBytes(a, b []byte) (diffs, lines uint64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	full := n / blockSize * blockSize
	for base := 0; base < full; base += blockSize {
		for lane := 0; lane < blockSize; lane += 8 {
			wa := binary.LittleEndian.Uint64(a[base+lane:])
			wb := binary.LittleEndian.Uint64(b[base+lane:])
			same := uint64(bits.OnesCount64(zeroByteMask(wa ^ wb)))
			diffs += 8 - same
			lines += uint64(bits.OnesCount64(zeroByteMask(wa ^ newlineLo)))
		}
	}
	for i := full; i < n; i++ {
		if a[i] != b[i] {
			diffs++
		}
		if a[i] == '\n' {
			lines++
		}
	}
	return diffs, lines
}
