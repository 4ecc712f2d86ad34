//go:build linux

package engine

import "golang.org/x/sys/unix"

// pinToCore binds the calling thread to a single CPU. The caller must have
// locked the goroutine to its OS thread first.
func pinToCore(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
