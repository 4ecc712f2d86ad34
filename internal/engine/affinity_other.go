//go:build !linux

package engine

// pinToCore is a no-op off Linux; the scheduler places threads freely.
func pinToCore(core int) error {
	return nil
}
