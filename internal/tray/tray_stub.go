//go:build !windows

package tray

// Run is a no-op without a desktop tray; the server runs headless.
func Run(addr string, onQuit func()) {}

func HasGUI() bool {
	return false
}
