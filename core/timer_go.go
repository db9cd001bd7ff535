//go:build !tinygo

package core

// getSystemTicks returns the shared counter value (regular Go implementation)
func getSystemTicks() uint32 {
	return systemTicks
}

// setSystemTicks sets the shared counter value (regular Go implementation)
func setSystemTicks(ticks uint32) {
	systemTicks = ticks
}
