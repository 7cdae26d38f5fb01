//go:build !amd64 && !arm64

package mmult

func init() {
	// No feature probing on other architectures yet.
	currentLevel = DispatchScalar
}
