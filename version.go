package xcodec

import (
	"fmt"
	"sync"
)

var (
	avcodecVersionOnce = sync.OnceValue(avcodecIdent)
	swscaleVersionOnce = sync.OnceValue(swscaleIdent)
)

// AVCodecVersion returns the libavcodec ident, e.g. "Lavc61.19.100".
// The value is computed once and is constant for the process lifetime.
// It is "" when libavcodec cannot be loaded.
func AVCodecVersion() string {
	return avcodecVersionOnce()
}

// SwscaleVersion returns the libswscale ident, e.g. "SwS8.3.100".
// It is "" when libswscale cannot be loaded.
func SwscaleVersion() string {
	return swscaleVersionOnce()
}

// IsAVCodecAvailable reports whether libavcodec can be used.
func IsAVCodecAvailable() bool {
	return avcodecLoad() == nil
}

// IsSwscaleAvailable reports whether libswscale can be used.
func IsSwscaleAvailable() bool {
	return swscaleLoad() == nil
}

// formatVersion renders an AV_VERSION_INT value with the library ident prefix.
func formatVersion(prefix string, v uint32) string {
	return fmt.Sprintf("%s%d.%d.%d", prefix, v>>16, (v>>8)&0xff, v&0xff)
}
