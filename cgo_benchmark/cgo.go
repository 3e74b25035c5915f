//go:build xcodec_cgo && cgo && (darwin || linux)

// Package cgo_benchmark provides CGO benchmarks for comparison with purego.
// Build with -tags xcodec_cgo; it links libvpx and libavcodec via pkg-config.
package cgo_benchmark

/*
#cgo pkg-config: vpx libavcodec
#include <vpx/vpx_decoder.h>
#include <vpx/vp8dx.h>
#include <libavcodec/avcodec.h>

static int cgo_vpx_create_destroy() {
    vpx_codec_ctx_t ctx;
    vpx_codec_dec_cfg_t cfg = {1, 320, 240};
    vpx_codec_err_t err = vpx_codec_dec_init(&ctx, vpx_codec_vp8_dx(), &cfg, 0);
    if (err != VPX_CODEC_OK) {
        return (int)err;
    }
    vpx_codec_destroy(&ctx);
    return 0;
}

// Minimal CGO function - just a noop to measure pure call overhead
static int cgo_noop() {
    return 42;
}
*/
import "C"

// Noop calls a minimal C function to measure pure call overhead
func Noop() int {
	return int(C.cgo_noop())
}

// GetVPXVersion calls vpx_codec_version_str via CGO
func GetVPXVersion() string {
	return C.GoString(C.vpx_codec_version_str())
}

// AVCodecVersion calls avcodec_version via CGO
func AVCodecVersion() uint32 {
	return uint32(C.avcodec_version())
}

// CreateDestroy creates and destroys a VP8 decoder context
func CreateDestroy() int {
	return int(C.cgo_vpx_create_destroy())
}
