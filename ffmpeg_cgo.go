//go:build (darwin || linux) && !noffmpeg && xcodec_cgo && cgo

// libavcodec and libswscale bindings linked at build time with cgo.

package xcodec

/*
#cgo pkg-config: libavcodec libswscale

#include <libavcodec/avcodec.h>
#include <libswscale/swscale.h>

static const char *xc_avcodec_ident(void) { return LIBAVCODEC_IDENT; }
static const char *xc_swscale_ident(void) { return LIBSWSCALE_IDENT; }

// Plane pointers are passed individually because cgo forbids Go memory
// holding Go pointers.
static int xc_sws_scale(struct SwsContext *c, int src_h,
		const uint8_t *s0, const uint8_t *s1, const uint8_t *s2, int ss0, int ss1, int ss2,
		uint8_t *d0, uint8_t *d1, uint8_t *d2, int ds0, int ds1, int ds2) {
	const uint8_t *src[4] = {s0, s1, s2, NULL};
	int src_stride[4] = {ss0, ss1, ss2, 0};
	uint8_t *dst[4] = {d0, d1, d2, NULL};
	int dst_stride[4] = {ds0, ds1, ds2, 0};
	return sws_scale(c, src, src_stride, 0, src_h, dst, dst_stride);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

func avcodecLoad() error {
	setProviderAvailable(ProviderLibavcodec)
	return nil
}

func swscaleLoad() error {
	setProviderAvailable(ProviderLibswscale)
	return nil
}

// The idents come from the headers the package was compiled against.
func avcodecIdent() string { return C.GoString(C.xc_avcodec_ident()) }

func swscaleIdent() string { return C.GoString(C.xc_swscale_ident()) }

func avPixelFormat(f PixelFormat) (C.enum_AVPixelFormat, error) {
	switch f {
	case PixelFormatI420:
		return C.AV_PIX_FMT_YUV420P, nil
	case PixelFormatRGB24:
		return C.AV_PIX_FMT_RGB24, nil
	default:
		return 0, fmt.Errorf("%w: pixel format %s", ErrCodecNotSupported, f)
	}
}

type swsHandle struct {
	ctx  *C.struct_SwsContext
	srcH int
}

func newSwsHandle(srcW, srcH int, srcFmt PixelFormat, dstW, dstH int, dstFmt PixelFormat) (*swsHandle, error) {
	sf, err := avPixelFormat(srcFmt)
	if err != nil {
		return nil, err
	}
	df, err := avPixelFormat(dstFmt)
	if err != nil {
		return nil, err
	}
	ctx := C.sws_getContext(C.int(srcW), C.int(srcH), sf, C.int(dstW), C.int(dstH), df,
		C.SWS_BILINEAR, nil, nil, nil)
	if ctx == nil {
		return nil, &CodecError{Op: "sws_getContext", Code: -1,
			Message: fmt.Sprintf("cannot convert %s %dx%d to %s %dx%d", srcFmt, srcW, srcH, dstFmt, dstW, dstH)}
	}
	return &swsHandle{ctx: ctx, srcH: srcH}, nil
}

func planePtr(b []byte) *C.uint8_t {
	if len(b) == 0 {
		return nil
	}
	return (*C.uint8_t)(unsafe.Pointer(&b[0]))
}

func (h *swsHandle) scale(dst, src *Image) error {
	n := C.xc_sws_scale(h.ctx, C.int(h.srcH),
		planePtr(src.Planes[0]), planePtr(src.Planes[1]), planePtr(src.Planes[2]),
		C.int(src.Strides[0]), C.int(src.Strides[1]), C.int(src.Strides[2]),
		planePtr(dst.Planes[0]), planePtr(dst.Planes[1]), planePtr(dst.Planes[2]),
		C.int(dst.Strides[0]), C.int(dst.Strides[1]), C.int(dst.Strides[2]))
	if n <= 0 {
		return &CodecError{Op: "sws_scale", Code: int(n), Message: "no output rows"}
	}
	return nil
}

func (h *swsHandle) close() {
	if h.ctx != nil {
		C.sws_freeContext(h.ctx)
		h.ctx = nil
	}
}
