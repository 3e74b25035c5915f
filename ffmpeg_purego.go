//go:build (darwin || linux) && !noffmpeg && !(xcodec_cgo && cgo)

// libavcodec and libswscale bindings loaded at runtime with purego.
//
// Overrides: XCODEC_AVCODEC_LIB, XCODEC_SWSCALE_LIB (explicit files) and
// XCODEC_LIB_PATH (directory).

package xcodec

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	avcodecOnce    sync.Once
	avcodecInitErr error

	swscaleOnce    sync.Once
	swscaleInitErr error
)

var (
	avcodecVersion func() uint32

	swscaleVersion func() uint32
	swsGetContext  func(srcW, srcH, srcFmt, dstW, dstH, dstFmt, flags int32, srcFilter, dstFilter, param uintptr) uintptr
	swsScale       func(c, srcSlice, srcStride uintptr, srcSliceY, srcSliceH int32, dst, dstStride uintptr) int32
	swsFreeContext func(c uintptr)
)

// AVPixelFormat values from libavutil/pixfmt.h
const (
	avPixFmtYUV420P = 0
	avPixFmtRGB24   = 2

	swsBilinear = 2
)

var libavcodec = nativeLib{
	name:    "avcodec",
	envFile: "XCODEC_AVCODEC_LIB",
	sonames: []string{"libavcodec.so.62", "libavcodec.so.61", "libavcodec.so.60", "libavcodec.so.59", "libavcodec.so.58"},
	dylibs:  []string{"libavcodec.62.dylib", "libavcodec.61.dylib", "libavcodec.60.dylib", "libavcodec.59.dylib"},
}

var libswscale = nativeLib{
	name:    "swscale",
	envFile: "XCODEC_SWSCALE_LIB",
	sonames: []string{"libswscale.so.9", "libswscale.so.8", "libswscale.so.7", "libswscale.so.6", "libswscale.so.5"},
	dylibs:  []string{"libswscale.9.dylib", "libswscale.8.dylib", "libswscale.7.dylib", "libswscale.6.dylib"},
}

func avcodecLoad() error {
	avcodecOnce.Do(func() {
		_, avcodecInitErr = openLibrary(libavcodec, func(h uintptr) error {
			purego.RegisterLibFunc(&avcodecVersion, h, "avcodec_version")
			return nil
		})
		if avcodecInitErr != nil {
			logger().Debugf("libavcodec unavailable: %v", avcodecInitErr)
			return
		}
		setProviderAvailable(ProviderLibavcodec)
	})
	return avcodecInitErr
}

func swscaleLoad() error {
	swscaleOnce.Do(func() {
		_, swscaleInitErr = openLibrary(libswscale, func(h uintptr) error {
			purego.RegisterLibFunc(&swscaleVersion, h, "swscale_version")
			purego.RegisterLibFunc(&swsGetContext, h, "sws_getContext")
			purego.RegisterLibFunc(&swsScale, h, "sws_scale")
			purego.RegisterLibFunc(&swsFreeContext, h, "sws_freeContext")
			return nil
		})
		if swscaleInitErr != nil {
			logger().Debugf("libswscale unavailable: %v", swscaleInitErr)
			return
		}
		setProviderAvailable(ProviderLibswscale)
	})
	return swscaleInitErr
}

func avcodecIdent() string {
	if avcodecLoad() != nil {
		return ""
	}
	return formatVersion("Lavc", avcodecVersion())
}

func swscaleIdent() string {
	if swscaleLoad() != nil {
		return ""
	}
	return formatVersion("SwS", swscaleVersion())
}

func avPixelFormat(f PixelFormat) (int32, error) {
	switch f {
	case PixelFormatI420:
		return avPixFmtYUV420P, nil
	case PixelFormatRGB24:
		return avPixFmtRGB24, nil
	default:
		return 0, fmt.Errorf("%w: pixel format %s", ErrCodecNotSupported, f)
	}
}

// swsArgs holds the pointer arrays passed to sws_scale. It is heap
// allocated with the handle so the addresses stay valid during the call.
type swsArgs struct {
	src       [4]uintptr
	srcStride [4]int32
	dst       [4]uintptr
	dstStride [4]int32
}

// swsHandle wraps one SwsContext.
type swsHandle struct {
	ctx  uintptr
	srcH int
	args *swsArgs
}

func newSwsHandle(srcW, srcH int, srcFmt PixelFormat, dstW, dstH int, dstFmt PixelFormat) (*swsHandle, error) {
	if err := swscaleLoad(); err != nil {
		return nil, err
	}
	sf, err := avPixelFormat(srcFmt)
	if err != nil {
		return nil, err
	}
	df, err := avPixelFormat(dstFmt)
	if err != nil {
		return nil, err
	}
	ctx := swsGetContext(int32(srcW), int32(srcH), sf, int32(dstW), int32(dstH), df, swsBilinear, 0, 0, 0)
	if ctx == 0 {
		return nil, &CodecError{Op: "sws_getContext", Code: -1,
			Message: fmt.Sprintf("cannot convert %s %dx%d to %s %dx%d", srcFmt, srcW, srcH, dstFmt, dstW, dstH)}
	}
	return &swsHandle{ctx: ctx, srcH: srcH, args: &swsArgs{}}, nil
}

func (h *swsHandle) scale(dst, src *Image) error {
	a := h.args
	for i := 0; i < 3; i++ {
		a.src[i], a.srcStride[i] = bytesPtr(src.Planes[i]), int32(src.Strides[i])
		a.dst[i], a.dstStride[i] = bytesPtr(dst.Planes[i]), int32(dst.Strides[i])
	}
	n := swsScale(h.ctx,
		uintptr(unsafe.Pointer(&a.src[0])), uintptr(unsafe.Pointer(&a.srcStride[0])),
		0, int32(h.srcH),
		uintptr(unsafe.Pointer(&a.dst[0])), uintptr(unsafe.Pointer(&a.dstStride[0])))
	runtime.KeepAlive(src)
	runtime.KeepAlive(dst)
	runtime.KeepAlive(a)
	if n <= 0 {
		return &CodecError{Op: "sws_scale", Code: int(n), Message: "no output rows"}
	}
	return nil
}

func (h *swsHandle) close() {
	if h.ctx != 0 {
		swsFreeContext(h.ctx)
		h.ctx = 0
	}
}
