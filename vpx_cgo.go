//go:build (darwin || linux) && !novpx && xcodec_cgo && cgo

// libvpx binding linked at build time with cgo.
//
// Build with -tags xcodec_cgo. The libvpx headers and pkg-config file must be
// installed (libvpx-dev on Debian, libvpx on Homebrew).

package xcodec

/*
#cgo pkg-config: vpx

#include <stdlib.h>
#include <string.h>
#include <vpx/vpx_encoder.h>
#include <vpx/vpx_decoder.h>
#include <vpx/vp8cx.h>
#include <vpx/vp8dx.h>

#define XC_VP8 1
#define XC_VP9 2

static vpx_codec_iface_t *xc_vpx_cx(int codec) {
	switch (codec) {
	case XC_VP8:
		return vpx_codec_vp8_cx();
	case XC_VP9:
		return vpx_codec_vp9_cx();
	}
	return NULL;
}

static vpx_codec_iface_t *xc_vpx_dx(int codec) {
	switch (codec) {
	case XC_VP8:
		return vpx_codec_vp8_dx();
	case XC_VP9:
		return vpx_codec_vp9_dx();
	}
	return NULL;
}

static vpx_codec_err_t xc_vpx_enc_init(vpx_codec_ctx_t *ctx, vpx_codec_enc_cfg_t *cfg, int codec,
		unsigned int w, unsigned int h, unsigned int threads, int fps,
		unsigned int kbps, int error_resilient) {
	vpx_codec_iface_t *iface = xc_vpx_cx(codec);
	vpx_codec_err_t res;
	if (iface == NULL)
		return VPX_CODEC_INCAPABLE;
	res = vpx_codec_enc_config_default(iface, cfg, 0);
	if (res != VPX_CODEC_OK)
		return res;
	cfg->g_threads = threads;
	cfg->g_w = w;
	cfg->g_h = h;
	cfg->g_timebase.num = 1;
	cfg->g_timebase.den = fps;
	cfg->g_lag_in_frames = 0;
	cfg->rc_end_usage = VPX_CBR;
	cfg->rc_target_bitrate = kbps;
	if (error_resilient)
		cfg->g_error_resilient = VPX_ERROR_RESILIENT_DEFAULT;
	return vpx_codec_enc_init(ctx, iface, cfg, 0);
}

static vpx_codec_err_t xc_vpx_dec_init(vpx_codec_ctx_t *ctx, int codec,
		unsigned int w, unsigned int h, unsigned int threads) {
	vpx_codec_iface_t *iface = xc_vpx_dx(codec);
	vpx_codec_dec_cfg_t cfg;
	if (iface == NULL)
		return VPX_CODEC_INCAPABLE;
	memset(&cfg, 0, sizeof(cfg));
	cfg.threads = threads;
	cfg.w = w;
	cfg.h = h;
	return vpx_codec_dec_init(ctx, iface, &cfg, 0);
}

static const vpx_codec_cx_pkt_t *xc_vpx_next_frame_pkt(vpx_codec_ctx_t *ctx, vpx_codec_iter_t *iter) {
	const vpx_codec_cx_pkt_t *pkt;
	while ((pkt = vpx_codec_get_cx_data(ctx, iter)) != NULL) {
		if (pkt->kind == VPX_CODEC_CX_FRAME_PKT)
			return pkt;
	}
	return NULL;
}

static void *xc_pkt_buf(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.frame.buf; }
static size_t xc_pkt_size(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.frame.sz; }
static int xc_pkt_is_key(const vpx_codec_cx_pkt_t *pkt) {
	return (pkt->data.frame.flags & VPX_FRAME_IS_KEY) != 0;
}
*/
import "C"

import (
	"unsafe"
)

const (
	cgoVPXCodecVP8 = C.XC_VP8
	cgoVPXCodecVP9 = C.XC_VP9
)

// libvpx is linked in, so loading cannot fail.
func vpxLoad() error {
	setProviderAvailable(ProviderLibvpx)
	return nil
}

func vpxVersionString() string {
	return C.GoString(C.vpx_codec_version_str())
}

func vpxCodecAvailable(codec VideoCodec) bool {
	switch codec {
	case VideoCodecVP8:
		return C.xc_vpx_cx(cgoVPXCodecVP8) != nil
	case VideoCodecVP9:
		return C.xc_vpx_cx(cgoVPXCodecVP9) != nil
	default:
		return false
	}
}

func cgoVPXCodec(codec VideoCodec) C.int {
	if codec == VideoCodecVP9 {
		return cgoVPXCodecVP9
	}
	return cgoVPXCodecVP8
}

func vpxError(op string, code C.vpx_codec_err_t, ctx *C.vpx_codec_ctx_t) error {
	e := &CodecError{
		Op:      op,
		Code:    int(code),
		Message: C.GoString(C.vpx_codec_err_to_string(code)),
	}
	if ctx != nil {
		if d := C.vpx_codec_error_detail(ctx); d != nil {
			e.Detail = C.GoString(d)
		}
	}
	return e
}

// vpxEncoderHandle owns a libvpx encoder context. All native state lives in
// C memory so libvpx may keep pointers to it between calls.
type vpxEncoderHandle struct {
	ctx      *C.vpx_codec_ctx_t
	cfg      *C.vpx_codec_enc_cfg_t
	img      *C.vpx_image_t
	frame    unsafe.Pointer
	in       *Image
	deadline C.ulong
}

func newVPXEncoderHandle(config EncoderConfig) (*vpxEncoderHandle, error) {
	if !vpxCodecAvailable(config.Codec) {
		return nil, ErrCodecNotSupported
	}

	size := i420WrapSize(config.Width, config.Height)
	h := &vpxEncoderHandle{
		ctx:      (*C.vpx_codec_ctx_t)(C.calloc(1, C.sizeof_vpx_codec_ctx_t)),
		cfg:      (*C.vpx_codec_enc_cfg_t)(C.calloc(1, C.sizeof_vpx_codec_enc_cfg_t)),
		img:      (*C.vpx_image_t)(C.calloc(1, C.sizeof_vpx_image_t)),
		frame:    C.calloc(1, C.size_t(size)),
		deadline: C.VPX_DL_GOOD_QUALITY,
	}
	if config.Realtime {
		h.deadline = C.VPX_DL_REALTIME
	}

	errRes := C.int(0)
	if config.ErrorResilient {
		errRes = 1
	}
	res := C.xc_vpx_enc_init(h.ctx, h.cfg, cgoVPXCodec(config.Codec),
		C.uint(config.Width), C.uint(config.Height), C.uint(config.Threads),
		C.int(config.FPS), C.uint(config.BitrateBps/1000), errRes)
	if res != C.VPX_CODEC_OK {
		err := vpxError("enc_init", res, h.ctx)
		h.free()
		return nil, err
	}

	if C.vpx_img_wrap(h.img, C.VPX_IMG_FMT_I420, C.uint(config.Width), C.uint(config.Height),
		1, (*C.uchar)(h.frame)) == nil {
		C.vpx_codec_destroy(h.ctx)
		h.free()
		return nil, &CodecError{Op: "img_wrap", Code: -1, Message: "cannot wrap input image"}
	}
	h.in = wrapI420(unsafe.Slice((*byte)(h.frame), size), config.Width, config.Height)
	return h, nil
}

func (h *vpxEncoderHandle) input() *Image {
	return h.in
}

func (h *vpxEncoderHandle) encode(pts int64, forceKeyframe bool, out []byte) ([]byte, FrameType, error) {
	var flags C.vpx_enc_frame_flags_t
	if forceKeyframe {
		flags = C.VPX_EFLAG_FORCE_KF
	}

	res := C.vpx_codec_encode(h.ctx, h.img, C.vpx_codec_pts_t(pts), 1, flags, h.deadline)
	if res != C.VPX_CODEC_OK {
		return out, FrameTypeUnknown, vpxError("encode", res, h.ctx)
	}

	ft := FrameTypeUnknown
	var iter C.vpx_codec_iter_t
	for {
		pkt := C.xc_vpx_next_frame_pkt(h.ctx, &iter)
		if pkt == nil {
			break
		}
		out = append(out, unsafe.Slice((*byte)(C.xc_pkt_buf(pkt)), int(C.xc_pkt_size(pkt)))...)
		if C.xc_pkt_is_key(pkt) != 0 {
			ft = FrameTypeKey
		} else if ft == FrameTypeUnknown {
			ft = FrameTypeDelta
		}
	}
	return out, ft, nil
}

func (h *vpxEncoderHandle) free() {
	C.free(unsafe.Pointer(h.ctx))
	C.free(unsafe.Pointer(h.cfg))
	C.free(unsafe.Pointer(h.img))
	C.free(h.frame)
	h.ctx, h.cfg, h.img, h.frame = nil, nil, nil, nil
}

func (h *vpxEncoderHandle) close() {
	C.vpx_codec_destroy(h.ctx)
	h.free()
}

// vpxDecoderHandle owns a libvpx decoder context.
type vpxDecoderHandle struct {
	ctx *C.vpx_codec_ctx_t
	out Image
}

func newVPXDecoderHandle(config DecoderConfig) (*vpxDecoderHandle, error) {
	if !vpxCodecAvailable(config.Codec) {
		return nil, ErrCodecNotSupported
	}

	h := &vpxDecoderHandle{
		ctx: (*C.vpx_codec_ctx_t)(C.calloc(1, C.sizeof_vpx_codec_ctx_t)),
	}
	res := C.xc_vpx_dec_init(h.ctx, cgoVPXCodec(config.Codec),
		C.uint(config.Width), C.uint(config.Height), C.uint(config.Threads))
	if res != C.VPX_CODEC_OK {
		err := vpxError("dec_init", res, h.ctx)
		C.free(unsafe.Pointer(h.ctx))
		return nil, err
	}
	return h, nil
}

func (h *vpxDecoderHandle) decode(data []byte) (*Image, error) {
	res := C.vpx_codec_decode(h.ctx, (*C.uint8_t)(unsafe.Pointer(&data[0])), C.uint(len(data)), nil, 0)
	if res != C.VPX_CODEC_OK {
		return nil, vpxError("decode", res, h.ctx)
	}

	var img *C.vpx_image_t
	var iter C.vpx_codec_iter_t
	for {
		next := C.vpx_codec_get_frame(h.ctx, &iter)
		if next == nil {
			break
		}
		img = next
	}
	if img == nil {
		return nil, nil
	}

	w, ht := int(img.d_w), int(img.d_h)
	if img.fmt != C.VPX_IMG_FMT_I420 || w <= 0 || ht <= 0 || img.planes[0] == nil {
		return nil, &CodecError{Op: "decode", Code: -1, Message: "unexpected decoder output format"}
	}
	cw, ch := chromaSize(w, ht)
	rows := [3]int{ht, ch, ch}
	cols := [3]int{w, cw, cw}
	for i := 0; i < 3; i++ {
		stride := int(img.stride[i])
		h.out.Planes[i] = unsafe.Slice((*byte)(unsafe.Pointer(img.planes[i])), stride*(rows[i]-1)+cols[i])
		h.out.Strides[i] = stride
	}
	h.out.Width = w
	h.out.Height = ht
	h.out.Format = PixelFormatI420
	return &h.out, nil
}

func (h *vpxDecoderHandle) close() {
	C.vpx_codec_destroy(h.ctx)
	C.free(unsafe.Pointer(h.ctx))
	h.ctx = nil
}
