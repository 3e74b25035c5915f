//go:build (darwin || linux) && !novpx && !(xcodec_cgo && cgo)

// libvpx binding loaded at runtime with purego.
//
// Library locations checked (in order):
//   - XCODEC_VPX_LIB environment variable (explicit file)
//   - XCODEC_LIB_PATH environment variable (directory)
//   - next to the executable
//   - dynamic linker search path and common system directories
//
// The structs below mirror the libvpx >= 1.6 public ABI (vpx_codec_ctx_t,
// vpx_image_t, vpx_codec_cx_pkt_t). Only the leading, long-stable fields of
// vpx_codec_enc_cfg_t are written; the rest comes from
// vpx_codec_enc_config_default.

package xcodec

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	vpxOnce    sync.Once
	vpxLib     uintptr
	vpxInitErr error

	// ABI versions accepted by the loaded library, found on first init.
	vpxEncoderABI atomic.Int32
	vpxDecoderABI atomic.Int32
)

// libvpx function pointers
var (
	vpxCodecVP8CX func() uintptr
	vpxCodecVP8DX func() uintptr
	vpxCodecVP9CX func() uintptr // nil when built without VP9
	vpxCodecVP9DX func() uintptr

	vpxCodecEncConfigDefault func(iface, cfg uintptr, usage uint32) int32
	vpxCodecEncInitVer       func(ctx, iface, cfg uintptr, flags int64, ver int32) int32
	vpxCodecDecInitVer       func(ctx, iface, cfg uintptr, flags int64, ver int32) int32
	vpxCodecEncode           func(ctx, img uintptr, pts int64, duration uint64, flags int64, deadline uint64) int32
	vpxCodecGetCxData        func(ctx, iter uintptr) uintptr
	vpxCodecDecode           func(ctx, data uintptr, size uint32, userPriv uintptr, deadline int64) int32
	vpxCodecGetFrame         func(ctx, iter uintptr) uintptr
	vpxCodecDestroy          func(ctx uintptr) int32
	vpxImgWrap               func(img uintptr, fmt int32, w, h, align uint32, data uintptr) uintptr
	vpxCodecErrToString      func(err int32) uintptr
	vpxCodecErrorDetail      func(ctx uintptr) uintptr
	vpxCodecVersionStr       func() uintptr
)

// Constants from vpx_codec.h, vpx_encoder.h and vpx_image.h
const (
	vpxCodecOK          = 0
	vpxCodecABIMismatch = 3

	vpxImgFmtI420 = 0x100 | 2 // VPX_IMG_FMT_PLANAR | 2

	vpxCodecCxFramePkt = 0
	vpxFrameIsKey      = 0x1
	vpxEflagForceKF    = 1

	vpxDLRealtime    = 1
	vpxDLGoodQuality = 1000000

	vpxRCModeCBR        = 1
	vpxErrorResilient   = 0x1
	vpxMaxABIProbe      = 64
	vpxEncCfgWords      = 256 // vpx_codec_enc_cfg_t is well under 2 KiB
	vpxImageStructWords = 32
)

// Byte offsets into vpx_codec_enc_cfg_t.
const (
	cfgGThreads        = 4
	cfgGW              = 12
	cfgGH              = 16
	cfgGTimebaseNum    = 28
	cfgGTimebaseDen    = 32
	cfgGErrorResilient = 36
	cfgGLagInFrames    = 44
	cfgRCEndUsage      = 72
	cfgRCTargetBitrate = 112
)

// vpxCodecCtx matches vpx_codec_ctx_t.
type vpxCodecCtx struct {
	name      uintptr
	iface     uintptr
	err       int32
	_         int32
	errDetail uintptr
	initFlags int64
	config    uintptr
	priv      uintptr
}

// vpxImage matches the head of vpx_image_t.
type vpxImage struct {
	fmt          int32
	cs           int32
	colorRange   int32
	w            uint32
	h            uint32
	bitDepth     uint32
	dW           uint32
	dH           uint32
	rW           uint32
	rH           uint32
	xChromaShift uint32
	yChromaShift uint32
	planes       [4]uintptr
	stride       [4]int32
}

// vpxCxPkt matches the frame member of vpx_codec_cx_pkt_t.
type vpxCxPkt struct {
	kind        int32
	_           int32
	buf         uintptr
	sz          uintptr
	pts         int64
	duration    uint64
	flags       uint32
	partitionID int32
}

// vpxDecCfg matches vpx_codec_dec_cfg_t.
type vpxDecCfg struct {
	threads uint32
	w       uint32
	h       uint32
}

var libvpx = nativeLib{
	name:    "vpx",
	envFile: "XCODEC_VPX_LIB",
	sonames: []string{"libvpx.so.9", "libvpx.so.8", "libvpx.so.7", "libvpx.so.6"},
	dylibs:  []string{"libvpx.9.dylib", "libvpx.8.dylib", "libvpx.7.dylib"},
}

// vpxLoad loads libvpx once.
func vpxLoad() error {
	vpxOnce.Do(func() {
		vpxLib, vpxInitErr = openLibrary(libvpx, bindVPXSymbols)
		if vpxInitErr != nil {
			logger().Debugf("libvpx unavailable: %v", vpxInitErr)
			return
		}
		setProviderAvailable(ProviderLibvpx)
	})
	return vpxInitErr
}

func bindVPXSymbols(h uintptr) error {
	purego.RegisterLibFunc(&vpxCodecVP8CX, h, "vpx_codec_vp8_cx")
	purego.RegisterLibFunc(&vpxCodecVP8DX, h, "vpx_codec_vp8_dx")
	if requireSymbol(h, "vpx_codec_vp9_cx") == nil && requireSymbol(h, "vpx_codec_vp9_dx") == nil {
		purego.RegisterLibFunc(&vpxCodecVP9CX, h, "vpx_codec_vp9_cx")
		purego.RegisterLibFunc(&vpxCodecVP9DX, h, "vpx_codec_vp9_dx")
	}

	purego.RegisterLibFunc(&vpxCodecEncConfigDefault, h, "vpx_codec_enc_config_default")
	purego.RegisterLibFunc(&vpxCodecEncInitVer, h, "vpx_codec_enc_init_ver")
	purego.RegisterLibFunc(&vpxCodecDecInitVer, h, "vpx_codec_dec_init_ver")
	purego.RegisterLibFunc(&vpxCodecEncode, h, "vpx_codec_encode")
	purego.RegisterLibFunc(&vpxCodecGetCxData, h, "vpx_codec_get_cx_data")
	purego.RegisterLibFunc(&vpxCodecDecode, h, "vpx_codec_decode")
	purego.RegisterLibFunc(&vpxCodecGetFrame, h, "vpx_codec_get_frame")
	purego.RegisterLibFunc(&vpxCodecDestroy, h, "vpx_codec_destroy")
	purego.RegisterLibFunc(&vpxImgWrap, h, "vpx_img_wrap")
	purego.RegisterLibFunc(&vpxCodecErrToString, h, "vpx_codec_err_to_string")
	purego.RegisterLibFunc(&vpxCodecErrorDetail, h, "vpx_codec_error_detail")
	purego.RegisterLibFunc(&vpxCodecVersionStr, h, "vpx_codec_version_str")
	return nil
}

func vpxVersionString() string {
	return goStringFromPtr(vpxCodecVersionStr())
}

func vpxCodecAvailable(codec VideoCodec) bool {
	switch codec {
	case VideoCodecVP8:
		return vpxCodecVP8CX != nil
	case VideoCodecVP9:
		return vpxCodecVP9CX != nil
	default:
		return false
	}
}

func vpxInterfaces(codec VideoCodec) (cx, dx uintptr, err error) {
	switch {
	case codec == VideoCodecVP8:
		return vpxCodecVP8CX(), vpxCodecVP8DX(), nil
	case codec == VideoCodecVP9 && vpxCodecVP9CX != nil:
		return vpxCodecVP9CX(), vpxCodecVP9DX(), nil
	default:
		return 0, 0, ErrCodecNotSupported
	}
}

func vpxError(op string, code int32, ctx *vpxCodecCtx) error {
	e := &CodecError{
		Op:      op,
		Code:    int(code),
		Message: goStringFromPtr(vpxCodecErrToString(code)),
	}
	if ctx != nil {
		e.Detail = goStringFromPtr(vpxCodecErrorDetail(uintptr(unsafe.Pointer(ctx))))
	}
	return e
}

// vpxInitProbe calls init with the ABI version the library accepts.
// libvpx checks the version before touching its arguments, so a mismatch is
// side-effect free and the candidates can simply be tried in order.
func vpxInitProbe(cached *atomic.Int32, env string, init func(ver int32) int32) int32 {
	if v := cached.Load(); v != 0 {
		return init(v)
	}
	if s := os.Getenv(env); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			res := init(int32(v))
			if res != vpxCodecABIMismatch {
				cached.Store(int32(v))
			}
			return res
		}
	}
	for ver := int32(1); ver <= vpxMaxABIProbe; ver++ {
		res := init(ver)
		if res == vpxCodecABIMismatch {
			continue
		}
		logger().Debugf("%s: libvpx accepted ABI version %d", env, ver)
		cached.Store(ver)
		return res
	}
	return vpxCodecABIMismatch
}

// vpxEncoderHandle owns a libvpx encoder context and its input image.
type vpxEncoderHandle struct {
	ctx      *vpxCodecCtx
	cfg      *[vpxEncCfgWords]uint64
	img      *[vpxImageStructWords]uint64
	frame    []byte // contiguous I420 input
	in       *Image // views into frame
	iter     uintptr
	deadline uint64
}

func (h *vpxEncoderHandle) setCfg(offset uintptr, v uint32) {
	*(*uint32)(unsafe.Add(unsafe.Pointer(h.cfg), offset)) = v
}

func newVPXEncoderHandle(config EncoderConfig) (*vpxEncoderHandle, error) {
	if err := vpxLoad(); err != nil {
		return nil, err
	}
	iface, _, err := vpxInterfaces(config.Codec)
	if err != nil {
		return nil, err
	}

	h := &vpxEncoderHandle{
		ctx:      &vpxCodecCtx{},
		cfg:      &[vpxEncCfgWords]uint64{},
		img:      &[vpxImageStructWords]uint64{},
		frame:    make([]byte, i420WrapSize(config.Width, config.Height)),
		deadline: vpxDLGoodQuality,
	}
	if config.Realtime {
		h.deadline = vpxDLRealtime
	}

	cfgPtr := uintptr(unsafe.Pointer(h.cfg))
	if res := vpxCodecEncConfigDefault(iface, cfgPtr, 0); res != vpxCodecOK {
		return nil, vpxError("enc_config_default", res, nil)
	}
	h.setCfg(cfgGThreads, uint32(config.Threads))
	h.setCfg(cfgGW, uint32(config.Width))
	h.setCfg(cfgGH, uint32(config.Height))
	h.setCfg(cfgGTimebaseNum, 1)
	h.setCfg(cfgGTimebaseDen, uint32(config.FPS))
	h.setCfg(cfgGLagInFrames, 0)
	h.setCfg(cfgRCEndUsage, vpxRCModeCBR)
	h.setCfg(cfgRCTargetBitrate, uint32(config.BitrateBps/1000))
	if config.ErrorResilient {
		h.setCfg(cfgGErrorResilient, vpxErrorResilient)
	}

	ctxPtr := uintptr(unsafe.Pointer(h.ctx))
	res := vpxInitProbe(&vpxEncoderABI, "XCODEC_VPX_ENCODER_ABI", func(ver int32) int32 {
		return vpxCodecEncInitVer(ctxPtr, iface, cfgPtr, 0, ver)
	})
	runtime.KeepAlive(h)
	if res != vpxCodecOK {
		return nil, vpxError("enc_init", res, h.ctx)
	}

	if vpxImgWrap(uintptr(unsafe.Pointer(h.img)), vpxImgFmtI420,
		uint32(config.Width), uint32(config.Height), 1, bytesPtr(h.frame)) == 0 {
		vpxCodecDestroy(ctxPtr)
		return nil, &CodecError{Op: "img_wrap", Code: -1, Message: "cannot wrap input image"}
	}
	h.in = wrapI420(h.frame, config.Width, config.Height)
	return h, nil
}

func (h *vpxEncoderHandle) input() *Image {
	return h.in
}

// encode compresses the current input image and appends every frame packet to out.
func (h *vpxEncoderHandle) encode(pts int64, forceKeyframe bool, out []byte) ([]byte, FrameType, error) {
	var flags int64
	if forceKeyframe {
		flags = vpxEflagForceKF
	}

	ctxPtr := uintptr(unsafe.Pointer(h.ctx))
	res := vpxCodecEncode(ctxPtr, uintptr(unsafe.Pointer(h.img)), pts, 1, flags, h.deadline)
	runtime.KeepAlive(h.frame)
	if res != vpxCodecOK {
		return out, FrameTypeUnknown, vpxError("encode", res, h.ctx)
	}

	ft := FrameTypeUnknown
	h.iter = 0
	for {
		p := vpxCodecGetCxData(ctxPtr, uintptr(unsafe.Pointer(&h.iter)))
		if p == 0 {
			break
		}
		pkt := (*vpxCxPkt)(unsafe.Pointer(p))
		if pkt.kind != vpxCodecCxFramePkt {
			continue
		}
		out = append(out, unsafe.Slice((*byte)(unsafe.Pointer(pkt.buf)), int(pkt.sz))...)
		if pkt.flags&vpxFrameIsKey != 0 {
			ft = FrameTypeKey
		} else if ft == FrameTypeUnknown {
			ft = FrameTypeDelta
		}
	}
	runtime.KeepAlive(h)
	return out, ft, nil
}

func (h *vpxEncoderHandle) close() {
	vpxCodecDestroy(uintptr(unsafe.Pointer(h.ctx)))
	runtime.KeepAlive(h)
}

// vpxDecoderHandle owns a libvpx decoder context.
type vpxDecoderHandle struct {
	ctx  *vpxCodecCtx
	cfg  *vpxDecCfg
	iter uintptr
	out  Image // views into libvpx memory, valid until the next decode
}

func newVPXDecoderHandle(config DecoderConfig) (*vpxDecoderHandle, error) {
	if err := vpxLoad(); err != nil {
		return nil, err
	}
	_, iface, err := vpxInterfaces(config.Codec)
	if err != nil {
		return nil, err
	}

	h := &vpxDecoderHandle{
		ctx: &vpxCodecCtx{},
		cfg: &vpxDecCfg{
			threads: uint32(config.Threads),
			w:       uint32(config.Width),
			h:       uint32(config.Height),
		},
	}
	ctxPtr := uintptr(unsafe.Pointer(h.ctx))
	cfgPtr := uintptr(unsafe.Pointer(h.cfg))
	res := vpxInitProbe(&vpxDecoderABI, "XCODEC_VPX_DECODER_ABI", func(ver int32) int32 {
		return vpxCodecDecInitVer(ctxPtr, iface, cfgPtr, 0, ver)
	})
	runtime.KeepAlive(h)
	if res != vpxCodecOK {
		return nil, vpxError("dec_init", res, h.ctx)
	}
	return h, nil
}

// decode feeds data to libvpx and returns the last frame it produced, or nil.
func (h *vpxDecoderHandle) decode(data []byte) (*Image, error) {
	ctxPtr := uintptr(unsafe.Pointer(h.ctx))
	res := vpxCodecDecode(ctxPtr, bytesPtr(data), uint32(len(data)), 0, 0)
	runtime.KeepAlive(data)
	if res != vpxCodecOK {
		return nil, vpxError("decode", res, h.ctx)
	}

	var img *vpxImage
	h.iter = 0
	for {
		p := vpxCodecGetFrame(ctxPtr, uintptr(unsafe.Pointer(&h.iter)))
		if p == 0 {
			break
		}
		img = (*vpxImage)(unsafe.Pointer(p))
	}
	runtime.KeepAlive(h)
	if img == nil {
		return nil, nil
	}

	w, ht := int(img.dW), int(img.dH)
	if img.fmt != vpxImgFmtI420 || w <= 0 || ht <= 0 || img.planes[0] == 0 {
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
	vpxCodecDestroy(uintptr(unsafe.Pointer(h.ctx)))
	runtime.KeepAlive(h)
}
