package xcodec

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Common errors
var (
	ErrClosed            = errors.New("codec context closed")
	ErrEmptyInput        = errors.New("empty input")
	ErrNoFrame           = errors.New("decoder produced no frame")
	ErrInvalidGeometry   = errors.New("invalid image geometry")
	ErrGeometryMismatch  = errors.New("image geometry does not match context")
	ErrBufferTooSmall    = errors.New("buffer too small")
	ErrCodecNotSupported = errors.New("codec not supported")
	ErrLibraryNotLoaded  = errors.New("native library not loaded")
	ErrUnknownCodec      = errors.New("unknown codec")
)

// maxDimension is the largest width or height VP8 can signal.
const maxDimension = 16383

// CodecError is a failure reported by a native codec library.
// Code is the library's own status value, passed through unchanged.
type CodecError struct {
	Op      string // Operation that failed, e.g. "encode"
	Code    int    // Native status code (vpx_codec_err_t for libvpx)
	Message string // Library description of Code
	Detail  string // Optional extra detail from the library
}

func (e *CodecError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed (%d): %s: %s", e.Op, e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Code, e.Message)
}

// Is reports whether target is a *CodecError with the same code.
func (e *CodecError) Is(target error) bool {
	t, ok := target.(*CodecError)
	return ok && t.Code == e.Code
}

// EncoderConfig configures a VPx encoding context.
type EncoderConfig struct {
	Codec            VideoCodec // VP8 or VP9
	Width            int        // Frame width, fixed for the context lifetime
	Height           int        // Frame height, fixed for the context lifetime
	FPS              int        // Frame rate used for the codec time base
	BitrateBps       int        // Target bitrate in bits per second
	Threads          int        // Encoder threads (0 = 4)
	KeyframeInterval int        // Force a keyframe every N frames (0 = codec decides)
	Realtime         bool       // Use the realtime deadline instead of good quality
	ErrorResilient   bool       // Enable error resilient bitstream mode
}

// DefaultEncoderConfig returns a default encoder configuration.
func DefaultEncoderConfig(codec VideoCodec, width, height int) EncoderConfig {
	return EncoderConfig{
		Codec:      codec,
		Width:      width,
		Height:     height,
		FPS:        30,
		BitrateBps: 1500000, // 1.5 Mbps
		Threads:    4,
		Realtime:   true,
	}
}

// DecoderConfig configures a VPx decoding context.
type DecoderConfig struct {
	Codec   VideoCodec // VP8 or VP9
	Width   int        // Expected frame width
	Height  int        // Expected frame height
	Threads int        // Decoder threads (0 = 4)
}

// DefaultDecoderConfig returns a default decoder configuration.
func DefaultDecoderConfig(codec VideoCodec, width, height int) DecoderConfig {
	return DecoderConfig{
		Codec:   codec,
		Width:   width,
		Height:  height,
		Threads: 4,
	}
}

func checkGeometry(width, height int) error {
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}
	return nil
}

// EncoderStats provides encoding metrics.
type EncoderStats struct {
	FramesEncoded    uint64 // Frames that produced output
	KeyframesEncoded uint64 // Keyframes among them
	BytesEncoded     uint64 // Total compressed bytes
	DroppedFrames    uint64 // Frames for which the codec produced no output
}

// DecoderStats provides decoding metrics.
type DecoderStats struct {
	FramesDecoded   uint64 // Frames converted to RGB24
	BytesDecoded    uint64 // Total compressed bytes consumed
	CorruptedFrames uint64 // Inputs the codec rejected
}

// Encoder is an encoding context for RGB24 images of a fixed size.
// Calls on one Encoder are serialized; independent encoders may run in parallel.
type Encoder struct {
	mu     sync.Mutex
	config EncoderConfig
	handle *vpxEncoderHandle
	csc    Converter

	out      []byte // output slot, overwritten by every call
	pts      int64
	lastType FrameType
	stats    EncoderStats

	keyframeReq atomic.Bool
}

// InitEncoder creates a VP8 encoding context for images of the given size.
func InitEncoder(width, height int) (*Encoder, error) {
	return NewEncoder(DefaultEncoderConfig(VideoCodecVP8, width, height))
}

// NewEncoder creates an encoding context from config.
func NewEncoder(config EncoderConfig) (*Encoder, error) {
	if err := checkGeometry(config.Width, config.Height); err != nil {
		return nil, err
	}
	if config.Codec != VideoCodecVP8 && config.Codec != VideoCodecVP9 {
		return nil, fmt.Errorf("%w: %s", ErrCodecNotSupported, config.Codec)
	}
	if config.FPS <= 0 {
		config.FPS = 30
	}
	if config.BitrateBps <= 0 {
		config.BitrateBps = 1500000
	}
	if config.Threads <= 0 {
		config.Threads = 4
	}

	handle, err := newVPXEncoderHandle(config)
	if err != nil {
		return nil, fmt.Errorf("%s encoder init: %w", config.Codec, err)
	}

	csc, err := NewConverter(config.Width, config.Height, PixelFormatRGB24,
		config.Width, config.Height, PixelFormatI420)
	if err != nil {
		handle.close()
		return nil, err
	}

	e := &Encoder{
		config: config,
		handle: handle,
		csc:    csc,
		out:    make([]byte, 0, I420Size(config.Width, config.Height)/2),
	}
	e.keyframeReq.Store(true)
	logger().Debugf("%s encoder ready: %dx%d, %d bps, csc=%s",
		config.Codec, config.Width, config.Height, config.BitrateBps, csc)
	return e, nil
}

// CompressImage compresses one packed RGB24 image. The returned slice is the
// context's output slot: it must not be retained past the next call on e.
// A nil slice with a nil error means the codec dropped the frame.
func (e *Encoder) CompressImage(in []byte, width, height, stride int) ([]byte, error) {
	frame, err := e.CompressFrame(in, width, height, stride)
	if err != nil {
		return nil, err
	}
	return frame.Data, nil
}

// CompressFrame is CompressImage returning frame type and RTP timestamp as well.
func (e *Encoder) CompressFrame(in []byte, width, height, stride int) (EncodedFrame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return EncodedFrame{}, ErrClosed
	}
	if width != e.config.Width || height != e.config.Height {
		return EncodedFrame{}, fmt.Errorf("%w: got %dx%d, context is %dx%d",
			ErrGeometryMismatch, width, height, e.config.Width, e.config.Height)
	}
	src := RGB24Image(in, width, height, stride)
	if err := src.Validate(); err != nil {
		return EncodedFrame{}, err
	}

	if err := e.csc.Convert(e.handle.input(), src); err != nil {
		return EncodedFrame{}, err
	}

	force := e.keyframeReq.Swap(false)
	if n := int64(e.config.KeyframeInterval); n > 0 && e.pts%n == 0 {
		force = true
	}

	pts := e.pts
	e.pts++
	out, ft, err := e.handle.encode(pts, force, e.out[:0])
	e.out = out
	if err != nil {
		return EncodedFrame{}, err
	}

	frame := EncodedFrame{
		FrameType: ft,
		Timestamp: uint32(pts * 90000 / int64(e.config.FPS)),
	}
	if len(out) == 0 {
		e.stats.DroppedFrames++
		return frame, nil
	}

	e.lastType = ft
	e.stats.FramesEncoded++
	e.stats.BytesEncoded += uint64(len(out))
	if ft == FrameTypeKey {
		e.stats.KeyframesEncoded++
	}
	frame.Data = out
	return frame, nil
}

// RequestKeyframe forces the next frame to be a keyframe.
func (e *Encoder) RequestKeyframe() {
	e.keyframeReq.Store(true)
}

// LastFrameType returns the type of the most recent non-empty output.
func (e *Encoder) LastFrameType() FrameType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastType
}

// Config returns the encoder configuration.
func (e *Encoder) Config() EncoderConfig {
	return e.config
}

// Stats returns encoding statistics.
func (e *Encoder) Stats() EncoderStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Close releases the native context. Only the first call has an effect.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return nil
	}
	e.handle.close()
	e.handle = nil
	e.out = nil
	return e.csc.Close()
}

// Decoder is a decoding context producing RGB24 images of a fixed size.
// Calls on one Decoder are serialized; independent decoders may run in parallel.
type Decoder struct {
	mu     sync.Mutex
	config DecoderConfig
	handle *vpxDecoderHandle
	csc    Converter

	out   *Image // RGB24 output slot, overwritten by every call
	stats DecoderStats
}

// InitDecoder creates a VP8 decoding context for images of the given size.
func InitDecoder(width, height int) (*Decoder, error) {
	return NewDecoder(DefaultDecoderConfig(VideoCodecVP8, width, height))
}

// NewDecoder creates a decoding context from config.
func NewDecoder(config DecoderConfig) (*Decoder, error) {
	if err := checkGeometry(config.Width, config.Height); err != nil {
		return nil, err
	}
	if config.Codec != VideoCodecVP8 && config.Codec != VideoCodecVP9 {
		return nil, fmt.Errorf("%w: %s", ErrCodecNotSupported, config.Codec)
	}
	if config.Threads <= 0 {
		config.Threads = 4
	}

	handle, err := newVPXDecoderHandle(config)
	if err != nil {
		return nil, fmt.Errorf("%s decoder init: %w", config.Codec, err)
	}

	csc, err := NewConverter(config.Width, config.Height, PixelFormatI420,
		config.Width, config.Height, PixelFormatRGB24)
	if err != nil {
		handle.close()
		return nil, err
	}

	logger().Debugf("%s decoder ready: %dx%d, csc=%s", config.Codec, config.Width, config.Height, csc)
	return &Decoder{
		config: config,
		handle: handle,
		csc:    csc,
		out:    NewImage(config.Width, config.Height, PixelFormatRGB24),
	}, nil
}

// DecompressImage decodes one compressed frame into packed RGB24.
// The returned slice is the context's output slot and must not be retained
// past the next call on d. len(out) is the output size.
func (d *Decoder) DecompressImage(in []byte) (out []byte, stride int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return nil, 0, ErrClosed
	}
	if len(in) == 0 {
		return nil, 0, ErrEmptyInput
	}
	// Reject resized VP8 keyframes before libvpx reallocates its buffers
	if d.config.Codec == VideoCodecVP8 {
		if w, h, ok := vp8KeyframeSize(in); ok && (w != d.config.Width || h != d.config.Height) {
			return nil, 0, fmt.Errorf("%w: keyframe is %dx%d, context is %dx%d",
				ErrGeometryMismatch, w, h, d.config.Width, d.config.Height)
		}
	}

	img, err := d.handle.decode(in)
	if err != nil {
		d.stats.CorruptedFrames++
		return nil, 0, err
	}
	if img == nil {
		return nil, 0, ErrNoFrame
	}
	if img.Width != d.config.Width || img.Height != d.config.Height {
		return nil, 0, fmt.Errorf("%w: decoded %dx%d, context is %dx%d",
			ErrGeometryMismatch, img.Width, img.Height, d.config.Width, d.config.Height)
	}

	if err := d.csc.Convert(d.out, img); err != nil {
		return nil, 0, err
	}

	d.stats.FramesDecoded++
	d.stats.BytesDecoded += uint64(len(in))
	return d.out.Planes[0], d.out.Strides[0], nil
}

// Config returns the decoder configuration.
func (d *Decoder) Config() DecoderConfig {
	return d.config
}

// Stats returns decoding statistics.
func (d *Decoder) Stats() DecoderStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close releases the native context. Only the first call has an effect.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return nil
	}
	d.handle.close()
	d.handle = nil
	return d.csc.Close()
}

// VPXVersion returns the version string of the loaded libvpx, or "" when
// libvpx is unavailable.
func VPXVersion() string {
	if vpxLoad() != nil {
		return ""
	}
	return vpxVersionString()
}

// IsVPXAvailable reports whether libvpx can be used.
func IsVPXAvailable() bool {
	return vpxLoad() == nil
}

// IsVP8Available reports whether libvpx was built with VP8 support.
func IsVP8Available() bool {
	return vpxLoad() == nil && vpxCodecAvailable(VideoCodecVP8)
}

// IsVP9Available reports whether libvpx was built with VP9 support.
func IsVP9Available() bool {
	return vpxLoad() == nil && vpxCodecAvailable(VideoCodecVP9)
}
