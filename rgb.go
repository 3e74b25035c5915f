package xcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how the lossless "rgb" encoding compresses pixels.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZlib
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// RGBEncoder produces the lossless "rgb" encoding: rows packed tightly
// (stride = width*3) and optionally compressed.
// Like Encoder, an RGBEncoder reuses one output slot.
type RGBEncoder struct {
	mu          sync.Mutex
	compression Compression

	packed []byte
	out    bytes.Buffer
	slot   []byte
	zw     *zlib.Writer
	zenc   *zstd.Encoder
	closed bool
}

// NewRGBEncoder creates an encoder for the given compression.
func NewRGBEncoder(compression Compression) (*RGBEncoder, error) {
	e := &RGBEncoder{compression: compression}
	switch compression {
	case CompressionNone:
	case CompressionZlib:
		zw, err := zlib.NewWriterLevel(io.Discard, zlib.BestSpeed)
		if err != nil {
			return nil, err
		}
		e.zw = zw
	case CompressionZstd:
		e.zenc = mustNewZstdEncoder()
	default:
		return nil, fmt.Errorf("%w: rgb compression %d", ErrCodecNotSupported, int(compression))
	}
	return e, nil
}

// Compression returns the compression used by e.
func (e *RGBEncoder) Compression() Compression {
	return e.compression
}

// Encode packs and compresses one RGB24 image. The returned slice is only
// valid until the next call on e.
func (e *RGBEncoder) Encode(in []byte, width, height, stride int) ([]byte, error) {
	src := RGB24Image(in, width, height, stride)
	if err := src.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	rowLen := width * 3
	if cap(e.packed) < rowLen*height {
		e.packed = make([]byte, rowLen*height)
	}
	e.packed = e.packed[:rowLen*height]
	if stride == rowLen {
		copy(e.packed, in[:rowLen*height])
	} else {
		for y := 0; y < height; y++ {
			copy(e.packed[y*rowLen:(y+1)*rowLen], in[y*stride:])
		}
	}

	switch e.compression {
	case CompressionZlib:
		e.out.Reset()
		e.zw.Reset(&e.out)
		if _, err := e.zw.Write(e.packed); err != nil {
			return nil, err
		}
		if err := e.zw.Close(); err != nil {
			return nil, err
		}
		return e.out.Bytes(), nil
	case CompressionZstd:
		e.slot = e.zenc.EncodeAll(e.packed, e.slot[:0])
		return e.slot, nil
	default:
		return e.packed, nil
	}
}

// Close releases compressor state.
func (e *RGBEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.zenc != nil {
		err := e.zenc.Close()
		e.zenc = nil
		return err
	}
	return nil
}

// DecodeRGB reverses RGBEncoder.Encode, returning packed RGB24 with stride width*3.
func DecodeRGB(data []byte, width, height int, compression Compression) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if err := checkGeometry(width, height); err != nil {
		return nil, err
	}
	want := width * height * 3

	var out []byte
	switch compression {
	case CompressionNone:
		out = data
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("rgb zlib: %w", err)
		}
		defer zr.Close()
		out = make([]byte, want)
		if _, err := io.ReadFull(zr, out); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: rgb zlib payload shorter than %dx%d needs", ErrBufferTooSmall, width, height)
			}
			return nil, fmt.Errorf("rgb zlib: %w", err)
		}
		// The stream must end exactly at want bytes.
		var extra [1]byte
		n, err := zr.Read(extra[:])
		if n != 0 {
			return nil, fmt.Errorf("%w: rgb zlib payload exceeds the %d bytes %dx%d needs",
				ErrBufferTooSmall, want, width, height)
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("rgb zlib: %w", err)
		}
	case CompressionZstd:
		if size, ok := zstdContentSize(data); ok && size != uint64(want) {
			return nil, fmt.Errorf("%w: rgb zstd frame declares %d bytes, %dx%d needs %d",
				ErrBufferTooSmall, size, width, height, want)
		}
		dec := zstdDecPool.Get().(*zstd.Decoder)
		var err error
		out, err = dec.DecodeAll(data, make([]byte, 0, want))
		zstdDecPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("rgb zstd: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: rgb compression %d", ErrCodecNotSupported, int(compression))
	}

	if len(out) != want {
		return nil, fmt.Errorf("%w: rgb payload has %d bytes, %dx%d needs %d",
			ErrBufferTooSmall, len(out), width, height, want)
	}
	return out, nil
}

// maxRGBSize bounds decoder output to the largest frame checkGeometry accepts.
const maxRGBSize = maxDimension * maxDimension * 3

// zstdContentSize returns the content size declared in the first frame header.
func zstdContentSize(data []byte) (uint64, bool) {
	var h zstd.Header
	if err := h.Decode(data); err != nil || !h.HasFCS {
		return 0, false
	}
	return h.FrameContentSize, true
}

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(maxRGBSize),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

var zstdDecPool = sync.Pool{
	New: func() any {
		return mustNewZstdDecoder()
	},
}
