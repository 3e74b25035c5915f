// Core image and frame types used across the xcodec package.
package xcodec

import "fmt"

// PixelFormat represents raw image pixel formats.
type PixelFormat int

const (
	PixelFormatI420  PixelFormat = iota // YUV 4:2:0 planar (Y + U + V)
	PixelFormatRGB24                    // Packed RGB, 3 bytes per pixel
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatI420:
		return "I420"
	case PixelFormatRGB24:
		return "RGB24"
	default:
		return "Unknown"
	}
}

// PlaneCount returns the number of planes for this pixel format.
func (p PixelFormat) PlaneCount() int {
	switch p {
	case PixelFormatI420:
		return 3 // Y, U, V
	case PixelFormatRGB24:
		return 1 // Packed
	default:
		return 0
	}
}

// chromaSize returns the I420 chroma plane dimensions for a luma size.
// Odd sizes round up so the last column and row keep their chroma sample.
func chromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// I420Size returns the total buffer size needed for a tightly packed I420 image.
func I420Size(width, height int) int {
	cw, ch := chromaSize(width, height)
	return width*height + 2*cw*ch
}

// RGB24Size returns the buffer size of an RGB24 image with the given stride.
// The last row only needs width*3 bytes.
func RGB24Size(width, height, stride int) int {
	if height <= 0 {
		return 0
	}
	return stride*(height-1) + width*3
}

// Image is a raw image. Planes may point into memory owned by a codec
// context; such images are only valid until the next call on that context.
type Image struct {
	Planes  [3][]byte   // Plane data (1 plane for RGB24, 3 for I420)
	Strides [3]int      // Stride of each plane in bytes
	Width   int         // Width in pixels
	Height  int         // Height in pixels
	Format  PixelFormat // Pixel format
}

// NewImage allocates a tightly packed image.
func NewImage(width, height int, format PixelFormat) *Image {
	img := &Image{Width: width, Height: height, Format: format}
	switch format {
	case PixelFormatI420:
		cw, ch := chromaSize(width, height)
		img.Planes[0] = make([]byte, width*height)
		img.Planes[1] = make([]byte, cw*ch)
		img.Planes[2] = make([]byte, cw*ch)
		img.Strides = [3]int{width, cw, cw}
	case PixelFormatRGB24:
		img.Planes[0] = make([]byte, width*height*3)
		img.Strides[0] = width * 3
	}
	return img
}

// RGB24Image wraps a packed RGB24 buffer without copying.
func RGB24Image(data []byte, width, height, stride int) *Image {
	return &Image{
		Planes:  [3][]byte{data},
		Strides: [3]int{stride},
		Width:   width,
		Height:  height,
		Format:  PixelFormatRGB24,
	}
}

// Validate checks that every plane is large enough for the declared geometry.
func (img *Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, img.Width, img.Height)
	}
	switch img.Format {
	case PixelFormatRGB24:
		if img.Strides[0] < img.Width*3 {
			return fmt.Errorf("%w: stride %d < %d", ErrInvalidGeometry, img.Strides[0], img.Width*3)
		}
		if len(img.Planes[0]) < RGB24Size(img.Width, img.Height, img.Strides[0]) {
			return fmt.Errorf("%w: rgb24 plane %d bytes", ErrBufferTooSmall, len(img.Planes[0]))
		}
	case PixelFormatI420:
		cw, ch := chromaSize(img.Width, img.Height)
		want := [3][2]int{{img.Width, img.Height}, {cw, ch}, {cw, ch}}
		for i, wh := range want {
			if img.Strides[i] < wh[0] {
				return fmt.Errorf("%w: plane %d stride %d < %d", ErrInvalidGeometry, i, img.Strides[i], wh[0])
			}
			if len(img.Planes[i]) < img.Strides[i]*(wh[1]-1)+wh[0] {
				return fmt.Errorf("%w: plane %d has %d bytes", ErrBufferTooSmall, i, len(img.Planes[i]))
			}
		}
	default:
		return fmt.Errorf("%w: pixel format %s", ErrCodecNotSupported, img.Format)
	}
	return nil
}

// FrameType indicates whether a frame is a keyframe or delta frame.
type FrameType int

const (
	FrameTypeUnknown FrameType = iota
	FrameTypeKey               // Can be decoded independently
	FrameTypeDelta             // Requires previous frames
)

func (f FrameType) String() string {
	switch f {
	case FrameTypeKey:
		return "Key"
	case FrameTypeDelta:
		return "Delta"
	default:
		return "Unknown"
	}
}

// EncodedFrame holds compressed video data.
// When produced by an Encoder, Data is the encoder's output slot and is
// only valid until the next CompressImage call.
type EncodedFrame struct {
	Data      []byte    // Compressed bitstream
	FrameType FrameType // Key or delta frame
	Timestamp uint32    // RTP timestamp (90kHz clock)
}

// IsKeyframe returns true if this is a keyframe.
func (f *EncodedFrame) IsKeyframe() bool {
	return f.FrameType == FrameTypeKey
}

// Clone creates a deep copy of the encoded frame.
func (f *EncodedFrame) Clone() *EncodedFrame {
	clone := &EncodedFrame{
		FrameType: f.FrameType,
		Timestamp: f.Timestamp,
	}
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return clone
}

// i420WrapSize is the size of a contiguous I420 buffer whose luma plane is
// padded to even dimensions, the layout libvpx uses for wrapped images.
func i420WrapSize(width, height int) int {
	cw, ch := chromaSize(width, height)
	return 4*cw*ch + 2*cw*ch
}

// wrapI420 describes buf, laid out as in i420WrapSize, as an I420 image.
func wrapI420(buf []byte, width, height int) *Image {
	cw, ch := chromaSize(width, height)
	ySize := 4 * cw * ch
	cSize := cw * ch
	return &Image{
		Planes: [3][]byte{
			buf[:ySize],
			buf[ySize : ySize+cSize],
			buf[ySize+cSize : ySize+2*cSize],
		},
		Strides: [3]int{2 * cw, cw, cw},
		Width:   width,
		Height:  height,
		Format:  PixelFormatI420,
	}
}
