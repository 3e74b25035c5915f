package xcodec

import (
	"fmt"
	"sync"
)

// Converter converts images between pixel formats, rescaling when the
// source and destination sizes differ.
type Converter interface {
	// Convert writes src, converted, into dst. Both must match the
	// geometry and formats the converter was created for.
	Convert(dst, src *Image) error
	// Native reports whether conversion runs in libswscale.
	Native() bool
	Close() error
	String() string
}

type cscKey struct {
	srcW, srcH int
	srcFmt     PixelFormat
	dstW, dstH int
	dstFmt     PixelFormat
}

func (k cscKey) String() string {
	return fmt.Sprintf("%s %dx%d -> %s %dx%d", k.srcFmt, k.srcW, k.srcH, k.dstFmt, k.dstW, k.dstH)
}

func (k cscKey) check(dst, src *Image) error {
	if src.Format != k.srcFmt || dst.Format != k.dstFmt {
		return fmt.Errorf("%w: converter %s got %s -> %s", ErrCodecNotSupported, k, src.Format, dst.Format)
	}
	if src.Width != k.srcW || src.Height != k.srcH || dst.Width != k.dstW || dst.Height != k.dstH {
		return fmt.Errorf("%w: converter %s got %dx%d -> %dx%d",
			ErrGeometryMismatch, k, src.Width, src.Height, dst.Width, dst.Height)
	}
	if err := src.Validate(); err != nil {
		return err
	}
	return dst.Validate()
}

var supportedConversions = map[[2]PixelFormat]bool{
	{PixelFormatRGB24, PixelFormatI420}:  true,
	{PixelFormatI420, PixelFormatRGB24}:  true,
	{PixelFormatI420, PixelFormatI420}:   true,
	{PixelFormatRGB24, PixelFormatRGB24}: true,
}

// NewConverter returns a libswscale converter when libswscale can be loaded
// and the pure Go converter otherwise.
func NewConverter(srcW, srcH int, srcFmt PixelFormat, dstW, dstH int, dstFmt PixelFormat) (Converter, error) {
	key := cscKey{srcW, srcH, srcFmt, dstW, dstH, dstFmt}
	if err := checkConversion(key); err != nil {
		return nil, err
	}

	h, err := newSwsHandle(srcW, srcH, srcFmt, dstW, dstH, dstFmt)
	if err == nil {
		return &swscaleConverter{key: key, handle: h}, nil
	}
	logger().Debugf("csc %s: libswscale unavailable, using Go converter: %v", key, err)
	return newGoConverter(key), nil
}

// NewGoConverter returns the pure Go converter (BT.601, bilinear scaling)
// regardless of libswscale availability.
func NewGoConverter(srcW, srcH int, srcFmt PixelFormat, dstW, dstH int, dstFmt PixelFormat) (Converter, error) {
	key := cscKey{srcW, srcH, srcFmt, dstW, dstH, dstFmt}
	if err := checkConversion(key); err != nil {
		return nil, err
	}
	return newGoConverter(key), nil
}

func checkConversion(k cscKey) error {
	if err := checkGeometry(k.srcW, k.srcH); err != nil {
		return err
	}
	if err := checkGeometry(k.dstW, k.dstH); err != nil {
		return err
	}
	if !supportedConversions[[2]PixelFormat{k.srcFmt, k.dstFmt}] {
		return fmt.Errorf("%w: %s -> %s", ErrCodecNotSupported, k.srcFmt, k.dstFmt)
	}
	return nil
}

type swscaleConverter struct {
	mu     sync.Mutex
	key    cscKey
	handle *swsHandle
}

func (c *swscaleConverter) Convert(dst, src *Image) error {
	if err := c.key.check(dst, src); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ErrClosed
	}
	return c.handle.scale(dst, src)
}

func (c *swscaleConverter) Native() bool { return true }

func (c *swscaleConverter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.close()
		c.handle = nil
	}
	return nil
}

func (c *swscaleConverter) String() string { return "swscale" }

// goConverter scales in the source format first, then converts colour.
type goConverter struct {
	mu     sync.Mutex
	key    cscKey
	scaler *ImageScaler // nil when sizes match
	closed bool
}

func newGoConverter(key cscKey) *goConverter {
	c := &goConverter{key: key}
	if key.srcW != key.dstW || key.srcH != key.dstH {
		c.scaler = NewImageScaler(key.srcW, key.srcH, key.dstW, key.dstH, key.srcFmt, ScaleModeStretch)
	}
	return c
}

func (c *goConverter) Convert(dst, src *Image) error {
	if err := c.key.check(dst, src); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if c.scaler != nil {
		if c.key.srcFmt == c.key.dstFmt {
			return c.scaler.ScaleInto(dst, src)
		}
		scaled, err := c.scaler.Scale(src)
		if err != nil {
			return err
		}
		src = scaled
	}

	switch {
	case src.Format == dst.Format:
		copyImage(dst, src)
	case src.Format == PixelFormatRGB24:
		rgbToI420(dst, src)
	default:
		i420ToRGB(dst, src)
	}
	return nil
}

func (c *goConverter) Native() bool { return false }

func (c *goConverter) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *goConverter) String() string { return "go" }

func clip8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// rgbToI420 converts with integer BT.601 studio swing coefficients.
// Chroma is the average of each 2x2 block, clipped at odd edges.
func rgbToI420(dst, src *Image) {
	w, h := src.Width, src.Height
	rgb, rs := src.Planes[0], src.Strides[0]
	yp, ys := dst.Planes[0], dst.Strides[0]

	for y := 0; y < h; y++ {
		row := rgb[y*rs:]
		out := yp[y*ys:]
		for x := 0; x < w; x++ {
			r, g, b := int(row[x*3]), int(row[x*3+1]), int(row[x*3+2])
			out[x] = byte(((66*r + 129*g + 25*b + 128) >> 8) + 16)
		}
	}

	cw, ch := chromaSize(w, h)
	up, us := dst.Planes[1], dst.Strides[1]
	vp, vs := dst.Planes[2], dst.Strides[2]
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var r, g, b, n int
			for dy := 0; dy < 2; dy++ {
				sy := 2*cy + dy
				if sy >= h {
					break
				}
				for dx := 0; dx < 2; dx++ {
					sx := 2*cx + dx
					if sx >= w {
						break
					}
					p := rgb[sy*rs+sx*3:]
					r += int(p[0])
					g += int(p[1])
					b += int(p[2])
					n++
				}
			}
			r, g, b = r/n, g/n, b/n
			up[cy*us+cx] = clip8(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
			vp[cy*vs+cx] = clip8(((112*r - 94*g - 18*b + 128) >> 8) + 128)
		}
	}
}

// i420ToRGB is the inverse of rgbToI420.
func i420ToRGB(dst, src *Image) {
	w, h := src.Width, src.Height
	yp, ys := src.Planes[0], src.Strides[0]
	up, us := src.Planes[1], src.Strides[1]
	vp, vs := src.Planes[2], src.Strides[2]
	rgb, rs := dst.Planes[0], dst.Strides[0]

	for y := 0; y < h; y++ {
		out := rgb[y*rs:]
		for x := 0; x < w; x++ {
			c := 298 * (int(yp[y*ys+x]) - 16)
			d := int(up[(y/2)*us+x/2]) - 128
			e := int(vp[(y/2)*vs+x/2]) - 128
			out[x*3] = clip8((c + 409*e + 128) >> 8)
			out[x*3+1] = clip8((c - 100*d - 208*e + 128) >> 8)
			out[x*3+2] = clip8((c + 516*d + 128) >> 8)
		}
	}
}
