package xcodec

import "fmt"

// ScaleMode defines how scaling should handle aspect ratio mismatches.
type ScaleMode int

const (
	// ScaleModeFit scales the whole source into the target (may distort when
	// the caller does not pick the size with CalculateScaledSize).
	ScaleModeFit ScaleMode = iota
	// ScaleModeFill scales to fill target dimensions, preserving aspect ratio (may crop).
	ScaleModeFill
	// ScaleModeStretch scales to exactly match target dimensions (may distort).
	ScaleModeStretch
)

// ImageScaler rescales I420 or RGB24 images with bilinear interpolation.
type ImageScaler struct {
	srcWidth, srcHeight int
	dstWidth, dstHeight int
	format              PixelFormat
	mode                ScaleMode

	out *Image // pre-allocated output
}

// NewImageScaler creates a scaler for the given dimensions and pixel format.
func NewImageScaler(srcWidth, srcHeight, dstWidth, dstHeight int, format PixelFormat, mode ScaleMode) *ImageScaler {
	return &ImageScaler{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		format:    format,
		mode:      mode,
		out:       NewImage(dstWidth, dstHeight, format),
	}
}

// Scale returns src rescaled to the target size. The result is the scaler's
// own buffer and is overwritten by the next call. When no scaling is needed
// src itself is returned.
func (s *ImageScaler) Scale(src *Image) (*Image, error) {
	if src.Format == s.format && src.Width == s.dstWidth && src.Height == s.dstHeight {
		return src, nil
	}
	if err := s.ScaleInto(s.out, src); err != nil {
		return nil, err
	}
	return s.out, nil
}

// ScaleInto writes src rescaled into dst, which must already have the target size.
func (s *ImageScaler) ScaleInto(dst, src *Image) error {
	if src.Format != s.format || dst.Format != s.format {
		return fmt.Errorf("%w: scaler for %s got %s -> %s", ErrCodecNotSupported, s.format, src.Format, dst.Format)
	}
	if src.Width != s.srcWidth || src.Height != s.srcHeight {
		return fmt.Errorf("%w: got %dx%d, scaler expects %dx%d",
			ErrGeometryMismatch, src.Width, src.Height, s.srcWidth, s.srcHeight)
	}
	if dst.Width != s.dstWidth || dst.Height != s.dstHeight {
		return fmt.Errorf("%w: output %dx%d, scaler produces %dx%d",
			ErrGeometryMismatch, dst.Width, dst.Height, s.dstWidth, s.dstHeight)
	}
	if src.Width == dst.Width && src.Height == dst.Height {
		copyImage(dst, src)
		return nil
	}

	srcX, srcY, srcW, srcH := s.calculateSourceRegion(src.Width, src.Height)

	switch s.format {
	case PixelFormatRGB24:
		scalePlane(src.Planes[0], src.Strides[0], srcX, srcY, srcW, srcH,
			dst.Planes[0], dst.Strides[0], dst.Width, dst.Height, 3)
	case PixelFormatI420:
		scalePlane(src.Planes[0], src.Strides[0], srcX, srcY, srcW, srcH,
			dst.Planes[0], dst.Strides[0], dst.Width, dst.Height, 1)

		// Chroma planes are half resolution
		dcw, dch := chromaSize(dst.Width, dst.Height)
		scw, sch := chromaSize(srcW, srcH)
		for i := 1; i < 3; i++ {
			scalePlane(src.Planes[i], src.Strides[i], srcX/2, srcY/2, scw, sch,
				dst.Planes[i], dst.Strides[i], dcw, dch, 1)
		}
	}
	return nil
}

// calculateSourceRegion determines what region of the source to use based on scale mode.
func (s *ImageScaler) calculateSourceRegion(srcW, srcH int) (x, y, w, h int) {
	if s.mode != ScaleModeFill {
		return 0, 0, srcW, srcH
	}

	// Crop source to match target aspect ratio
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(s.dstWidth) / float64(s.dstHeight)

	if srcAspect > dstAspect {
		// Source is wider, crop horizontally
		newW := int(float64(srcH) * dstAspect)
		return ((srcW - newW) / 2) &^ 1, 0, newW, srcH
	} else if srcAspect < dstAspect {
		// Source is taller, crop vertically
		newH := int(float64(srcW) / dstAspect)
		return 0, ((srcH - newH) / 2) &^ 1, srcW, newH
	}
	return 0, 0, srcW, srcH
}

// scalePlane scales a single plane of interleaved bpp-byte pixels using
// bilinear interpolation.
func scalePlane(src []byte, srcStride, srcX, srcY, srcW, srcH int,
	dst []byte, dstStride, dstW, dstH, bpp int) {

	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return
	}

	// Fixed-point scaling factors (16.16)
	xRatio := (srcW << 16) / dstW
	yRatio := (srcH << 16) / dstH

	for y := 0; y < dstH; y++ {
		srcYFP := y * yRatio
		yWeight := srcYFP & 0xFFFF

		// Clamp to valid range
		y0 := srcYFP>>16 + srcY
		y1 := y0 + 1
		if y1 >= srcY+srcH {
			y1 = y0
		}
		row0 := src[y0*srcStride:]
		row1 := src[y1*srcStride:]
		out := dst[y*dstStride:]

		for x := 0; x < dstW; x++ {
			srcXFP := x * xRatio
			xWeight := srcXFP & 0xFFFF

			x0 := srcXFP>>16 + srcX
			x1 := x0 + 1
			if x1 >= srcX+srcW {
				x1 = x0
			}
			x0 *= bpp
			x1 *= bpp

			for c := 0; c < bpp; c++ {
				p00 := int(row0[x0+c])
				p10 := int(row0[x1+c])
				p01 := int(row1[x0+c])
				p11 := int(row1[x1+c])

				top := (p00*(0x10000-xWeight) + p10*xWeight) >> 16
				bottom := (p01*(0x10000-xWeight) + p11*xWeight) >> 16
				out[x*bpp+c] = byte((top*(0x10000-yWeight) + bottom*yWeight) >> 16)
			}
		}
	}
}

// copyImage copies the visible area of src into dst row by row.
func copyImage(dst, src *Image) {
	rows := [3]int{src.Height}
	cols := [3]int{src.Width * 3}
	if src.Format == PixelFormatI420 {
		cw, ch := chromaSize(src.Width, src.Height)
		rows = [3]int{src.Height, ch, ch}
		cols = [3]int{src.Width, cw, cw}
	}
	for i := 0; i < src.Format.PlaneCount(); i++ {
		for y := 0; y < rows[i]; y++ {
			copy(dst.Planes[i][y*dst.Strides[i]:y*dst.Strides[i]+cols[i]],
				src.Planes[i][y*src.Strides[i]:])
		}
	}
}

// CalculateScaledSize returns the output dimensions when scaling with a given mode.
// For ScaleModeFit the result keeps the source aspect ratio within maxW x maxH.
func CalculateScaledSize(srcW, srcH, maxW, maxH int, mode ScaleMode) (w, h int) {
	if mode != ScaleModeFit {
		return maxW, maxH
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(maxW) / float64(maxH)
	if srcAspect > dstAspect {
		w = maxW
		h = int(float64(maxW) / srcAspect)
	} else {
		h = maxH
		w = int(float64(maxH) * srcAspect)
	}
	// Ensure even dimensions for YUV
	w = (w + 1) &^ 1
	h = (h + 1) &^ 1
	return w, h
}
