package xcodec

import (
	"errors"
	"testing"
)

func TestImageScaler_NoScaling(t *testing.T) {
	img := createGradientImage(640, 480)

	scaler := NewImageScaler(640, 480, 640, 480, PixelFormatI420, ScaleModeStretch)
	out, err := scaler.Scale(img)
	if err != nil {
		t.Fatal(err)
	}

	// Should return same image when no scaling needed
	if out != img {
		t.Error("Expected same image when no scaling needed")
	}
}

func TestImageScaler_Downscale(t *testing.T) {
	srcW, srcH := 1280, 720
	dstW, dstH := 640, 360

	scaler := NewImageScaler(srcW, srcH, dstW, dstH, PixelFormatI420, ScaleModeStretch)
	out, err := scaler.Scale(createGradientImage(srcW, srcH))
	if err != nil {
		t.Fatal(err)
	}

	if out.Width != dstW || out.Height != dstH {
		t.Errorf("Expected %dx%d, got %dx%d", dstW, dstH, out.Width, out.Height)
	}
	if len(out.Planes[0]) != dstW*dstH {
		t.Errorf("Y plane size mismatch: expected %d, got %d", dstW*dstH, len(out.Planes[0]))
	}
	if len(out.Planes[1]) != (dstW/2)*(dstH/2) {
		t.Errorf("U plane size mismatch")
	}

	// Gradient must stay monotonic along a row
	row := out.Planes[0][:dstW]
	for x := 1; x < dstW; x++ {
		if row[x] < row[x-1] {
			t.Fatalf("gradient not monotonic at x=%d: %d < %d", x, row[x], row[x-1])
		}
	}
	if out.Planes[1][0] != 128 || out.Planes[2][len(out.Planes[2])-1] != 128 {
		t.Error("neutral chroma not preserved")
	}
}

func TestImageScaler_Upscale(t *testing.T) {
	srcW, srcH := 320, 240
	dstW, dstH := 640, 480

	scaler := NewImageScaler(srcW, srcH, dstW, dstH, PixelFormatI420, ScaleModeStretch)
	out, err := scaler.Scale(createGradientImage(srcW, srcH))
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != dstW || out.Height != dstH {
		t.Errorf("Expected %dx%d, got %dx%d", dstW, dstH, out.Width, out.Height)
	}
}

func TestImageScaler_Fill(t *testing.T) {
	// 16:9 source to 4:3 destination (should crop sides)
	srcW, srcH := 1920, 1080
	dstW, dstH := 640, 480

	scaler := NewImageScaler(srcW, srcH, dstW, dstH, PixelFormatI420, ScaleModeFill)
	out, err := scaler.Scale(createGradientImage(srcW, srcH))
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != dstW || out.Height != dstH {
		t.Errorf("Expected %dx%d, got %dx%d", dstW, dstH, out.Width, out.Height)
	}
	// Cropped sides: the first column is no longer black
	if out.Planes[0][0] == 0 {
		t.Error("expected left edge to be cropped away")
	}
}

func TestImageScaler_RGB24(t *testing.T) {
	src := NewImage(4, 2, PixelFormatRGB24)
	for i := 0; i < len(src.Planes[0]); i += 3 {
		src.Planes[0][i] = 200
		src.Planes[0][i+1] = 100
		src.Planes[0][i+2] = 50
	}

	scaler := NewImageScaler(4, 2, 9, 5, PixelFormatRGB24, ScaleModeStretch)
	out, err := scaler.Scale(src)
	if err != nil {
		t.Fatal(err)
	}
	if out.Strides[0] != 27 {
		t.Fatalf("stride = %d, want 27", out.Strides[0])
	}
	// A flat colour stays flat whatever the interpolation weights
	for i := 0; i < len(out.Planes[0]); i += 3 {
		if out.Planes[0][i] != 200 || out.Planes[0][i+1] != 100 || out.Planes[0][i+2] != 50 {
			t.Fatalf("pixel %d = %v", i/3, out.Planes[0][i:i+3])
		}
	}
}

func TestImageScaler_OddSizes(t *testing.T) {
	scaler := NewImageScaler(17, 9, 33, 15, PixelFormatI420, ScaleModeStretch)
	out, err := scaler.Scale(createGradientImage(17, 9))
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestImageScaler_Mismatch(t *testing.T) {
	scaler := NewImageScaler(64, 48, 32, 24, PixelFormatI420, ScaleModeStretch)

	if _, err := scaler.Scale(createGradientImage(32, 32)); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("wrong source size: err = %v, want ErrGeometryMismatch", err)
	}
	if _, err := scaler.Scale(NewImage(64, 48, PixelFormatRGB24)); !errors.Is(err, ErrCodecNotSupported) {
		t.Errorf("wrong format: err = %v, want ErrCodecNotSupported", err)
	}
}

func TestCalculateScaledSize(t *testing.T) {
	tests := []struct {
		name             string
		srcW, srcH       int
		maxW, maxH       int
		mode             ScaleMode
		expectW, expectH int
	}{
		{"16:9 to 4:3 fit", 1920, 1080, 640, 480, ScaleModeFit, 640, 360},
		{"4:3 to 16:9 fit", 640, 480, 1280, 720, ScaleModeFit, 960, 720},
		{"same aspect", 1280, 720, 640, 360, ScaleModeFit, 640, 360},
		{"fill mode", 1920, 1080, 640, 480, ScaleModeFill, 640, 480},
		{"stretch mode", 1920, 1080, 640, 480, ScaleModeStretch, 640, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := CalculateScaledSize(tt.srcW, tt.srcH, tt.maxW, tt.maxH, tt.mode)
			if w != tt.expectW || h != tt.expectH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectW, tt.expectH, w, h)
			}
		})
	}
}

// createGradientImage returns an I420 image with a horizontal luma gradient
// and neutral chroma.
func createGradientImage(width, height int) *Image {
	img := NewImage(width, height, PixelFormatI420)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Planes[0][y*width+x] = byte(x * 255 / width)
		}
	}
	for i := range img.Planes[1] {
		img.Planes[1][i] = 128
		img.Planes[2][i] = 128
	}
	return img
}

func BenchmarkImageScaler_720pTo480p(b *testing.B) {
	img := createGradientImage(1280, 720)
	scaler := NewImageScaler(1280, 720, 640, 480, PixelFormatI420, ScaleModeFill)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = scaler.Scale(img)
	}
}

func BenchmarkImageScaler_1080pTo720p(b *testing.B) {
	img := createGradientImage(1920, 1080)
	scaler := NewImageScaler(1920, 1080, 1280, 720, PixelFormatI420, ScaleModeFill)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = scaler.Scale(img)
	}
}
