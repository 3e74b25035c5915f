package xcodec

import (
	"errors"
	"testing"
)

func TestPixelFormat_String(t *testing.T) {
	tests := []struct {
		format PixelFormat
		want   string
	}{
		{PixelFormatI420, "I420"},
		{PixelFormatRGB24, "RGB24"},
		{PixelFormat(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.format.String(); got != tt.want {
				t.Errorf("PixelFormat.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPixelFormat_PlaneCount(t *testing.T) {
	tests := []struct {
		format PixelFormat
		want   int
	}{
		{PixelFormatI420, 3},
		{PixelFormatRGB24, 1},
		{PixelFormat(99), 0},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.PlaneCount(); got != tt.want {
				t.Errorf("PixelFormat.PlaneCount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestI420Size(t *testing.T) {
	tests := []struct {
		width, height int
		want          int
	}{
		{640, 480, 640*480 + 2*320*240},
		{1920, 1080, 1920*1080 + 2*960*540},
		{33, 17, 33*17 + 2*17*9},
		{1, 1, 3},
	}

	for _, tt := range tests {
		if got := I420Size(tt.width, tt.height); got != tt.want {
			t.Errorf("I420Size(%d, %d) = %d, want %d", tt.width, tt.height, got, tt.want)
		}
	}
}

func TestRGB24Size(t *testing.T) {
	tests := []struct {
		width, height, stride int
		want                  int
	}{
		{640, 480, 1920, 640 * 480 * 3},
		{10, 2, 32, 32 + 30},
		{10, 0, 30, 0},
	}

	for _, tt := range tests {
		if got := RGB24Size(tt.width, tt.height, tt.stride); got != tt.want {
			t.Errorf("RGB24Size(%d, %d, %d) = %d, want %d", tt.width, tt.height, tt.stride, got, tt.want)
		}
	}
}

func TestNewImage(t *testing.T) {
	img := NewImage(33, 17, PixelFormatI420)
	if img.Strides != [3]int{33, 17, 17} {
		t.Errorf("I420 strides = %v", img.Strides)
	}
	if len(img.Planes[1]) != 17*9 {
		t.Errorf("U plane = %d bytes, want %d", len(img.Planes[1]), 17*9)
	}
	if err := img.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	rgb := NewImage(10, 4, PixelFormatRGB24)
	if rgb.Strides[0] != 30 || len(rgb.Planes[0]) != 120 {
		t.Errorf("RGB24 stride %d, %d bytes", rgb.Strides[0], len(rgb.Planes[0]))
	}
	if err := rgb.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestImage_Validate(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
		want error
	}{
		{"zero width", RGB24Image(make([]byte, 30), 0, 1, 30), ErrInvalidGeometry},
		{"short stride", RGB24Image(make([]byte, 300), 10, 10, 29), ErrInvalidGeometry},
		{"short buffer", RGB24Image(make([]byte, 299), 10, 10, 30), ErrBufferTooSmall},
		// Last row may omit stride padding
		{"padded last row", RGB24Image(make([]byte, 9*40+30), 10, 10, 40), nil},
		{"short chroma", &Image{
			Planes:  [3][]byte{make([]byte, 16), make([]byte, 3), make([]byte, 4)},
			Strides: [3]int{4, 2, 2},
			Width:   4, Height: 4, Format: PixelFormatI420,
		}, ErrBufferTooSmall},
		{"unknown format", &Image{Width: 4, Height: 4, Format: PixelFormat(9)}, ErrCodecNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.img.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWrapI420(t *testing.T) {
	buf := make([]byte, i420WrapSize(33, 17))
	img := wrapI420(buf, 33, 17)

	if img.Strides != [3]int{34, 17, 17} {
		t.Errorf("strides = %v, want [34 17 17]", img.Strides)
	}
	if err := img.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	// Planes share buf
	img.Planes[2][len(img.Planes[2])-1] = 0xAB
	if buf[len(buf)-1] != 0xAB {
		t.Error("wrapped planes do not alias the buffer")
	}
}

func TestFrameType_String(t *testing.T) {
	tests := []struct {
		ft   FrameType
		want string
	}{
		{FrameTypeKey, "Key"},
		{FrameTypeDelta, "Delta"},
		{FrameTypeUnknown, "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.ft.String(); got != tt.want {
			t.Errorf("FrameType.String() = %v, want %v", got, tt.want)
		}
	}
}

func TestEncodedFrame_Clone(t *testing.T) {
	original := &EncodedFrame{
		Data:      []byte{1, 2, 3, 4, 5},
		FrameType: FrameTypeKey,
		Timestamp: 12345,
	}

	clone := original.Clone()
	if clone.FrameType != original.FrameType || clone.Timestamp != original.Timestamp {
		t.Errorf("Clone() = %+v, want %+v", clone, original)
	}
	if !clone.IsKeyframe() {
		t.Error("Clone lost keyframe flag")
	}

	// Modify clone data and verify original is unchanged
	clone.Data[0] = 99
	if original.Data[0] == 99 {
		t.Error("Clone() did not create a deep copy of Data")
	}

	empty := (&EncodedFrame{}).Clone()
	if empty.Data != nil {
		t.Error("Clone of empty frame allocated data")
	}
}

func BenchmarkEncodedFrame_Clone(b *testing.B) {
	frame := &EncodedFrame{
		Data:      make([]byte, 50000),
		FrameType: FrameTypeDelta,
		Timestamp: 12345,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = frame.Clone()
	}
}
