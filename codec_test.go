package xcodec

import (
	"errors"
	"strings"
	"testing"
)

func TestVideoCodec_String(t *testing.T) {
	tests := []struct {
		codec VideoCodec
		want  string
	}{
		{VideoCodecVP8, "VP8"},
		{VideoCodecVP9, "VP9"},
		{VideoCodecUnknown, "Unknown"},
		{VideoCodec(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.codec.String(); got != tt.want {
				t.Errorf("VideoCodec.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoCodec_MimeType(t *testing.T) {
	tests := []struct {
		codec VideoCodec
		want  string
	}{
		{VideoCodecVP8, "video/VP8"},
		{VideoCodecVP9, "video/VP9"},
		{VideoCodecUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.codec.String(), func(t *testing.T) {
			if got := tt.codec.MimeType(); got != tt.want {
				t.Errorf("VideoCodec.MimeType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoCodec_RTP(t *testing.T) {
	if VideoCodecVP8.ClockRate() != 90000 || VideoCodecVP9.ClockRate() != 90000 {
		t.Error("video clock rate should be 90000")
	}
	if VideoCodecVP8.DefaultPayloadType() != 96 {
		t.Errorf("VP8 payload type = %d", VideoCodecVP8.DefaultPayloadType())
	}
	if VideoCodecVP9.DefaultPayloadType() != 98 {
		t.Errorf("VP9 payload type = %d", VideoCodecVP9.DefaultPayloadType())
	}
}

func TestParseVideoCodec(t *testing.T) {
	tests := []struct {
		in      string
		want    VideoCodec
		wantErr bool
	}{
		{"vp8", VideoCodecVP8, false},
		{"VP9", VideoCodecVP9, false},
		{"Vp8", VideoCodecVP8, false},
		{"h264", VideoCodecUnknown, true},
		{"", VideoCodecUnknown, true},
	}

	for _, tt := range tests {
		got, err := ParseVideoCodec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVideoCodec(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownCodec) {
			t.Errorf("ParseVideoCodec(%q) error = %v, want ErrUnknownCodec", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseVideoCodec(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodingName(t *testing.T) {
	if got := EncodingName(EncodingVPX); got != "VPx" {
		t.Errorf("EncodingName(vpx) = %q", got)
	}
	if got := EncodingName("nope"); got != "" {
		t.Errorf("EncodingName(nope) = %q, want empty", got)
	}
}

func TestEncodingsHelp(t *testing.T) {
	// Input order is ignored, unknown names are skipped
	lines := EncodingsHelp([]string{EncodingRGB, "bogus", EncodingVPX})
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if lines[0] != "vpx         VPx video codec" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "rgb         Raw RGB pixels") {
		t.Errorf("line 1 = %q", lines[1])
	}

	if got := EncodingsHelp(nil); len(got) != 0 {
		t.Errorf("EncodingsHelp(nil) = %q", got)
	}
}

func TestPreferredEncodingOrder(t *testing.T) {
	pos := map[string]int{}
	for i, e := range PreferredEncodingOrder {
		pos[e] = i
	}
	if pos[EncodingVPX] > pos[EncodingRGB] {
		t.Error("vpx should be preferred over rgb")
	}
	if len(HelpOrder) != len(PreferredEncodingOrder) {
		t.Error("HelpOrder and PreferredEncodingOrder list different encodings")
	}
}
