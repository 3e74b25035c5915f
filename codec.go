package xcodec

import (
	"fmt"
	"strings"
)

// VideoCodec identifies the compressed video format of a codec context.
type VideoCodec int

const (
	VideoCodecUnknown VideoCodec = iota
	VideoCodecVP8
	VideoCodecVP9
)

func (c VideoCodec) String() string {
	switch c {
	case VideoCodecVP8:
		return "VP8"
	case VideoCodecVP9:
		return "VP9"
	default:
		return "Unknown"
	}
}

// MimeType returns the MIME type for this codec.
func (c VideoCodec) MimeType() string {
	switch c {
	case VideoCodecVP8:
		return "video/VP8"
	case VideoCodecVP9:
		return "video/VP9"
	default:
		return ""
	}
}

// ClockRate returns the RTP clock rate for this codec.
func (c VideoCodec) ClockRate() uint32 {
	return 90000
}

// DefaultPayloadType returns a typical payload type for this codec.
// The real value is negotiated via SDP.
func (c VideoCodec) DefaultPayloadType() uint8 {
	switch c {
	case VideoCodecVP9:
		return 98
	default:
		return 96
	}
}

// ParseVideoCodec maps "vp8"/"vp9" (any case) to a VideoCodec.
func ParseVideoCodec(s string) (VideoCodec, error) {
	switch strings.ToLower(s) {
	case "vp8":
		return VideoCodecVP8, nil
	case "vp9":
		return VideoCodecVP9, nil
	default:
		return VideoCodecUnknown, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

// Picture encodings, in the vocabulary used between peers.
const (
	EncodingX264 = "x264"
	EncodingVPX  = "vpx"
	EncodingWebP = "webp"
	EncodingPNG  = "png"
	EncodingPNGP = "png/P"
	EncodingPNGL = "png/L"
	EncodingRGB  = "rgb"
	EncodingJPEG = "jpeg"
)

// PreferredEncodingOrder lists encodings from most to least preferred.
var PreferredEncodingOrder = []string{
	EncodingX264, EncodingVPX, EncodingWebP, EncodingPNG, EncodingPNGP, EncodingPNGL, EncodingRGB, EncodingJPEG,
}

// HelpOrder is the order in which EncodingsHelp lists encodings.
var HelpOrder = []string{
	EncodingX264, EncodingVPX, EncodingWebP, EncodingPNG, EncodingPNGP, EncodingPNGL, EncodingRGB, EncodingJPEG,
}

var encodingNames = map[string]string{
	EncodingX264: "H.264",
	EncodingVPX:  "VPx",
	EncodingPNG:  "PNG (24/32bpp)",
	EncodingPNGP: "PNG (8bpp colour)",
	EncodingPNGL: "PNG (8bpp grayscale)",
	EncodingWebP: "WebP",
	EncodingJPEG: "JPEG",
	EncodingRGB:  "Raw RGB + zlib (24/32bpp)",
}

var encodingHelp = map[string]string{
	EncodingX264: "H.264 video codec",
	EncodingVPX:  "VPx video codec",
	EncodingPNG:  "Portable Network Graphics (24 or 32bpp for transparency)",
	EncodingPNGP: "Portable Network Graphics (8bpp colour)",
	EncodingPNGL: "Portable Network Graphics (8bpp grayscale)",
	EncodingWebP: "WebP compression (lossless or lossy)",
	EncodingJPEG: "JPEG lossy compression",
	EncodingRGB:  "Raw RGB pixels, lossless, compressed using zlib (24 or 32bpp for transparency)",
}

// EncodingName returns the display name of an encoding, or "" if unknown.
func EncodingName(encoding string) string {
	return encodingNames[encoding]
}

// EncodingsHelp returns one help line per known encoding present in
// encodings, in HelpOrder. Names are padded to 12 columns.
func EncodingsHelp(encodings []string) []string {
	have := make(map[string]bool, len(encodings))
	for _, e := range encodings {
		have[e] = true
	}
	var lines []string
	for _, e := range HelpOrder {
		if !have[e] {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-12s%s", e, encodingHelp[e]))
	}
	return lines
}
