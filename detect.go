package xcodec

import "encoding/binary"

// DetectVideoCodec detects the video codec from raw bitstream data.
// Supports detection of:
//   - VP8: RFC 6386 - VP8 Data Format and Decoding Guide
//   - VP9: VP9 Bitstream & Decoding Process Specification
//   - IVF: WebM Project container format
//
// VP8 delta frames carry no signature and are reported as VideoCodecUnknown.
func DetectVideoCodec(data []byte) VideoCodec {
	if len(data) < 3 {
		return VideoCodecUnknown
	}

	// Check for IVF header (VP8/VP9)
	if len(data) >= 32 && string(data[0:4]) == "DKIF" {
		switch string(data[8:12]) {
		case "VP80":
			return VideoCodecVP8
		case "VP90":
			return VideoCodecVP9
		}
		return VideoCodecUnknown
	}

	if isVP8Keyframe(data) {
		return VideoCodecVP8
	}
	if isVP9Frame(data) {
		return VideoCodecVP9
	}
	return VideoCodecUnknown
}

// isVP8Keyframe checks for VP8 keyframe signature.
// Per RFC 6386 Section 9.1, VP8 uncompressed data chunk:
//   - Bytes 0-2: frame_type (1 bit), version (3 bits), show_frame (1 bit), partition_size (19 bits)
//   - Bytes 3-5 (keyframe only): start code 0x9D 0x01 0x2A followed by width/height
func isVP8Keyframe(data []byte) bool {
	if len(data) < 10 {
		return false
	}
	if data[0]&0x01 != 0 { // Not a keyframe
		return false
	}
	return data[3] == 0x9D && data[4] == 0x01 && data[5] == 0x2A
}

// vp8KeyframeSize returns the frame size signalled by a VP8 keyframe.
// Width and height are 14 bit little endian values; the top two bits of
// each hold the upscaling mode and are ignored.
func vp8KeyframeSize(data []byte) (width, height int, ok bool) {
	if !isVP8Keyframe(data) {
		return 0, 0, false
	}
	width = int(binary.LittleEndian.Uint16(data[6:8]) & 0x3fff)
	height = int(binary.LittleEndian.Uint16(data[8:10]) & 0x3fff)
	return width, height, true
}

// isVP9Frame checks for VP9 frame structure.
// Per VP9 Bitstream Specification Section 6.2, the uncompressed header starts with:
//   - frame_marker (2 bits): always 0b10 (decimal 2)
//   - profile_low_bit (1 bit), reserved/profile_high_bit (1 bit)
//   - show_existing_frame (1 bit), frame_type (1 bit), etc.
func isVP9Frame(data []byte) bool {
	if len(data) < 3 {
		return false
	}
	return (data[0]>>6)&0x03 == 0x02
}
