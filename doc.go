// Package xcodec provides fixed-geometry VP8/VP9 image codec contexts over
// libvpx, version accessors for libavcodec and libswscale, and the pieces
// needed to move the compressed pictures around.
//
// Key pieces include:
//   - Encoder/Decoder contexts: InitEncoder, InitDecoder, CompressImage,
//     DecompressImage and Close
//   - AVCodecVersion and SwscaleVersion
//   - Converter for RGB24 <-> I420 (libswscale, with a pure Go fallback)
//   - RTP Packetizer/Depacketizer and a webrtc.TrackLocal (VideoTrack)
//   - The lossless "rgb" encoding (zlib or zstd)
//   - A codec loader reporting which codecs and versions are usable
//
// # Data Path
//
//	Compress:   RGB24 -> Converter -> I420 -> libvpx encoder -> output slot
//	Decompress: bitstream -> libvpx decoder -> I420 -> Converter -> RGB24 slot
//
// Each context owns exactly one output slot. The slice returned by
// CompressImage or DecompressImage is overwritten by the next call on the
// same context and must be copied if it is needed longer. Calls on one
// context are serialized; distinct contexts may be used in parallel.
//
// # Native Libraries
//
// By default libraries are loaded at runtime with purego (CGO_ENABLED=0
// works). Search order: XCODEC_VPX_LIB, XCODEC_AVCODEC_LIB and
// XCODEC_SWSCALE_LIB for explicit files, then XCODEC_LIB_PATH, the
// executable directory and the system library paths. A missing library is
// reported by the Is*Available functions; version accessors return "".
//
// # Build Tags
//
//   - xcodec_cgo: link libvpx, libavcodec and libswscale with cgo via pkg-config
//   - novpx, noffmpeg: compile the respective bindings out
//
// Set XCODEC_DEBUG=1 to log library loading and codec setup.
package xcodec
