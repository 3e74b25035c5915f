//go:build !(darwin || linux) || novpx

package xcodec

// VPx support is compiled out; every entry point reports ErrLibraryNotLoaded.

func vpxLoad() error { return ErrLibraryNotLoaded }

func vpxVersionString() string { return "" }

func vpxCodecAvailable(VideoCodec) bool { return false }

type vpxEncoderHandle struct{}

func newVPXEncoderHandle(EncoderConfig) (*vpxEncoderHandle, error) {
	return nil, ErrLibraryNotLoaded
}

func (h *vpxEncoderHandle) input() *Image { return nil }

func (h *vpxEncoderHandle) encode(int64, bool, []byte) ([]byte, FrameType, error) {
	return nil, FrameTypeUnknown, ErrLibraryNotLoaded
}

func (h *vpxEncoderHandle) close() {}

type vpxDecoderHandle struct{}

func newVPXDecoderHandle(DecoderConfig) (*vpxDecoderHandle, error) {
	return nil, ErrLibraryNotLoaded
}

func (h *vpxDecoderHandle) decode([]byte) (*Image, error) { return nil, ErrLibraryNotLoaded }

func (h *vpxDecoderHandle) close() {}
