//go:build !(darwin || linux) || noffmpeg

package xcodec

func avcodecLoad() error { return ErrLibraryNotLoaded }

func swscaleLoad() error { return ErrLibraryNotLoaded }

func avcodecIdent() string { return "" }

func swscaleIdent() string { return "" }

type swsHandle struct{}

func newSwsHandle(int, int, PixelFormat, int, int, PixelFormat) (*swsHandle, error) {
	return nil, ErrLibraryNotLoaded
}

func (h *swsHandle) scale(*Image, *Image) error { return ErrLibraryNotLoaded }

func (h *swsHandle) close() {}
