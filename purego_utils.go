//go:build (darwin || linux) && !(xcodec_cgo && cgo)

// Shared utilities for the purego-based bindings.

package xcodec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// goStringFromPtr converts a C string pointer to a Go string.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	var length int
	for {
		if *(*byte)(unsafe.Add(p, length)) == 0 {
			break
		}
		length++
		if length > 4096 {
			break
		}
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), length))
}

// nativeLib describes where a shared library may live.
type nativeLib struct {
	name    string   // base name without prefix/suffix, e.g. "vpx"
	envFile string   // env var naming an explicit library file
	sonames []string // versioned linux sonames, newest first
	dylibs  []string // versioned darwin names, newest first
}

// libraryPaths lists candidate paths for lib in search order.
func libraryPaths(lib nativeLib) []string {
	var paths []string

	if p := os.Getenv(lib.envFile); p != "" {
		paths = append(paths, p)
	}

	var names []string
	switch runtime.GOOS {
	case "darwin":
		names = append(names, "lib"+lib.name+".dylib")
		names = append(names, lib.dylibs...)
	default:
		names = append(names, "lib"+lib.name+".so")
		names = append(names, lib.sonames...)
	}

	if dir := os.Getenv("XCODEC_LIB_PATH"); dir != "" {
		for _, n := range names {
			paths = append(paths, filepath.Join(dir, n))
		}
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		for _, n := range names {
			paths = append(paths, filepath.Join(exeDir, n), filepath.Join(exeDir, "..", "lib", n))
		}
	}

	// Bare names go through the dynamic linker search path.
	paths = append(paths, names...)

	switch runtime.GOOS {
	case "darwin":
		for _, n := range names {
			paths = append(paths,
				filepath.Join("/usr/local/lib", n),
				filepath.Join("/opt/homebrew/lib", n),
			)
		}
	case "linux":
		for _, n := range names {
			paths = append(paths,
				filepath.Join("/usr/local/lib", n),
				filepath.Join("/usr/lib", n),
				filepath.Join("/usr/lib/x86_64-linux-gnu", n),
				filepath.Join("/usr/lib/aarch64-linux-gnu", n),
			)
		}
	}

	return paths
}

// openLibrary dlopens the first candidate that loads and passes bind.
// bind registers symbols and may panic if one is missing; that candidate is then skipped.
func openLibrary(lib nativeLib, bind func(handle uintptr) error) (uintptr, error) {
	var lastErr error
	for _, path := range libraryPaths(lib) {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		if err := safeBind(handle, bind); err != nil {
			purego.Dlclose(handle)
			lastErr = fmt.Errorf("%s: %w", path, err)
			continue
		}
		logger().Debugf("loaded lib%s from %s", lib.name, path)
		return handle, nil
	}
	if lastErr != nil {
		return 0, fmt.Errorf("%w: lib%s: %v", ErrLibraryNotLoaded, lib.name, lastErr)
	}
	return 0, fmt.Errorf("%w: lib%s not found", ErrLibraryNotLoaded, lib.name)
}

// safeBind turns a RegisterLibFunc panic (missing symbol) into an error.
func safeBind(handle uintptr, bind func(uintptr) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("missing symbol: %v", r)
		}
	}()
	return bind(handle)
}

var errNilSymbol = errors.New("symbol resolved to nil")

// requireSymbol checks that name exists before RegisterLibFunc is relied upon.
func requireSymbol(handle uintptr, name string) error {
	sym, err := purego.Dlsym(handle, name)
	if err != nil {
		return err
	}
	if sym == 0 {
		return fmt.Errorf("%s: %w", name, errNilSymbol)
	}
	return nil
}

// bytesPtr returns the address of the first byte of b, or 0 for an empty slice.
func bytesPtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
