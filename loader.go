package xcodec

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
)

// Codec names reported by the loader.
const (
	CodecEncVPX     = "enc_vpx"
	CodecDecVPX     = "dec_vpx"
	CodecCSCSwscale = "csc_swscale"
	CodecDecAVCodec = "dec_avcodec"
	CodecEncRGB     = "enc_rgb"
	CodecEncRGBZstd = "enc_rgb_zstd"
	CodecCSCGo      = "csc_go"
)

// AllCodecs lists every codec the loader knows about, in report order.
var AllCodecs = []string{
	CodecEncVPX, CodecDecVPX, CodecCSCSwscale, CodecDecAVCodec, CodecEncRGB, CodecEncRGBZstd, CodecCSCGo,
}

// CodecInfo describes a codec that was found.
type CodecInfo struct {
	Name        string
	Description string
	Provider    Provider
	Version     string
	Features    Features // Capabilities of the provider
}

func (c CodecInfo) String() string {
	s := fmt.Sprintf("%s (%s)", c.Description, c.Provider)
	if c.Version != "" {
		s = fmt.Sprintf("%s (%s %s)", c.Description, c.Provider, c.Version)
	}
	if c.Features != 0 {
		s += " [" + c.Features.String() + "]"
	}
	return s
}

type codecCheck struct {
	name        string
	description string
	provider    Provider
	probe       func() error
	version     func() string
}

var codecChecks = []codecCheck{
	{CodecEncVPX, "vpx encoder", ProviderLibvpx, probeVPX, VPXVersion},
	{CodecDecVPX, "vpx decoder", ProviderLibvpx, probeVPX, VPXVersion},
	{CodecCSCSwscale, "swscale colorspace conversion", ProviderLibswscale, swscaleLoad, SwscaleVersion},
	{CodecDecAVCodec, "avcodec decoder", ProviderLibavcodec, avcodecLoad, AVCodecVersion},
	{CodecEncRGB, "rgb encoder (zlib)", ProviderKlauspost, nil, compressVersion},
	{CodecEncRGBZstd, "rgb encoder (zstd)", ProviderKlauspost, nil, compressVersion},
	{CodecCSCGo, "Go colorspace conversion", ProviderGo, nil, goVersion},
}

var (
	loadOnce      sync.Once
	loadedCodecs  map[string]CodecInfo
	codecVersions map[string]string
)

func probeVPX() error {
	if err := vpxLoad(); err != nil {
		return err
	}
	if !vpxCodecAvailable(VideoCodecVP8) {
		return fmt.Errorf("%w: libvpx without VP8", ErrCodecNotSupported)
	}
	return nil
}

// LoadCodecs probes every codec once. Later calls do nothing.
// The accessors below call it implicitly.
func LoadCodecs() {
	loadOnce.Do(loadCodecs)
}

func loadCodecs() {
	log := logger()
	log.Debug("loading codecs")

	found := make(map[string]CodecInfo, len(codecChecks))
	for _, c := range codecChecks {
		if c.probe != nil {
			if err := c.probe(); err != nil {
				log.Debugf(" cannot load %s (%s): %v", c.name, c.description, err)
				continue
			}
		}
		found[c.name] = CodecInfo{
			Name:        c.name,
			Description: c.description,
			Provider:    c.provider,
			Version:     c.version(),
			Features:    c.provider.Features(),
		}
	}

	versions := make(map[string]string)
	for name, v := range map[string]string{
		"vpx":     VPXVersion(),
		"avcodec": AVCodecVersion(),
		"swscale": SwscaleVersion(),
		"zlib":    compressVersion(),
		"zstd":    compressVersion(),
	} {
		if v != "" {
			versions[name] = v
		}
	}

	loadedCodecs = found
	codecVersions = versions

	log.Debug("done loading codecs, found:")
	for _, name := range AllCodecs {
		log.Debug(codecStatusLine(name))
	}
	for _, name := range sortedKeys(versions) {
		log.Debugf("* %-20s : %s", name, versions[name])
	}
}

// HasCodec reports whether the named codec is usable.
func HasCodec(name string) bool {
	LoadCodecs()
	_, ok := loadedCodecs[name]
	return ok
}

// GetCodec returns information about the named codec if it is usable.
func GetCodec(name string) (CodecInfo, bool) {
	LoadCodecs()
	info, ok := loadedCodecs[name]
	return info, ok
}

// CodecVersions returns the version of each library found, keyed by
// "vpx", "avcodec", "swscale", "zlib" and "zstd". The map is a copy.
func CodecVersions() map[string]string {
	LoadCodecs()
	out := make(map[string]string, len(codecVersions))
	for k, v := range codecVersions {
		out[k] = v
	}
	return out
}

// AvailableEncodings returns the picture encodings this build can produce,
// in PreferredEncodingOrder.
func AvailableEncodings() []string {
	LoadCodecs()
	var encs []string
	for _, e := range PreferredEncodingOrder {
		switch e {
		case EncodingVPX:
			if HasCodec(CodecEncVPX) {
				encs = append(encs, e)
			}
		case EncodingRGB:
			if HasCodec(CodecEncRGB) {
				encs = append(encs, e)
			}
		}
	}
	return encs
}

// FormatCodecStatus renders the loader state as the lines printed by
// examples/codec-info.
func FormatCodecStatus() []string {
	LoadCodecs()
	lines := []string{"codecs/csc modules found:"}
	for _, name := range AllCodecs {
		lines = append(lines, codecStatusLine(name))
	}
	lines = append(lines, "", "codecs versions:")
	for _, name := range sortedKeys(codecVersions) {
		lines = append(lines, fmt.Sprintf("* %-20s : %s", name, codecVersions[name]))
	}
	return lines
}

func codecStatusLine(name string) string {
	info, ok := loadedCodecs[name]
	desc := ""
	if ok {
		desc = info.String()
	}
	return strings.TrimRight(fmt.Sprintf("* %-20s : %-10t %s", name, ok, desc), " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const compressModule = "github.com/klauspost/compress"

var compressVersion = sync.OnceValue(func() string {
	return moduleVersion(compressModule)
})

// goVersion is the Go toolchain version; csc_go has no separate release.
func goVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		return bi.GoVersion
	}
	return ""
}

// moduleVersion reports the version of a dependency from the build info,
// or the module path itself when no version is recorded.
func moduleVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return path
	}
	for _, dep := range bi.Deps {
		if dep.Path == path {
			if dep.Replace != nil {
				dep = dep.Replace
			}
			if dep.Version != "" {
				return dep.Version
			}
		}
	}
	return path
}
