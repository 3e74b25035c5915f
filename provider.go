package xcodec

import (
	"strings"
	"sync/atomic"
)

// Provider identifies an implementation backing one or more codecs.
type Provider uint8

const (
	ProviderLibvpx     Provider = iota // BSD VP8/VP9 encoder and decoder
	ProviderLibavcodec                 // LGPL FFmpeg codec library
	ProviderLibswscale                 // LGPL FFmpeg colorspace conversion and scaling
	ProviderGo                         // Pure Go fallbacks
	ProviderKlauspost                  // Pure Go zlib/zstd (github.com/klauspost/compress)
	providerCount
)

// License represents the software license of a provider.
type License uint8

const (
	LicenseLGPL License = iota // Weak copyleft, dynamic linking keeps the caller unaffected
	LicenseBSD                 // Permissive - no copyleft obligations
)

// Permissive returns true if the license has no copyleft obligations.
func (l License) Permissive() bool { return l == LicenseBSD }

func (l License) String() string {
	switch l {
	case LicenseLGPL:
		return "LGPL"
	case LicenseBSD:
		return "BSD"
	default:
		return "unknown"
	}
}

// Features is a bitmask of provider capabilities.
type Features uint32

const (
	FeatureLowLatency      Features = 1 << iota // Realtime deadline, no lag frames
	FeatureDynamicBitrate                       // Runtime bitrate changes
	FeatureErrorResilience                      // Error resilient bitstream mode
	FeatureScaling                              // Resizes while converting
	FeatureLossless                             // Bit exact output
)

// Has returns true if all specified features are supported.
func (f Features) Has(feature Features) bool { return f&feature == feature }

var featureNames = []struct {
	f    Features
	name string
}{
	{FeatureLowLatency, "low-latency"},
	{FeatureDynamicBitrate, "dynamic-bitrate"},
	{FeatureErrorResilience, "error-resilient"},
	{FeatureScaling, "scaling"},
	{FeatureLossless, "lossless"},
}

// String lists the set features, comma separated.
func (f Features) String() string {
	var names []string
	for _, n := range featureNames {
		if f.Has(n.f) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

type providerMeta struct {
	Name     string
	License  License
	Encoder  bool
	Decoder  bool
	Features Features
}

// Static metadata table, indexed by Provider.
var providerInfo = [providerCount]providerMeta{
	ProviderLibvpx:     {"libvpx", LicenseBSD, true, true, FeatureLowLatency | FeatureDynamicBitrate | FeatureErrorResilience},
	ProviderLibavcodec: {"libavcodec", LicenseLGPL, false, true, 0},
	ProviderLibswscale: {"libswscale", LicenseLGPL, false, false, FeatureScaling},
	ProviderGo:         {"go", LicenseBSD, false, false, FeatureScaling},
	ProviderKlauspost:  {"klauspost", LicenseBSD, true, true, FeatureLossless},
}

// Runtime availability, set by the bindings once their library loads.
var providerAvailable [providerCount]atomic.Bool

func init() {
	setProviderAvailable(ProviderGo)
	setProviderAvailable(ProviderKlauspost)
}

// String returns the provider name.
func (p Provider) String() string {
	if p >= providerCount {
		return "unknown"
	}
	return providerInfo[p].Name
}

// License returns the provider's license type.
func (p Provider) License() License {
	if p >= providerCount {
		return LicenseLGPL
	}
	return providerInfo[p].License
}

// Features returns the provider's feature bitmask.
func (p Provider) Features() Features {
	if p >= providerCount {
		return 0
	}
	return providerInfo[p].Features
}

// CanEncode returns true if the provider supports encoding.
func (p Provider) CanEncode() bool {
	if p >= providerCount {
		return false
	}
	return providerInfo[p].Encoder
}

// CanDecode returns true if the provider supports decoding.
func (p Provider) CanDecode() bool {
	if p >= providerCount {
		return false
	}
	return providerInfo[p].Decoder
}

// Available returns true if the provider is usable at runtime.
// Native providers become available once their library has been loaded,
// which LoadCodecs does for all of them.
func (p Provider) Available() bool {
	if p >= providerCount {
		return false
	}
	return providerAvailable[p].Load()
}

func setProviderAvailable(p Provider) {
	if p < providerCount {
		providerAvailable[p].Store(true)
	}
}
