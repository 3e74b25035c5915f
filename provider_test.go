package xcodec

import "testing"

func TestProviderMetadata(t *testing.T) {
	tests := []struct {
		p          Provider
		name       string
		license    License
		enc, dec   bool
		permissive bool
	}{
		{ProviderLibvpx, "libvpx", LicenseBSD, true, true, true},
		{ProviderLibavcodec, "libavcodec", LicenseLGPL, false, true, false},
		{ProviderLibswscale, "libswscale", LicenseLGPL, false, false, false},
		{ProviderGo, "go", LicenseBSD, false, false, true},
		{ProviderKlauspost, "klauspost", LicenseBSD, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.String() != tt.name {
				t.Errorf("String() = %q", tt.p.String())
			}
			if tt.p.License() != tt.license || tt.p.License().Permissive() != tt.permissive {
				t.Errorf("License() = %v", tt.p.License())
			}
			if tt.p.CanEncode() != tt.enc || tt.p.CanDecode() != tt.dec {
				t.Errorf("CanEncode/CanDecode = %v/%v", tt.p.CanEncode(), tt.p.CanDecode())
			}
		})
	}

	unknown := Provider(200)
	if unknown.String() != "unknown" || unknown.Available() || unknown.CanEncode() || unknown.Features() != 0 {
		t.Error("out of range provider should report nothing")
	}
}

func TestProviderFeatures(t *testing.T) {
	f := ProviderLibvpx.Features()
	if !f.Has(FeatureLowLatency | FeatureErrorResilience) {
		t.Errorf("libvpx features = %b", f)
	}
	if f.Has(FeatureLossless) {
		t.Error("libvpx is not lossless")
	}
	if !ProviderKlauspost.Features().Has(FeatureLossless) {
		t.Error("klauspost should be lossless")
	}
}

func TestFeaturesString(t *testing.T) {
	tests := []struct {
		f    Features
		want string
	}{
		{0, ""},
		{FeatureScaling, "scaling"},
		{FeatureLowLatency | FeatureDynamicBitrate | FeatureErrorResilience, "low-latency,dynamic-bitrate,error-resilient"},
		{ProviderKlauspost.Features(), "lossless"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("Features(%d).String() = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestProviderAvailable(t *testing.T) {
	if !ProviderGo.Available() || !ProviderKlauspost.Available() {
		t.Error("pure Go providers should always be available")
	}
	if IsVPXAvailable() && !ProviderLibvpx.Available() {
		t.Error("libvpx loaded but provider not available")
	}
	if IsSwscaleAvailable() && !ProviderLibswscale.Available() {
		t.Error("libswscale loaded but provider not available")
	}
}
