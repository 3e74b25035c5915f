package xcodec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pion/rtp"
)

// vp8TestFrame builds a frame whose first byte carries the VP8 frame tag P bit.
func vp8TestFrame(size int, key bool, ts uint32) *EncodedFrame {
	frame := &EncodedFrame{Data: make([]byte, size), FrameType: FrameTypeDelta, Timestamp: ts}
	for i := range frame.Data {
		frame.Data[i] = byte(i*7 + 3)
	}
	frame.Data[0] = 0x11
	if key {
		frame.Data[0] = 0x10
		frame.FrameType = FrameTypeKey
	}
	return frame
}

func TestVP8Packetizer(t *testing.T) {
	pkt, err := NewPacketizer(VideoCodecVP8, 12345, 96, 1200)
	if err != nil {
		t.Fatalf("NewPacketizer failed: %v", err)
	}

	// Create a test frame (small enough for one packet)
	frame := vp8TestFrame(500, true, 90000)

	packets, err := pkt.Packetize(frame)
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(packets))
	}

	h := packets[0].Header
	if h.SSRC != 12345 {
		t.Errorf("SSRC = %d, want 12345", h.SSRC)
	}
	if h.PayloadType != 96 {
		t.Errorf("PayloadType = %d, want 96", h.PayloadType)
	}
	if h.Timestamp != 90000 {
		t.Errorf("Timestamp = %d, want 90000", h.Timestamp)
	}
	if !h.Marker {
		t.Error("Last packet should have marker bit set")
	}
}

func TestVP8PacketizerLargeFrame(t *testing.T) {
	pkt, err := NewPacketizer(VideoCodecVP8, 1, 96, 0)
	if err != nil {
		t.Fatalf("NewPacketizer failed: %v", err)
	}
	if pkt.MTU() != DefaultMTU {
		t.Errorf("MTU = %d, want %d", pkt.MTU(), DefaultMTU)
	}

	packets, err := pkt.Packetize(vp8TestFrame(10000, false, 0))
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) < 9 {
		t.Errorf("got %d packets for 10000 bytes", len(packets))
	}

	for i, p := range packets {
		raw, err := p.Marshal()
		if err != nil {
			t.Fatalf("Marshal %d: %v", i, err)
		}
		if len(raw) > DefaultMTU {
			t.Errorf("packet %d is %d bytes, exceeds MTU", i, len(raw))
		}
		if p.Marker != (i == len(packets)-1) {
			t.Errorf("packet %d marker = %v", i, p.Marker)
		}
		if i > 0 && p.SequenceNumber != packets[i-1].SequenceNumber+1 {
			t.Errorf("packet %d sequence %d follows %d", i, p.SequenceNumber, packets[i-1].SequenceNumber)
		}
	}
}

func TestVP8RoundTripDepacketizer(t *testing.T) {
	// 100 byte payload chunks divide the frames exactly
	pkt, _ := NewPacketizer(VideoCodecVP8, 7, 96, rtpHeaderSize+1+100)
	depkt, err := NewDepacketizer(VideoCodecVP8)
	if err != nil {
		t.Fatalf("NewDepacketizer failed: %v", err)
	}

	frames := []*EncodedFrame{
		vp8TestFrame(1000, true, 3000),
		vp8TestFrame(500, false, 6000),
		vp8TestFrame(300, false, 9000),
	}
	for _, want := range frames {
		packets, err := pkt.Packetize(want)
		if err != nil {
			t.Fatalf("Packetize failed: %v", err)
		}

		var got *EncodedFrame
		for i, p := range packets {
			f, err := depkt.Depacketize(p)
			if err != nil {
				t.Fatalf("Depacketize failed: %v", err)
			}
			if f != nil && i != len(packets)-1 {
				t.Fatalf("frame completed early at packet %d", i)
			}
			got = f
		}
		if got == nil {
			t.Fatalf("frame at %d not completed", want.Timestamp)
		}
		if !bytes.Equal(got.Data, want.Data) {
			t.Errorf("frame at %d: data differs", want.Timestamp)
		}
		if got.FrameType != want.FrameType || got.Timestamp != want.Timestamp {
			t.Errorf("frame at %d: got %v ts=%d, want %v", want.Timestamp, got.FrameType, got.Timestamp, want.FrameType)
		}
	}
}

func TestDepacketizerLatePackets(t *testing.T) {
	pkt, _ := NewPacketizer(VideoCodecVP8, 7, 96, 0)
	depkt, _ := NewDepacketizer(VideoCodecVP8)

	late, _ := pkt.Packetize(vp8TestFrame(200, true, 1000))
	current, _ := pkt.Packetize(vp8TestFrame(200, false, 2000))

	if f, err := depkt.Depacketize(current[0]); err != nil || f == nil {
		t.Fatalf("current frame: %v, %v", f, err)
	}
	if f, err := depkt.Depacketize(late[0]); err != nil || f != nil {
		t.Errorf("late packet produced %v, %v; want it discarded", f, err)
	}

	depkt.Reset()
	if f, err := depkt.Depacketize(late[0]); err != nil || f == nil {
		t.Errorf("after Reset: %v, %v; want frame", f, err)
	}
}

func TestDepacketizerTimestampChange(t *testing.T) {
	pkt, _ := NewPacketizer(VideoCodecVP8, 7, 96, rtpHeaderSize+1+100)
	depkt, _ := NewDepacketizer(VideoCodecVP8)

	// First half of a frame, then a new frame starts
	partial, _ := pkt.Packetize(vp8TestFrame(400, true, 1000))
	for _, p := range partial[:2] {
		if f, _ := depkt.Depacketize(p); f != nil {
			t.Fatal("partial frame completed")
		}
	}
	next := vp8TestFrame(200, false, 2000)
	packets, _ := pkt.Packetize(next)
	var got *EncodedFrame
	for _, p := range packets {
		got, _ = depkt.Depacketize(p)
	}
	if got == nil || !bytes.Equal(got.Data, next.Data) {
		t.Error("stale partial data leaked into next frame")
	}
}

func TestVP9PacketizerRoundTrip(t *testing.T) {
	if !IsVP9Available() {
		t.Skip("libvpx with VP9 not available")
	}

	enc, err := NewEncoder(DefaultEncoderConfig(VideoCodecVP9, 320, 240))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	defer enc.Close()

	frame, err := enc.CompressFrame(createTestRGB(320, 240, 960), 320, 240, 960)
	if err != nil {
		t.Fatalf("CompressFrame failed: %v", err)
	}
	if len(frame.Data) == 0 {
		t.Skip("VP9 encoder buffered the first frame")
	}
	want := frame.Clone()

	pkt, _ := NewPacketizer(VideoCodecVP9, 42, 98, 500)
	depkt, _ := NewDepacketizer(VideoCodecVP9)
	packets, err := pkt.Packetize(want)
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) == 0 {
		t.Fatal("no packets")
	}

	var got *EncodedFrame
	for _, p := range packets {
		if got, err = depkt.Depacketize(p); err != nil {
			t.Fatalf("Depacketize failed: %v", err)
		}
	}
	if got == nil || !bytes.Equal(got.Data, want.Data) {
		t.Fatal("VP9 frame did not survive packetization")
	}
	if got.FrameType != FrameTypeKey {
		t.Errorf("FrameType = %v, want Key", got.FrameType)
	}
}

func TestPacketizeToBytes(t *testing.T) {
	pkt, _ := NewPacketizer(VideoCodecVP8, 99, 100, 300)
	depkt, _ := NewDepacketizer(VideoCodecVP8)

	want := vp8TestFrame(1000, true, 4500)
	raw, err := pkt.PacketizeToBytes(want)
	if err != nil {
		t.Fatalf("PacketizeToBytes failed: %v", err)
	}

	var got *EncodedFrame
	for _, b := range raw {
		var p rtp.Packet
		if err := p.Unmarshal(b); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if p.SSRC != 99 || p.PayloadType != 100 {
			t.Errorf("header = %+v", p.Header)
		}
		if got, err = depkt.DepacketizeBytes(b); err != nil {
			t.Fatalf("DepacketizeBytes: %v", err)
		}
	}
	if got == nil || !bytes.Equal(got.Data, want.Data) {
		t.Error("byte round trip failed")
	}
}

func TestPacketizerSetters(t *testing.T) {
	pkt, _ := NewPacketizer(VideoCodecVP8, 1, 96, 0)
	pkt.SetSSRC(77)
	pkt.SetPayloadType(120)

	packets, _ := pkt.Packetize(vp8TestFrame(10, true, 0))
	if packets[0].SSRC != 77 || packets[0].PayloadType != 120 {
		t.Errorf("header = %+v", packets[0].Header)
	}
	if pkt.SSRC() != 77 || pkt.PayloadType() != 120 || pkt.Codec() != VideoCodecVP8 {
		t.Error("accessors disagree with setters")
	}

	if packets, err := pkt.Packetize(&EncodedFrame{}); err != nil || packets != nil {
		t.Errorf("empty frame: %v, %v", packets, err)
	}
}

func TestPacketizerErrors(t *testing.T) {
	if _, err := NewPacketizer(VideoCodecUnknown, 1, 96, 0); !errors.Is(err, ErrCodecNotSupported) {
		t.Errorf("unknown codec: err = %v", err)
	}
	if _, err := NewPacketizer(VideoCodecVP8, 1, 96, rtpHeaderSize); err == nil {
		t.Error("tiny MTU accepted")
	}
	if _, err := NewDepacketizer(VideoCodecUnknown); !errors.Is(err, ErrCodecNotSupported) {
		t.Errorf("unknown codec: err = %v", err)
	}

	depkt, _ := NewDepacketizer(VideoCodecVP8)
	if _, err := depkt.Depacketize(&rtp.Packet{}); err == nil {
		t.Error("empty payload accepted")
	}
	if _, err := depkt.DepacketizeBytes([]byte{0x80}); err == nil {
		t.Error("truncated RTP header accepted")
	}
}

func TestIsRTPTimestampOlder(t *testing.T) {
	tests := []struct {
		ts1, ts2 uint32
		want     bool
	}{
		{100, 200, true},
		{200, 100, false},
		{100, 100, true},
		{0xFFFFFFF0, 0x10, true}, // wraparound
		{0x10, 0xFFFFFFF0, false},
	}

	for _, tt := range tests {
		if got := IsRTPTimestampOlder(tt.ts1, tt.ts2); got != tt.want {
			t.Errorf("IsRTPTimestampOlder(%#x, %#x) = %v, want %v", tt.ts1, tt.ts2, got, tt.want)
		}
	}
}

func BenchmarkVP8Packetize(b *testing.B) {
	pkt, _ := NewPacketizer(VideoCodecVP8, 12345, 96, 1200)
	frame := vp8TestFrame(50000, false, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pkt.Packetize(frame)
	}
}
