package xcodec

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// DefaultMTU for RTP packets (UDP safe)
const DefaultMTU = 1200

const rtpHeaderSize = 12

// Packetizer segments compressed VP8/VP9 frames into RTP packets using
// pion's payloaders.
type Packetizer struct {
	codec       VideoCodec
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	payloader   rtp.Payloader
	mu          sync.Mutex
}

// NewPacketizer creates an RTP packetizer for codec. mtu <= 0 selects DefaultMTU.
func NewPacketizer(codec VideoCodec, ssrc uint32, pt uint8, mtu int) (*Packetizer, error) {
	var payloader rtp.Payloader
	switch codec {
	case VideoCodecVP8:
		payloader = &codecs.VP8Payloader{}
	case VideoCodecVP9:
		payloader = &codecs.VP9Payloader{}
	default:
		return nil, fmt.Errorf("%w: no packetizer for %s", ErrCodecNotSupported, codec)
	}
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	if mtu <= rtpHeaderSize {
		return nil, fmt.Errorf("mtu %d too small", mtu)
	}
	return &Packetizer{
		codec:       codec,
		ssrc:        ssrc,
		payloadType: pt,
		mtu:         mtu,
		sequencer:   rtp.NewRandomSequencer(),
		payloader:   payloader,
	}, nil
}

// Packetize converts an encoded frame to RTP packets. The marker bit is set
// on the last packet. Empty frames produce no packets.
func (p *Packetizer) Packetize(frame *EncodedFrame) ([]*rtp.Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(frame.Data) == 0 {
		return nil, nil
	}

	payloads := p.payloader.Payload(uint16(p.mtu-rtpHeaderSize), frame.Data)
	if len(payloads) == 0 {
		return nil, nil
	}

	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      frame.Timestamp,
				SSRC:           p.ssrc,
			},
			Payload: payload,
		}
	}
	return packets, nil
}

// PacketizeToBytes converts an encoded frame to raw RTP packet bytes.
func (p *Packetizer) PacketizeToBytes(frame *EncodedFrame) ([][]byte, error) {
	packets, err := p.Packetize(frame)
	if err != nil {
		return nil, err
	}
	result := make([][]byte, len(packets))
	for i, pkt := range packets {
		if result[i], err = pkt.Marshal(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *Packetizer) Codec() VideoCodec       { return p.codec }
func (p *Packetizer) SetSSRC(ssrc uint32)     { p.mu.Lock(); p.ssrc = ssrc; p.mu.Unlock() }
func (p *Packetizer) SSRC() uint32            { p.mu.Lock(); defer p.mu.Unlock(); return p.ssrc }
func (p *Packetizer) PayloadType() uint8      { p.mu.Lock(); defer p.mu.Unlock(); return p.payloadType }
func (p *Packetizer) SetPayloadType(pt uint8) { p.mu.Lock(); p.payloadType = pt; p.mu.Unlock() }
func (p *Packetizer) MTU() int                { p.mu.Lock(); defer p.mu.Unlock(); return p.mtu }

// Depacketizer reassembles RTP packets into encoded frames.
type Depacketizer struct {
	codec VideoCodec
	vp8   codecs.VP8Packet
	vp9   codecs.VP9Packet

	buffer            []byte
	timestamp         uint32
	started           bool
	frameType         FrameType
	lastCompletedTs   uint32
	hasCompletedFrame bool
	mu                sync.Mutex
}

// NewDepacketizer creates an RTP depacketizer for codec.
func NewDepacketizer(codec VideoCodec) (*Depacketizer, error) {
	if codec != VideoCodecVP8 && codec != VideoCodecVP9 {
		return nil, fmt.Errorf("%w: no depacketizer for %s", ErrCodecNotSupported, codec)
	}
	return &Depacketizer{codec: codec}, nil
}

// Depacketize processes an RTP packet and returns a complete frame when the
// packet ends one, or nil while the frame is still incomplete.
func (d *Depacketizer) Depacketize(packet *rtp.Packet) (*EncodedFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, begin, end, ft, err := d.unmarshal(packet.Payload)
	if err != nil {
		return nil, err
	}

	// Discard late-arriving packets for already completed frames
	if d.hasCompletedFrame && IsRTPTimestampOlder(packet.Timestamp, d.lastCompletedTs) {
		return nil, nil
	}

	// Handle timestamp changes (new frame started)
	if d.started && d.timestamp != packet.Timestamp {
		d.buffer = d.buffer[:0]
		d.frameType = FrameTypeUnknown
	}
	d.timestamp = packet.Timestamp
	d.started = true

	if begin {
		d.frameType = ft
	}
	d.buffer = append(d.buffer, payload...)

	if !packet.Marker && !end {
		return nil, nil
	}

	frame := &EncodedFrame{
		Data:      make([]byte, len(d.buffer)),
		FrameType: d.frameType,
		Timestamp: d.timestamp,
	}
	copy(frame.Data, d.buffer)

	d.lastCompletedTs = d.timestamp
	d.hasCompletedFrame = true
	d.started = false
	d.buffer = d.buffer[:0]
	d.frameType = FrameTypeUnknown
	return frame, nil
}

// unmarshal strips the codec payload descriptor. begin is set on the first
// packet of a frame, where ft is meaningful.
func (d *Depacketizer) unmarshal(b []byte) (payload []byte, begin, end bool, ft FrameType, err error) {
	switch d.codec {
	case VideoCodecVP8:
		if _, err = d.vp8.Unmarshal(b); err != nil {
			return nil, false, false, 0, fmt.Errorf("VP8 unmarshal failed: %w", err)
		}
		begin = d.vp8.S == 1 && d.vp8.PID == 0
		// P bit of the VP8 frame tag is 0 on keyframes
		ft = FrameTypeDelta
		if len(d.vp8.Payload) > 0 && d.vp8.Payload[0]&0x01 == 0 {
			ft = FrameTypeKey
		}
		return d.vp8.Payload, begin, false, ft, nil
	default:
		if _, err = d.vp9.Unmarshal(b); err != nil {
			return nil, false, false, 0, fmt.Errorf("VP9 unmarshal failed: %w", err)
		}
		ft = FrameTypeKey
		if d.vp9.P {
			ft = FrameTypeDelta
		}
		return d.vp9.Payload, d.vp9.B, d.vp9.E, ft, nil
	}
}

// DepacketizeBytes processes raw RTP packet bytes.
func (d *Depacketizer) DepacketizeBytes(data []byte) (*EncodedFrame, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}
	return d.Depacketize(&pkt)
}

// Reset clears any buffered partial frame and the late-packet tracking.
func (d *Depacketizer) Reset() {
	d.mu.Lock()
	d.buffer = d.buffer[:0]
	d.timestamp = 0
	d.started = false
	d.frameType = FrameTypeUnknown
	d.lastCompletedTs = 0
	d.hasCompletedFrame = false
	d.mu.Unlock()
}

// Codec returns the codec type.
func (d *Depacketizer) Codec() VideoCodec { return d.codec }

// IsRTPTimestampOlder returns true if ts1 is older than or equal to ts2,
// handling 32-bit wraparound.
func IsRTPTimestampOlder(ts1, ts2 uint32) bool {
	if ts1 == ts2 {
		return true
	}
	// ts1 is older if (ts2 - ts1) < 2^31
	return ts2-ts1 < 0x80000000
}
