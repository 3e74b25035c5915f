package xcodec

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// TrackStats provides VideoTrack write metrics.
type TrackStats struct {
	FramesWritten  uint64
	PacketsWritten uint64
	BytesWritten   uint64 // RTP payload bytes
}

type trackBinding struct {
	ctx        webrtc.TrackLocalContext
	packetizer *Packetizer
}

// VideoTrack implements pion's webrtc.TrackLocal for compressed VP8/VP9
// frames. Every bound sender gets its own packetizer using the negotiated
// payload type and SSRC.
type VideoTrack struct {
	id       string
	streamID string
	codec    VideoCodec
	cap      webrtc.RTPCodecCapability

	bindMu   sync.RWMutex
	bindings []*trackBinding

	closed atomic.Bool

	statsMu sync.Mutex
	stats   TrackStats
}

// NewVideoTrack creates a track for frames produced by an Encoder of codec.
func NewVideoTrack(codec VideoCodec, id, streamID string) (*VideoTrack, error) {
	if codec != VideoCodecVP8 && codec != VideoCodecVP9 {
		return nil, fmt.Errorf("%w: %s track", ErrCodecNotSupported, codec)
	}
	return &VideoTrack{
		id:       id,
		streamID: streamID,
		codec:    codec,
		cap: webrtc.RTPCodecCapability{
			MimeType:  codec.MimeType(),
			ClockRate: codec.ClockRate(),
		},
	}, nil
}

func (t *VideoTrack) ID() string                { return t.id }
func (t *VideoTrack) RID() string               { return "" }
func (t *VideoTrack) StreamID() string          { return t.streamID }
func (t *VideoTrack) Kind() webrtc.RTPCodecType { return webrtc.RTPCodecTypeVideo }
func (t *VideoTrack) Codec() VideoCodec         { return t.codec }

// Capability returns the codec capability offered during negotiation.
func (t *VideoTrack) Capability() webrtc.RTPCodecCapability { return t.cap }

// Bind implements webrtc.TrackLocal.
func (t *VideoTrack) Bind(ctx webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	// Find matching codec from negotiated parameters
	params := webrtc.RTPCodecParameters{
		RTPCodecCapability: t.cap,
		PayloadType:        webrtc.PayloadType(t.codec.DefaultPayloadType()),
	}
	for _, p := range ctx.CodecParameters() {
		if strings.EqualFold(p.MimeType, t.cap.MimeType) {
			params = p
			break
		}
	}

	packetizer, err := NewPacketizer(t.codec, uint32(ctx.SSRC()), uint8(params.PayloadType), DefaultMTU)
	if err != nil {
		return webrtc.RTPCodecParameters{}, err
	}

	t.bindMu.Lock()
	t.bindings = append(t.bindings, &trackBinding{ctx: ctx, packetizer: packetizer})
	t.bindMu.Unlock()

	logger().Debugf("track %s bound: %s pt=%d ssrc=%d", t.id, params.MimeType, params.PayloadType, ctx.SSRC())
	return params, nil
}

// Unbind implements webrtc.TrackLocal.
func (t *VideoTrack) Unbind(ctx webrtc.TrackLocalContext) error {
	t.bindMu.Lock()
	defer t.bindMu.Unlock()

	for i, b := range t.bindings {
		if b.ctx.ID() == ctx.ID() {
			t.bindings = append(t.bindings[:i], t.bindings[i+1:]...)
			break
		}
	}
	return nil
}

// WriteFrame packetizes frame and writes it to every bound sender.
// Frames with no data (dropped by the encoder) are ignored.
func (t *VideoTrack) WriteFrame(frame *EncodedFrame) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if len(frame.Data) == 0 {
		return nil
	}

	t.bindMu.RLock()
	defer t.bindMu.RUnlock()

	var packets, bytes uint64
	for _, b := range t.bindings {
		pkts, err := b.packetizer.Packetize(frame)
		if err != nil {
			return err
		}
		for _, p := range pkts {
			if err := writePacket(b.ctx, p); err != nil {
				return err
			}
			packets++
			bytes += uint64(len(p.Payload))
		}
	}

	t.statsMu.Lock()
	t.stats.FramesWritten++
	t.stats.PacketsWritten += packets
	t.stats.BytesWritten += bytes
	t.statsMu.Unlock()
	return nil
}

func writePacket(ctx webrtc.TrackLocalContext, p *rtp.Packet) error {
	_, err := ctx.WriteStream().WriteRTP(&p.Header, p.Payload)
	return err
}

// Bindings returns the number of bound senders.
func (t *VideoTrack) Bindings() int {
	t.bindMu.RLock()
	defer t.bindMu.RUnlock()
	return len(t.bindings)
}

// Stats returns write statistics.
func (t *VideoTrack) Stats() TrackStats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

// Close ends the track. Later writes return ErrClosed.
func (t *VideoTrack) Close() error {
	t.closed.Store(true)
	return nil
}

// Verify VideoTrack implements webrtc.TrackLocal
var _ webrtc.TrackLocal = (*VideoTrack)(nil)
