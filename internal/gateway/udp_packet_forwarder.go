// Package gateway stands in for the radio front-end the codec core
// deliberately excludes: it receives raw on-air uplink bytes from a
// base-station simulator over UDP, decodes them, and publishes the
// result.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/sigfoxserver/sigfox-server/internal/models"
	"github.com/sigfoxserver/sigfox-server/internal/storage"
	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

// UplinkDecodedSubject is the NATS subject every successfully decoded
// uplink is published on.
const UplinkDecodedSubject = "sigfox.uplink.decoded"

// stationStats tracks per-source-address traffic counters, the
// simulator-feed equivalent of a real gateway's push statistics.
type stationStats struct {
	LastSeen time.Time
	RXCount  uint64
	RXOk     uint64
}

// UDPPacketForwarder listens for raw Sigfox frames (preamble + on-air
// bytes) sent by a base-station simulator, one UDP datagram per frame.
type UDPPacketForwarder struct {
	conn  *net.UDPConn
	nc    *nats.Conn
	store storage.Store

	mu       sync.RWMutex
	stations map[string]*stationStats
}

// NewUDPPacketForwarder creates a new UDP listener bound to bindAddr.
func NewUDPPacketForwarder(bindAddr string, nc *nats.Conn, store storage.Store) (*UDPPacketForwarder, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	return &UDPPacketForwarder{
		conn:     conn,
		nc:       nc,
		store:    store,
		stations: make(map[string]*stationStats),
	}, nil
}

// Start runs the receive loop until ctx is cancelled.
func (u *UDPPacketForwarder) Start(ctx context.Context) error {
	log.Info().Str("addr", u.conn.LocalAddr().String()).Msg("gateway UDP listener started")

	go u.cleanupStations(ctx)

	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			u.conn.SetReadDeadline(time.Now().Add(time.Second))
			n, addr, err := u.conn.ReadFromUDP(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				log.Error().Err(err).Msg("udp read error")
				continue
			}

			frame := append([]byte(nil), buf[:n]...)
			go u.handleFrame(frame, addr)
		}
	}
}

// handleFrame strips the uplink preamble (if present), decodes the
// remaining bytes as a replica-0 uplink frame, logs the outcome and
// publishes successfully decoded uplinks.
func (u *UDPPacketForwarder) handleFrame(data []byte, addr *net.UDPAddr) {
	station := addr.String()

	u.mu.Lock()
	st, ok := u.stations[station]
	if !ok {
		st = &stationStats{}
		u.stations[station] = st
	}
	st.LastSeen = time.Now()
	st.RXCount++
	u.mu.Unlock()

	frame := bytes.TrimPrefix(data, sigfox.SFXULPreamble[:])

	var encoded sigfox.UplinkEncoded
	encoded.Frame[0] = frame
	encoded.FramelenNibbles = uint8(len(frame)*2 - 1)

	plain, common, err := sigfox.DecodeUplink(encoded, sigfox.Key{}, false)
	if err != nil {
		log.Warn().Err(err).Str("station", station).Msg("failed to decode uplink frame")
		u.logFrame(common.Devid, common.Seqnum, frame, nil, err)
		return
	}

	u.mu.Lock()
	st.RXOk++
	u.mu.Unlock()

	payload := append([]byte(nil), plain.Payload[:plain.PayloadLen]...)
	u.logFrame(common.Devid, common.Seqnum, frame, payload, nil)

	msg := models.UplinkDecodedMessage{
		Devid:      common.Devid,
		Seqnum:     common.Seqnum,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}

	data, err = json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal decoded uplink")
		return
	}

	if err := u.nc.Publish(UplinkDecodedSubject, data); err != nil {
		log.Error().Err(err).Msg("failed to publish decoded uplink")
	}

	log.Info().
		Str("station", station).
		Uint32("devid", common.Devid).
		Uint16("seqnum", common.Seqnum).
		Int("payload_len", len(payload)).
		Msg("decoded uplink")
}

func (u *UDPPacketForwarder) logFrame(devid uint32, seqnum uint16, frame, payload []byte, decodeErr error) {
	if u.store == nil {
		return
	}

	entry := &models.FrameLogEntry{
		Devid:      devid,
		Direction:  models.DirectionUplink,
		Seqnum:     seqnum,
		Frame:      frame,
		Payload:    payload,
		CRCOk:      decodeErr == nil,
		ReceivedAt: time.Now(),
	}
	if decodeErr != nil {
		entry.Error = decodeErr.Error()
	}

	if err := u.store.CreateFrameLogEntry(context.Background(), entry); err != nil {
		log.Error().Err(err).Msg("failed to write frame log entry")
	}
}

// cleanupStations drops stale station stats, mirroring the teacher's
// gateway-liveness sweep.
func (u *UDPPacketForwarder) cleanupStations(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.mu.Lock()
			now := time.Now()
			for addr, st := range u.stations {
				if now.Sub(st.LastSeen) > 5*time.Minute {
					delete(u.stations, addr)
				}
			}
			u.mu.Unlock()
		}
	}
}

// Stats returns a snapshot of current station counters, used by the
// serve command's periodic status log.
func (u *UDPPacketForwarder) Stats() map[string]stationStats {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make(map[string]stationStats, len(u.stations))
	for addr, st := range u.stations {
		out[addr] = *st
	}
	return out
}
