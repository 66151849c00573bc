// Package server wires the codec core to NATS: every uplink the gateway
// listener decodes is already published by internal/gateway, so this
// package handles the other direction, encoding operator-submitted
// downlink requests and handing the resulting frame off to the gateway.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/sigfoxserver/sigfox-server/internal/models"
	"github.com/sigfoxserver/sigfox-server/internal/storage"
	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

// DownlinkSendSubject is the NATS subject operators publish encode
// requests on.
const DownlinkSendSubject = "sigfox.downlink.send"

// DownlinkEncodedSubject is the NATS subject the encoded frame is
// published on, standing in for the handoff to a real RF gateway.
const DownlinkEncodedSubject = "sigfox.downlink.encoded"

// NATSSubscriber encodes downlink-send requests and publishes the
// resulting on-air frame.
type NATSSubscriber struct {
	nc    *nats.Conn
	store storage.Store
	subs  []*nats.Subscription
}

// NewNATSSubscriber creates a NATS subscriber.
func NewNATSSubscriber(nc *nats.Conn, store storage.Store) *NATSSubscriber {
	return &NATSSubscriber{
		nc:    nc,
		store: store,
		subs:  make([]*nats.Subscription, 0),
	}
}

// Start subscribes to downlink-send requests until ctx is cancelled.
func (s *NATSSubscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(DownlinkSendSubject, s.handleDownlinkSend)
	if err != nil {
		return fmt.Errorf("subscribe downlink send: %w", err)
	}
	s.subs = append(s.subs, sub)

	log.Info().Int("subscriptions", len(s.subs)).Msg("NATS subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleDownlinkSend encodes one downlink request and publishes the
// resulting frame, logging the outcome either way.
func (s *NATSSubscriber) handleDownlinkSend(msg *nats.Msg) {
	var req models.DownlinkSendRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal downlink send request")
		return
	}

	if len(req.Payload) != sigfox.SFXDLPayloadlen {
		log.Error().Uint32("devid", req.Devid).Int("len", len(req.Payload)).
			Msg("downlink send request has wrong payload length")
		return
	}

	ctx := context.Background()

	device, err := s.store.GetDevice(ctx, req.Devid)
	if err != nil {
		if err == storage.ErrNotFound {
			log.Warn().Uint32("devid", req.Devid).Msg("downlink send request for unknown device")
		} else {
			log.Error().Err(err).Uint32("devid", req.Devid).Msg("failed to look up device")
		}
		return
	}

	var plain sigfox.DownlinkPlain
	copy(plain.Payload[:], req.Payload)
	common := sigfox.CommonInfo{Devid: req.Devid, Seqnum: req.Seqnum, Key: device.Key.SigfoxKey()}

	encoded, err := sigfox.EncodeDownlink(plain, common, nil)

	entry := &models.FrameLogEntry{
		Devid:      req.Devid,
		Direction:  models.DirectionDownlink,
		Seqnum:     req.Seqnum,
		Payload:    req.Payload,
		ReceivedAt: time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Frame = encoded.Frame[:]
		entry.CRCOk, entry.MACOk = true, true
	}
	if logErr := s.store.CreateFrameLogEntry(ctx, entry); logErr != nil {
		log.Error().Err(logErr).Msg("failed to write frame log entry")
	}

	if err != nil {
		log.Error().Err(err).Uint32("devid", req.Devid).Msg("failed to encode downlink")
		return
	}

	out := models.DownlinkEncodedMessage{
		Devid:     req.Devid,
		Seqnum:    req.Seqnum,
		Frame:     encoded.Frame[:],
		EncodedAt: time.Now(),
	}
	data, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal encoded downlink")
		return
	}

	if err := s.nc.Publish(DownlinkEncodedSubject, data); err != nil {
		log.Error().Err(err).Msg("failed to publish encoded downlink")
		return
	}

	log.Info().
		Uint32("devid", req.Devid).
		Uint16("seqnum", req.Seqnum).
		Str("frame", hex.EncodeToString(encoded.Frame[:])).
		Msg("downlink encoded and published")
}
