package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sigfoxserver/sigfox-server/internal/models"
	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

type uplinkEncodeRequest struct {
	Devid           uint32 `json:"devid" validate:"required"`
	Seqnum          uint16 `json:"seqnum"`
	Key             string `json:"key" validate:"required,len=32"`
	Payload         string `json:"payload"` // hex
	Singlebit       bool   `json:"singlebit"`
	RequestDownlink bool   `json:"requestDownlink"`
	Replicas        bool   `json:"replicas"`
}

type uplinkEncodeResponse struct {
	FramelenNibbles uint8    `json:"framelenNibbles"`
	Frames          []string `json:"frames"` // hex, one per emitted replica
}

// HandleUplinkEncode builds the on-air uplink frame(s) for a plain
// message.
func (s *RESTServer) HandleUplinkEncode(w http.ResponseWriter, r *http.Request) {
	var req uplinkEncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := parseKey(req.Key)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := hex.DecodeString(req.Payload)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid hex payload")
		return
	}
	if len(payload) > 12 {
		s.respondError(w, http.StatusBadRequest, "payload too long (max 12 bytes)")
		return
	}

	plain := sigfox.UplinkPlain{
		Singlebit:       req.Singlebit,
		RequestDownlink: req.RequestDownlink,
		Replicas:        req.Replicas,
		PayloadLen:      uint8(len(payload)),
	}
	copy(plain.Payload[:], payload)

	common := sigfox.CommonInfo{Devid: req.Devid, Seqnum: req.Seqnum, Key: key}

	encoded, err := sigfox.EncodeUplink(plain, common)

	entry := &models.FrameLogEntry{
		Devid:     req.Devid,
		Direction: models.DirectionUplink,
		Seqnum:    req.Seqnum,
		Payload:   payload,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Frame = encoded.Frame[0]
		entry.CRCOk = true
		entry.MACOk = true
	}
	s.logFrame(r, entry)

	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := uplinkEncodeResponse{FramelenNibbles: encoded.FramelenNibbles}
	for _, frame := range encoded.Frame {
		if frame == nil {
			continue
		}
		resp.Frames = append(resp.Frames, hex.EncodeToString(frame))
	}

	s.respondJSON(w, http.StatusOK, resp)
}

type uplinkDecodeRequest struct {
	Frame string `json:"frame" validate:"required"` // hex, replica 0 only
	Key   string `json:"key,omitempty"`             // omit to skip MAC check
}

// HandleUplinkDecode recovers the plain message from an on-air uplink
// frame. The key is optional: without it the CRC is still checked, but
// the MAC check is skipped.
func (s *RESTServer) HandleUplinkDecode(w http.ResponseWriter, r *http.Request) {
	var req uplinkDecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := hex.DecodeString(req.Frame)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid hex frame")
		return
	}

	var encoded sigfox.UplinkEncoded
	encoded.Frame[0] = frame
	encoded.FramelenNibbles = uint8(len(frame)*2 - 1)

	var key sigfox.Key
	keyPresent := req.Key != ""
	if keyPresent {
		key, err = parseKey(req.Key)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	plain, common, err := sigfox.DecodeUplink(encoded, key, keyPresent)

	entry := &models.FrameLogEntry{
		Devid:     common.Devid,
		Direction: models.DirectionUplink,
		Seqnum:    common.Seqnum,
		Frame:     frame,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Payload = append([]byte(nil), plain.Payload[:plain.PayloadLen]...)
		entry.CRCOk = true
		entry.MACOk = keyPresent
	}
	s.logFrame(r, entry)

	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"devid":           common.Devid,
		"seqnum":          common.Seqnum,
		"payload":         hex.EncodeToString(plain.Payload[:plain.PayloadLen]),
		"singlebit":       plain.Singlebit,
		"requestDownlink": plain.RequestDownlink,
	})
}

func parseKey(s string) (sigfox.Key, error) {
	var key sigfox.Key
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(key) {
		return key, errInvalidKey
	}
	copy(key[:], b)
	return key, nil
}

type errInvalidKeyType struct{}

func (errInvalidKeyType) Error() string { return "key must be 16 hex-encoded bytes" }

var errInvalidKey = errInvalidKeyType{}

// logFrame persists a frame-log entry if a store is configured, logging
// (not failing the request) on a write error - the HTTP response already
// reflects the encode/decode outcome.
func (s *RESTServer) logFrame(r *http.Request, entry *models.FrameLogEntry) {
	if s.store == nil {
		return
	}
	entry.ReceivedAt = time.Now()
	if err := s.store.CreateFrameLogEntry(r.Context(), entry); err != nil {
		log.Error().Err(err).Uint32("devid", entry.Devid).Msg("failed to write frame log entry")
	}
}
