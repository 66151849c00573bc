package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/sigfoxserver/sigfox-server/internal/models"
	"github.com/sigfoxserver/sigfox-server/internal/storage"
	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

type downlinkEncodeRequest struct {
	Devid   uint32 `json:"devid" validate:"required"`
	Seqnum  uint16 `json:"seqnum"`
	Key     string `json:"key" validate:"required,len=32"`
	Payload string `json:"payload" validate:"required"` // hex, exactly 8 bytes
}

// HandleDownlinkEncode builds the scrambled 15-byte downlink frame for a
// plain 8-byte payload.
func (s *RESTServer) HandleDownlinkEncode(w http.ResponseWriter, r *http.Request) {
	var req downlinkEncodeRequest
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
	if err != nil || len(payload) != sigfox.SFXDLPayloadlen {
		s.respondError(w, http.StatusBadRequest, "payload must be exactly 8 hex-encoded bytes")
		return
	}

	var plain sigfox.DownlinkPlain
	copy(plain.Payload[:], payload)

	common := sigfox.CommonInfo{Devid: req.Devid, Seqnum: req.Seqnum, Key: key}

	encoded, err := sigfox.EncodeDownlink(plain, common, nil)

	entry := &models.FrameLogEntry{
		Devid:     req.Devid,
		Direction: models.DirectionDownlink,
		Seqnum:    req.Seqnum,
		Payload:   payload,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Frame = encoded.Frame[:]
		entry.CRCOk, entry.MACOk = true, true
	}
	s.logFrame(r, entry)

	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"frame": hex.EncodeToString(encoded.Frame[:]),
	})
}

type downlinkDecodeRequest struct {
	Devid  uint32 `json:"devid" validate:"required"`
	Seqnum uint16 `json:"seqnum"`
	Key    string `json:"key" validate:"required,len=32"`
	Frame  string `json:"frame" validate:"required"` // hex, 15 bytes
}

// HandleDownlinkDecode soft-decodes a downlink frame, returning the
// CRC/MAC/FEC diagnostics alongside the recovered payload - per spec.md
// §4.5, this never fails on a bad CRC or MAC, only on a malformed frame.
func (s *RESTServer) HandleDownlinkDecode(w http.ResponseWriter, r *http.Request) {
	var req downlinkDecodeRequest
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

	frameBytes, err := hex.DecodeString(req.Frame)
	if err != nil || len(frameBytes) != sigfox.SFXDLFramelen {
		s.respondError(w, http.StatusBadRequest, "frame must be exactly 15 hex-encoded bytes")
		return
	}

	var encoded sigfox.DownlinkEncoded
	copy(encoded.Frame[:], frameBytes)

	common := sigfox.CommonInfo{Devid: req.Devid, Seqnum: req.Seqnum, Key: key}
	plain, err := sigfox.DecodeDownlink(encoded, common, nil)

	entry := &models.FrameLogEntry{
		Devid:     req.Devid,
		Direction: models.DirectionDownlink,
		Seqnum:    req.Seqnum,
		Frame:     frameBytes,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Payload = append([]byte(nil), plain.Payload[:]...)
		entry.CRCOk, entry.MACOk, entry.FECCorrected = plain.CRCOk, plain.MACOk, plain.FECCorrected
	}
	s.logFrame(r, entry)

	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"payload":      hex.EncodeToString(plain.Payload[:]),
		"crcOk":        plain.CRCOk,
		"macOk":        plain.MACOk,
		"fecCorrected": plain.FECCorrected,
	})
}

type downlinkBruteForceRequest struct {
	Devid      uint32 `json:"devid" validate:"required"`
	Frame      string `json:"frame" validate:"required"` // hex, 15 bytes
	MaxSeqnum  uint16 `json:"maxSeqnum"`
	Key        string `json:"key,omitempty"`
	Polynomial uint16 `json:"polynomial,omitempty"`
	Mode       string `json:"mode" validate:"required,oneof=seqnum lfsr_seed"`
}

// HandleDownlinkBruteForce runs one of the two brute-force search modes
// from spec.md §5: "seqnum" resynchronizes the sequence number given a
// known key, "lfsr_seed" searches the scrambler's seed space given a
// known (devid, seqnum). In both modes the device's key is looked up from
// the registry when the request omits it.
func (s *RESTServer) HandleDownlinkBruteForce(w http.ResponseWriter, r *http.Request) {
	var req downlinkBruteForceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	frameBytes, err := hex.DecodeString(req.Frame)
	if err != nil || len(frameBytes) != sigfox.SFXDLFramelen {
		s.respondError(w, http.StatusBadRequest, "frame must be exactly 15 hex-encoded bytes")
		return
	}
	var encoded sigfox.DownlinkEncoded
	copy(encoded.Frame[:], frameBytes)

	switch req.Mode {
	case "seqnum":
		key, err := s.resolveKey(r, req.Devid, req.Key)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		maxSeqnum := req.MaxSeqnum
		if maxSeqnum == 0 {
			maxSeqnum = 0xFFF
		}
		plain, seqnum, err := sigfox.BruteForceSeqnum(encoded, req.Devid, key, maxSeqnum, nil)
		if err != nil {
			s.respondError(w, http.StatusNotFound, "no matching seqnum found")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"seqnum":       seqnum,
			"payload":      hex.EncodeToString(plain.Payload[:]),
			"fecCorrected": plain.FECCorrected,
		})

	case "lfsr_seed":
		key, err := s.resolveKey(r, req.Devid, req.Key)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		common := sigfox.CommonInfo{Devid: req.Devid, Seqnum: req.MaxSeqnum, Key: key}
		plain, seed, err := sigfox.BruteForceLFSRSeed(encoded, common, req.Polynomial)
		if err != nil {
			s.respondError(w, http.StatusNotFound, "no matching LFSR seed found")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"seed":         seed,
			"payload":      hex.EncodeToString(plain.Payload[:]),
			"fecCorrected": plain.FECCorrected,
		})
	}
}

// resolveKey uses the request's key when present, otherwise looks the
// device up in the registry - the brute-force seqnum/lfsr_seed handlers
// are exactly the case where a caller knows devid but not the full
// (key, seqnum) pair.
func (s *RESTServer) resolveKey(r *http.Request, devid uint32, reqKey string) (sigfox.Key, error) {
	if reqKey != "" {
		return parseKey(reqKey)
	}
	if s.store == nil {
		return sigfox.Key{}, errNoKeyAvailable
	}
	device, err := s.store.GetDevice(r.Context(), devid)
	if err != nil {
		if err == storage.ErrNotFound {
			return sigfox.Key{}, errNoKeyAvailable
		}
		return sigfox.Key{}, err
	}
	return device.Key.SigfoxKey(), nil
}

type errNoKeyAvailableType struct{}

func (errNoKeyAvailableType) Error() string {
	return "no key supplied and device not found in registry"
}

var errNoKeyAvailable = errNoKeyAvailableType{}
