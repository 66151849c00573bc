package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sigfoxserver/sigfox-server/internal/models"
	"github.com/sigfoxserver/sigfox-server/internal/storage"
	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

// HandleListDevices lists registered devices.
func (s *RESTServer) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	devices, total, err := s.store.ListDevices(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   total,
	})
}

// HandleCreateDevice registers a new device.
func (s *RESTServer) HandleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Devid uint32 `json:"devid" validate:"required"`
		Key   string `json:"key" validate:"required,len=32"`
		Name  string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	keyBytes, err := hex.DecodeString(req.Key)
	if err != nil || len(keyBytes) != len(sigfox.Key{}) {
		s.respondError(w, http.StatusBadRequest, "key must be 16 hex-encoded bytes")
		return
	}
	var key sigfox.Key
	copy(key[:], keyBytes)

	device := &models.Device{
		Devid: req.Devid,
		Key:   models.DeviceKey(key),
		Name:  req.Name,
	}

	if err := s.store.CreateDevice(r.Context(), device); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "device already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, device)
}

// HandleGetDevice gets a device by devid.
func (s *RESTServer) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	devid, err := parseDevid(chi.URLParam(r, "devid"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid devid")
		return
	}

	device, err := s.store.GetDevice(r.Context(), devid)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "device not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, device)
}

// HandleUpdateDevice updates a device's name/key/disabled state.
func (s *RESTServer) HandleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devid, err := parseDevid(chi.URLParam(r, "devid"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid devid")
		return
	}

	var req struct {
		Name       string `json:"name"`
		Key        string `json:"key,omitempty" validate:"omitempty,len=32"`
		IsDisabled bool   `json:"is_disabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, err := s.store.GetDevice(ctx, devid)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "device not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	device.Name = req.Name
	device.IsDisabled = req.IsDisabled

	if req.Key != "" {
		keyBytes, err := hex.DecodeString(req.Key)
		if err != nil || len(keyBytes) != len(sigfox.Key{}) {
			s.respondError(w, http.StatusBadRequest, "key must be 16 hex-encoded bytes")
			return
		}
		var key sigfox.Key
		copy(key[:], keyBytes)
		device.Key = models.DeviceKey(key)
	}

	if err := s.store.UpdateDevice(ctx, device); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, device)
}

// HandleDeleteDevice removes a device from the registry.
func (s *RESTServer) HandleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	devid, err := parseDevid(chi.URLParam(r, "devid"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid devid")
		return
	}

	if err := s.store.DeleteDevice(r.Context(), devid); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "device not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListDeviceFrames lists the frame-log history for a device.
func (s *RESTServer) HandleListDeviceFrames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devid, err := parseDevid(chi.URLParam(r, "devid"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid devid")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, total, err := s.store.ListFrameLogEntries(ctx, devid, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"frames": entries,
		"total":  total,
	})
}
