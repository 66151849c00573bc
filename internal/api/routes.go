package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes.
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Uplink/downlink encode+decode don't require a registered device:
	// the caller can supply devid/seqnum/key directly, matching the
	// stateless nature of the codec core.
	r.Route("/uplink", func(r chi.Router) {
		r.Post("/decode", s.HandleUplinkDecode)
		r.Post("/encode", s.HandleUplinkEncode)
	})

	r.Route("/downlink", func(r chi.Router) {
		r.Post("/decode", s.HandleDownlinkDecode)
		r.Post("/encode", s.HandleDownlinkEncode)

		// Brute-force search is the expensive, abuse-prone path, so it
		// sits behind auth along with the registry it leans on.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/bruteforce", s.HandleDownlinkBruteForce)
		})
	})

	r.Route("/devices", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.HandleListDevices)
		r.Post("/", s.HandleCreateDevice)
		r.Route("/{devid}", func(r chi.Router) {
			r.Get("/", s.HandleGetDevice)
			r.Put("/", s.HandleUpdateDevice)
			r.Delete("/", s.HandleDeleteDevice)
			r.Get("/frames", s.HandleListDeviceFrames)
		})
	})
}
