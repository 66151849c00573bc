// Command sigfoxctl is both the sigfox-server service process and a
// one-shot frame encode/decode CLI, mirroring the two faces of the
// original reference implementation's single binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sigfoxserver/sigfox-server/internal/api"
	"github.com/sigfoxserver/sigfox-server/internal/config"
	"github.com/sigfoxserver/sigfox-server/internal/gateway"
	"github.com/sigfoxserver/sigfox-server/internal/integration"
	"github.com/sigfoxserver/sigfox-server/internal/server"
	"github.com/sigfoxserver/sigfox-server/internal/storage"
)

func showHelp() {
	fmt.Println("Usage: sigfoxctl [MODE] [OPTIONS]")
	fmt.Println()
	fmt.Println("Modes:")
	fmt.Println("  serve     Run the sigfox-server service (API + gateway listener + integration forwarder)")
	fmt.Println("  uldecode  Decode a Sigfox uplink frame from given parameters")
	fmt.Println("  ulencode  Build a Sigfox uplink frame from given parameters")
	fmt.Println("  dldecode  Decode a Sigfox downlink frame from given parameters")
	fmt.Println("  dlencode  Build a Sigfox downlink frame from given parameters")
	fmt.Println("  help      Show this help message")
	fmt.Println()
	fmt.Println("Common options:")
	fmt.Println("  -s        Uplink sequence number (hexadecimal, 12 bits)")
	fmt.Println("  -i        Device ID (hexadecimal, 32 bits)")
	fmt.Println("  -k        Device's private key (hexadecimal, 128 bits)")
	fmt.Println()
	fmt.Println("'uldecode' mode options:")
	fmt.Println("  -f        Encoded uplink frame (without preamble)")
	fmt.Println()
	fmt.Println("'ulencode' mode options:")
	fmt.Println("  -p        Payload, 1-12 bytes (hex)")
	fmt.Println("  -r        Emit repetition frames too (0 = no, 1 = yes, default yes)")
	fmt.Println("  -e        Single-bit frame type; payload is interpreted as one bit")
	fmt.Println("  -d        Set the downlink-request flag")
	fmt.Println()
	fmt.Println("'dldecode' mode options:")
	fmt.Println("  -f        Encoded downlink frame (without preamble), 15 bytes")
	fmt.Println("  -b        Brute-force mode 1: try all uplink sequence numbers")
	fmt.Println("  -c        Brute-force mode 2: try all scrambler LFSR seeds")
	fmt.Println()
	fmt.Println("'dlencode' mode options:")
	fmt.Println("  -p        Payload, 8 bytes (hex)")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No mode of operation specified! Mode must be the first argument.")
		fmt.Println()
		showHelp()
		os.Exit(1)
	}

	mode := os.Args[1]
	args := os.Args[2:]

	switch mode {
	case "serve":
		runServe(args)
	case "uldecode":
		runUplinkDecode(args)
	case "ulencode":
		runUplinkEncode(args)
	case "dldecode":
		runDownlinkDecode(args)
	case "dlencode":
		runDownlinkEncode(args)
	case "help", "-h", "--help":
		showHelp()
	default:
		fmt.Printf("Unknown mode of operation: %s\n\n", mode)
		showHelp()
		os.Exit(1)
	}
}

// runServe starts the long-running service: HTTP API, the UDP gateway
// listener standing in for the radio front-end, the integration
// forwarder, and the NATS downlink-encode subscriber.
func runServe(args []string) {
	fs := newFlagSet("serve")
	configFile := fs.String("config", "config/sigfoxctl.yml", "Configuration file path")
	fs.Parse(args)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("invalid log level, falling back to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg.PrintConfigSummary()

	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()
	log.Info().Msg("connected to database")

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.Server.Name),
		nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
		nats.ReconnectWait(cfg.NATS.ReconnectInterval),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("reconnected to NATS")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()
	log.Info().Msg("connected to NATS")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	apiServer := api.NewRESTServer(cfg, store)
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		log.Info().Str("addr", addr).Msg("starting REST API server")
		if err := apiServer.ListenAndServe(addr); err != nil {
			log.Error().Err(err).Msg("REST API server stopped")
		}
	}()

	gw, err := gateway.NewUDPPacketForwarder(cfg.Gateway.UDPBind, nc, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway UDP listener")
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gw.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("gateway UDP listener stopped")
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		logGatewayStats(ctx, gw, cfg.Gateway.StatsInterval)
	}()

	sub := server.NewNATSSubscriber(nc, store)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sub.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("NATS subscriber stopped")
		}
	}()

	if cfg.Integration.HTTP.Enabled || cfg.Integration.MQTT.Enabled {
		fwd := integration.NewForwarderService(nc, cfg.Integration)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fwd.Start(ctx); err != nil {
				log.Error().Err(err).Msg("integration forwarder stopped")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")

	cancel()
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("failed to shut down API server gracefully")
	}
	wg.Wait()

	log.Info().Msg("sigfox-server stopped")
}

// logGatewayStats periodically logs per-station traffic counters from the
// UDP gateway listener until ctx is cancelled.
func logGatewayStats(ctx context.Context, gw *gateway.UDPPacketForwarder, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for station, st := range gw.Stats() {
				log.Info().
					Str("station", station).
					Uint64("rx_count", st.RXCount).
					Uint64("rx_ok", st.RXOk).
					Time("last_seen", st.LastSeen).
					Msg("gateway station stats")
			}
		}
	}
}
