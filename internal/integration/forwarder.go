package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/sigfoxserver/sigfox-server/internal/config"
	"github.com/sigfoxserver/sigfox-server/internal/models"
)

// uplinkDecodedSubject mirrors internal/gateway.UplinkDecodedSubject;
// duplicated here as a literal to avoid an import cycle between the two
// packages.
const uplinkDecodedSubject = "sigfox.uplink.decoded"

// ForwarderService forwards every decoded uplink to an operator-owned
// HTTP endpoint and/or MQTT broker, the same role the teacher's per-
// application integration forwarder plays for LoRaWAN. Unlike the
// teacher, routing here is global rather than per-tenant: a Sigfox
// backend has one registry of devices, not one application per customer.
type ForwarderService struct {
	nc     *nats.Conn
	config config.IntegrationConfig

	httpClient *http.Client
	mqttClient mqtt.Client
}

// NewForwarderService creates a new forwarder service.
func NewForwarderService(nc *nats.Conn, cfg config.IntegrationConfig) *ForwarderService {
	return &ForwarderService{
		nc:     nc,
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
		},
	}
}

// Start subscribes to decoded uplinks and forwards them until ctx is
// cancelled.
func (s *ForwarderService) Start(ctx context.Context) error {
	if s.config.MQTT.Enabled {
		if err := s.connectMQTT(); err != nil {
			log.Error().Err(err).Msg("failed to connect MQTT integration client")
		}
	}

	sub, err := s.nc.Subscribe(uplinkDecodedSubject, s.handleUplink)
	if err != nil {
		return fmt.Errorf("subscribe to decoded uplinks: %w", err)
	}

	log.Info().Msg("integration forwarder service started")

	<-ctx.Done()

	sub.Unsubscribe()
	if s.mqttClient != nil && s.mqttClient.IsConnected() {
		s.mqttClient.Disconnect(250)
	}

	return nil
}

// handleUplink dispatches one decoded uplink to every enabled transport.
func (s *ForwarderService) handleUplink(msg *nats.Msg) {
	var uplink models.UplinkDecodedMessage
	if err := json.Unmarshal(msg.Data, &uplink); err != nil {
		log.Error().Err(err).Msg("failed to parse decoded uplink message")
		return
	}

	if s.config.HTTP.Enabled {
		go s.forwardToHTTP(uplink)
	}
	if s.config.MQTT.Enabled {
		go s.forwardToMQTT(uplink)
	}
}

func (s *ForwarderService) forwardToHTTP(uplink models.UplinkDecodedMessage) {
	jsonData, err := json.Marshal(uplink)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal forward payload")
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.config.HTTP.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Error().Err(err).Msg("failed to create HTTP forward request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.config.HTTP.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("endpoint", s.config.HTTP.Endpoint).Msg("HTTP forward failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().Int("status", resp.StatusCode).Str("endpoint", s.config.HTTP.Endpoint).Msg("HTTP forward rejected")
		return
	}

	log.Debug().Uint32("devid", uplink.Devid).Str("endpoint", s.config.HTTP.Endpoint).Msg("uplink forwarded to HTTP")
}

func (s *ForwarderService) forwardToMQTT(uplink models.UplinkDecodedMessage) {
	if s.mqttClient == nil || !s.mqttClient.IsConnected() {
		log.Warn().Msg("MQTT integration client not connected, dropping forward")
		return
	}

	topic := topicForDevid(s.config.MQTT.TopicPattern, uplink.Devid)

	jsonData, err := json.Marshal(uplink)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal MQTT forward payload")
		return
	}

	token := s.mqttClient.Publish(topic, s.config.MQTT.QoS, false, jsonData)
	if !token.WaitTimeout(5 * time.Second) {
		log.Error().Str("topic", topic).Msg("MQTT publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to publish to MQTT")
		return
	}

	log.Debug().Uint32("devid", uplink.Devid).Str("topic", topic).Msg("uplink forwarded to MQTT")
}

func (s *ForwarderService) connectMQTT() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.config.MQTT.BrokerURL)
	opts.SetClientID("sigfox-server-integration")

	if s.config.MQTT.Username != "" {
		opts.SetUsername(s.config.MQTT.Username)
		opts.SetPassword(s.config.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().Err(err).Msg("MQTT integration connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return fmt.Errorf("connect MQTT broker: %w", token.Error())
	}

	s.mqttClient = client
	return nil
}

// topicForDevid substitutes {devid} in pattern with devid's decimal
// value.
func topicForDevid(pattern string, devid uint32) string {
	out := make([]byte, 0, len(pattern))
	for i := 0; i < len(pattern); i++ {
		if i+7 <= len(pattern) && pattern[i:i+7] == "{devid}" {
			out = append(out, []byte(fmt.Sprintf("%d", devid))...)
			i += 6
			continue
		}
		out = append(out, pattern[i])
	}
	return string(out)
}
