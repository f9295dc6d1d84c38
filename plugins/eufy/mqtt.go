package eufy

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// PublisherConfig configures the broker derived readings are mirrored
// to.
type PublisherConfig struct {
	Host        string
	Port        int
	TLS         bool
	Username    string
	Password    string
	TopicPrefix string
}

// Publisher mirrors each derived reading to an MQTT broker so home
// automation can consume it without scraping the metrics endpoint.
type Publisher struct {
	client mqtt.Client
	prefix string
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(randomClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "eufyvac"
	}
	return &Publisher{client: client, prefix: prefix}, nil
}

func (p *Publisher) Publish(reading DeviceTelemetry) {
	payload, err := json.Marshal(reading)
	if err != nil {
		log.Debug().Err(err).Str("device_id", reading.Device.ID).Msg("eufy: cannot encode reading for mqtt")
		return
	}
	topic := fmt.Sprintf("%s/%s/telemetry", p.prefix, reading.Device.ID)
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Debug().Err(token.Error()).Str("topic", topic).Msg("eufy: mqtt publish failed")
		return
	}
	for dpKey, value := range reading.DPS {
		dpTopic := fmt.Sprintf("%s/dps/%s", p.prefix, uniqueID(reading.Device.ID, dpKey))
		if token := p.client.Publish(dpTopic, 0, true, []byte(fmt.Sprint(value))); token.Wait() && token.Error() != nil {
			log.Debug().Err(token.Error()).Str("topic", dpTopic).Msg("eufy: mqtt publish failed")
			return
		}
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func randomClientID() string {
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return "eufyvac-" + base64.RawURLEncoding.EncodeToString(nonce)
}
