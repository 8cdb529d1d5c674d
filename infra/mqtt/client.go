package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/hems/core/actuator"
	"github.com/kilianp07/hems/core/model"
	coremon "github.com/kilianp07/hems/core/monitoring"
	"github.com/kilianp07/hems/infra/logger"
)

// DefaultTopicPrefix roots every topic used by the actuator.
const DefaultTopicPrefix = "hems"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled      bool            `json:"enabled"`
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	TopicPrefix  string          `json:"topic_prefix"`
	AckTopic     string          `json:"ack_topic"`
	AckTimeoutMS int             `json:"ack_timeout_ms"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	AuthMethod   string          `json:"auth_method"`
	QoS          map[string]byte `json:"qos"`
	LWTTopic     string          `json:"lwt_topic"`
	LWTPayload   string          `json:"lwt_payload"`
	LWTQoS       byte            `json:"lwt_qos"`
	LWTRetain    bool            `json:"lwt_retain"`
	MaxRetries   int             `json:"max_retries"`
	BackoffMS    int             `json:"backoff_ms"`
	TLSConfig    *tls.Config     `json:"-"`
}

// SetDefaults fills the optional fields.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = "hems-controller"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the connection settings of an enabled client.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("mqtt: unknown auth_method %q", c.AuthMethod)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient switches devices by publishing commands on
// <prefix>/device/<id>/command and broadcasts the household snapshot on the
// retained <prefix>/state topic. Only state changes are sent.
type PahoClient struct {
	cli        pahoClient
	prefix     string
	ackTopic   string
	ackTimeout time.Duration
	qos        map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	sent       map[string]bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ACK topic
// when one is configured.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		ackTopic:   cfg.AckTopic,
		ackTimeout: time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		ackChans:   make(map[string]chan struct{}),
		sent:       make(map[string]bool),
		logger:     log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		// commands may have been lost while disconnected
		pc.mu.Lock()
		pc.sent = make(map[string]bool)
		pc.mu.Unlock()
		if pc.ackTopic == "" {
			return
		}
		if token := c.Subscribe(pc.ackTopic, pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// CommandTopic returns the topic a device listens on.
func (p *PahoClient) CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/command", p.prefix, deviceID)
}

// StateTopic returns the retained snapshot topic.
func (p *PahoClient) StateTopic() string { return p.prefix + "/state" }

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		CommandID string `json:"command_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.CommandID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Debugf("received ack %s", m.CommandID)
	}
	p.mu.Unlock()
}

// Apply publishes a command for every device whose state differs from the
// last state successfully sent.
func (p *PahoClient) Apply(ctx context.Context, devices []model.Device) []actuator.Result {
	var out []actuator.Result
	for _, d := range devices {
		p.mu.Lock()
		last, known := p.sent[d.ID]
		p.mu.Unlock()
		if known && last == d.IsOn {
			continue
		}
		cmd := actuator.Command{
			CommandID: uuid.NewString(),
			DeviceID:  d.ID,
			On:        d.IsOn,
			Timestamp: time.Now(),
		}
		err := p.send(ctx, cmd)
		if err != nil {
			coremon.CaptureException(err, map[string]string{"module": "mqtt", "device_id": d.ID})
		} else {
			p.mu.Lock()
			p.sent[d.ID] = d.IsOn
			p.mu.Unlock()
		}
		out = append(out, actuator.Result{Command: cmd, Err: err})
	}
	return out
}

func (p *PahoClient) send(ctx context.Context, cmd actuator.Command) error {
	if p.cli == nil || !p.cli.IsConnected() {
		return actuator.ErrNotConnected
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	var ch chan struct{}
	if p.ackTopic != "" && p.ackTimeout > 0 {
		ch = make(chan struct{}, 1)
		p.mu.Lock()
		p.ackChans[cmd.CommandID] = ch
		p.mu.Unlock()
		defer func() {
			p.mu.Lock()
			delete(p.ackChans, cmd.CommandID)
			p.mu.Unlock()
		}()
	}
	if err := p.publish(ctx, p.CommandTopic(cmd.DeviceID), p.qosFor("command"), false, payload); err != nil {
		return err
	}
	p.logger.Infof("sent command %s to %s", cmd.CommandID, p.CommandTopic(cmd.DeviceID))
	if ch == nil {
		return nil
	}
	timer := time.NewTimer(p.ackTimeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrAckTimeout, cmd.CommandID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PahoClient) publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return publishErr
}

type stateMessage struct {
	model.State
	Warnings  []string  `json:"warnings"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishState broadcasts the snapshot on the retained state topic.
func (p *PahoClient) PublishState(ctx context.Context, st model.State, warnings []string) error {
	if p.cli == nil || !p.cli.IsConnected() {
		return actuator.ErrNotConnected
	}
	if warnings == nil {
		warnings = []string{}
	}
	payload, err := json.Marshal(stateMessage{State: st, Warnings: warnings, Timestamp: time.Now()})
	if err != nil {
		return err
	}
	return p.publish(ctx, p.StateTopic(), p.qosFor("state"), true, payload)
}

// Forget drops the last state sent for a device so the next Apply re-sends it.
func (p *PahoClient) Forget(deviceID string) {
	p.mu.Lock()
	delete(p.sent, deviceID)
	p.mu.Unlock()
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
