package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hems/core/actuator"
	"github.com/kilianp07/hems/core/model"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
}

func TestNewPahoClient_SubscribesAckWithQoS(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", AckTopic: "hems/device/+/ack", QoS: map[string]byte{"command": 2, "ack": 1}}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(mc.subscribed) == 0 || mc.subscribed[0].qos != 1 {
		t.Fatalf("subscribe qos not applied")
	}
	res := cli.Apply(context.Background(), []model.Device{{ID: "1", IsOn: true}})
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("apply: %+v", res)
	}
	if len(mc.published) == 0 || mc.published[0].qos != 2 {
		t.Fatalf("publish qos not applied")
	}
	if mc.published[0].topic != "hems/device/1/command" {
		t.Fatalf("unexpected topic %s", mc.published[0].topic)
	}
}

func TestApply_PayloadAndDedup(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", TopicPrefix: "home"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	devs := []model.Device{{ID: "fridge", IsOn: true}, {ID: "tv", IsOn: false}}
	if res := cli.Apply(context.Background(), devs); len(res) != 2 || actuator.Failed(res) != 0 {
		t.Fatalf("first apply: %+v", res)
	}
	var cmd actuator.Command
	if err := json.Unmarshal(mc.published[0].payload, &cmd); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.DeviceID != "fridge" || !cmd.On || cmd.CommandID == "" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if mc.published[1].topic != "home/device/tv/command" {
		t.Fatalf("unexpected topic %s", mc.published[1].topic)
	}

	devs[1].IsOn = true
	res := cli.Apply(context.Background(), devs)
	if len(res) != 1 || res[0].Command.DeviceID != "tv" {
		t.Fatalf("expected only the changed device, got %+v", res)
	}

	cli.Forget("fridge")
	if res := cli.Apply(context.Background(), devs); len(res) != 1 || res[0].Command.DeviceID != "fridge" {
		t.Fatalf("expected fridge to be re-sent, got %+v", res)
	}
}

func TestPublishState_Retained(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	st := model.State{BatteryRemainingWh: 50, BatteryCapacityWh: 5000}
	if err := cli.PublishState(context.Background(), st, nil); err != nil {
		t.Fatalf("publish state: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].topic != "hems/state" || !mc.published[0].retained {
		t.Fatalf("state not published retained: %+v", mc.published)
	}
	var msg map[string]any
	if err := json.Unmarshal(mc.published[0].payload, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["batteryRemainingWh"] != 50.0 {
		t.Fatalf("unexpected payload %v", msg)
	}
	if _, ok := msg["warnings"].([]any); !ok {
		t.Fatalf("warnings should be an array: %v", msg["warnings"])
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "hems/status", LWTPayload: "offline", LWTQoS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "hems/status" || string(mc.opts.WillPayload) != "offline" {
		t.Fatalf("will options incorrect")
	}
	cli.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	res := cli.Apply(context.Background(), []model.Device{{ID: "1", IsOn: true}})
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("apply: %+v", res)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
}

func TestApply_WaitsForAck(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", AckTopic: "hems/device/+/ack", AckTimeoutMS: 500})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	mc.onPublish = func(payload []byte) {
		var cmd actuator.Command
		_ = json.Unmarshal(payload, &cmd)
		go cli.onAck(nil, mockMessage{[]byte(fmt.Sprintf(`{"command_id":"%s"}`, cmd.CommandID))})
	}
	res := cli.Apply(context.Background(), []model.Device{{ID: "1", IsOn: true}})
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("ack wait failed: %+v", res)
	}
}

func TestApply_AckTimeout(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", AckTopic: "hems/device/+/ack", AckTimeoutMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	res := cli.Apply(context.Background(), []model.Device{{ID: "1", IsOn: true}})
	if len(res) != 1 || !errors.Is(res[0].Err, ErrAckTimeout) {
		t.Fatalf("expected timeout, got %+v", res)
	}
	// the failed command is retried on the next tick
	if res := cli.Apply(context.Background(), []model.Device{{ID: "1", IsOn: true}}); len(res) != 1 {
		t.Fatalf("expected resend after timeout")
	}
}

func TestApply_NotConnected(t *testing.T) {
	mc := &mockClient{disconnected: true}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	res := cli.Apply(context.Background(), []model.Device{{ID: "1"}})
	if len(res) != 1 || !errors.Is(res[0].Err, actuator.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %+v", res)
	}
	if err := cli.PublishState(context.Background(), model.State{}, nil); !errors.Is(err, actuator.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("disabled config should be valid: %v", err)
	}
	if err := (Config{Enabled: true}).Validate(); err == nil {
		t.Fatalf("expected missing broker error")
	}
	if err := (Config{Enabled: true, Broker: "tcp://b:1883", AuthMethod: "token"}).Validate(); err == nil {
		t.Fatalf("expected auth method error")
	}
	var c Config
	c.SetDefaults()
	if c.TopicPrefix != DefaultTopicPrefix || c.MaxRetries != 3 || c.BackoffMS != 100 {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

// mockClient implements pahoClient for tests
type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published    []published
	publishErrs  []error
	onPublish    func([]byte)
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return !m.disconnected }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, retained, b})
	if m.onPublish != nil {
		m.onPublish(b)
	}
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct{ p []byte }

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return "" }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
