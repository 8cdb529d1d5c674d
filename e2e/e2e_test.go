package e2e

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/hems/app"
	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/factory"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal JUnit XML report so CI systems can display the
// results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an initialised InfluxDB 2.7 container and returns its
// base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// subscribeCommands collects device commands published by the controller.
func subscribeCommands(t *testing.T, broker string) (*sync.Map, func()) {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-observer")
	cli := paho.NewClient(opts)
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("observer connect: %v", tok.Error())
	}
	seen := &sync.Map{}
	tok := cli.Subscribe("hems/device/+/command", 1, func(_ paho.Client, m paho.Message) {
		var cmd struct {
			DeviceID string `json:"device_id"`
			On       bool   `json:"on"`
		}
		if err := json.Unmarshal(m.Payload(), &cmd); err == nil {
			seen.Store(cmd.DeviceID, cmd.On)
		}
	})
	if tok.Wait() && tok.Error() != nil {
		t.Fatalf("observer subscribe: %v", tok.Error())
	}
	return seen, func() { cli.Disconnect(100) }
}

// Test_E2E_TickPipeline runs the controller against real InfluxDB and
// Mosquitto instances: one tick must reach the tick log, the Influx bucket
// and the MQTT command topics.
func Test_E2E_TickPipeline(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") == "" {
		t.Skip("DOCKER_AVAILABLE not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, mqttURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck

	seen, stop := subscribeCommands(t, mqttURL)
	defer stop()

	cfg := config.Default()
	cfg.Tick.Disabled = true
	cfg.Logging.Path = filepath.Join(t.TempDir(), "ticks.log")
	cfg.Forecast = factory.ModuleConfig{Type: "fixed", Conf: map[string]any{"wh": 500}}
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = mqttURL
	cfg.Metrics.Sinks = []factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket},
	}}

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close()

	res, err := svc.Orchestrator.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.State.BatteryRemainingWh != 62.5 {
		t.Fatalf("battery = %v, want 62.5", res.State.BatteryRemainingWh)
	}

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	n, err := cli.CountPoints(ctx, "hems_tick", "5m")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n == 0 {
		t.Fatal("no hems_tick points in influx")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		count := 0
		seen.Range(func(_, _ any) bool { count++; return true })
		if count == len(res.State.Devices) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received commands for %d of %d devices", count, len(res.State.Devices))
		}
		time.Sleep(50 * time.Millisecond)
	}
	if on, _ := seen.Load("2"); on != true {
		t.Fatalf("refrigerator command on=%v, want true", on)
	}

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{
		Name: "Test_E2E_TickPipeline", Time: time.Since(start).Seconds(),
	}}}
	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
