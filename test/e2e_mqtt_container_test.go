package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/voltbridge/ocpp-gateway/app"
	"github.com/voltbridge/ocpp-gateway/config"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

// chargePoint simulates a station: it collects frames published to its out
// topic and can answer on its in topic.
type chargePoint struct {
	id     string
	cli    paho.Client
	frames chan []byte
}

func connectChargePoint(t *testing.T, broker, id string) *chargePoint {
	t.Helper()
	cp := &chargePoint{id: id, frames: make(chan []byte, 8)}
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("cp-" + id)
	cp.cli = paho.NewClient(opts)
	token := cp.cli.Connect()
	token.Wait()
	if token.Error() != nil {
		t.Logf("charge point connect: %v", token.Error())
		t.Skip("Mosquitto not ready after retries")
	}
	if token := cp.cli.Subscribe(id+"/out", 1, func(_ paho.Client, m paho.Message) {
		cp.frames <- m.Payload()
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	return cp
}

func (cp *chargePoint) send(t *testing.T, frame string) {
	t.Helper()
	if token := cp.cli.Publish("ocpp/"+cp.id+"/in", 1, false, []byte(frame)); token.Wait() && token.Error() != nil {
		t.Fatalf("publish: %v", token.Error())
	}
}

func (cp *chargePoint) receive(t *testing.T, timeout time.Duration) []json.RawMessage {
	t.Helper()
	select {
	case raw := <-cp.frames:
		var elems []json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &elems))
		return elems
	case <-time.After(timeout):
		t.Fatalf("no frame received on %s/out", cp.id)
		return nil
	}
}

func TestGatewayWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	cfg := &config.Config{}
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "gateway-e2e"
	cfg.MQTT.QoS = 1
	cfg.Gateway.SetDefaults()
	cfg.Ledger.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.API.SetDefaults()

	svc, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	go func() { _ = svc.Run(ctx) }()

	cp := connectChargePoint(t, broker, "CP1")
	defer cp.cli.Disconnect(100)

	// Give the gateway subscription time to land on the broker.
	time.Sleep(250 * time.Millisecond)

	cp.send(t, `[2,"boot-1","BootNotification",{"chargingStation":{"model":"X1","vendorName":"Volt"},"reason":"PowerUp"}]`)
	elems := cp.receive(t, 5*time.Second)
	require.Len(t, elems, 3)
	assert.JSONEq(t, `3`, string(elems[0]))
	assert.JSONEq(t, `"boot-1"`, string(elems[1]))
	var boot map[string]any
	require.NoError(t, json.Unmarshal(elems[2], &boot))
	assert.Equal(t, "Accepted", boot["status"])

	cp.send(t, `[2,"hb-1","Heartbeat",{}]`)
	elems = cp.receive(t, 5*time.Second)
	require.Len(t, elems, 3)
	var hb map[string]any
	require.NoError(t, json.Unmarshal(elems[2], &hb))
	assert.Contains(t, hb, "currentTime")

	// Remote start flows out to the station and its reply resolves the
	// pending command.
	id, err := svc.Sender.RequestStart(ctx, "CP1", "TAG-1", 1)
	require.NoError(t, err)
	elems = cp.receive(t, 5*time.Second)
	require.Len(t, elems, 4)
	assert.JSONEq(t, `2`, string(elems[0]))
	assert.JSONEq(t, `"RequestStartTransaction"`, string(elems[2]))

	cp.send(t, `[3,"`+id+`",{"status":"Accepted"}]`)
	require.Eventually(t, func() bool {
		state, ok := svc.Store.Get("CP1")
		if !ok {
			return false
		}
		_, ok = state["lastCommandResult"]
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	// The reply itself must never be answered.
	select {
	case raw := <-cp.frames:
		t.Fatalf("unexpected frame on CP1/out: %s", raw)
	case <-time.After(300 * time.Millisecond):
	}
}
