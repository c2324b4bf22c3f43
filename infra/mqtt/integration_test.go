package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/gridopt/core/events"
	"github.com/kilianp07/gridopt/internal/eventbus"
)

// TestScheduleIntegration publishes a schedule through a real Mosquitto broker.
func TestScheduleIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("sub"))
	var connectErr error
	for i := 0; i < 10; i++ {
		if token := sub.Connect(); token.Wait() && token.Error() != nil {
			connectErr = token.Error()
			time.Sleep(300 * time.Millisecond)
			continue
		}
		connectErr = nil
		break
	}
	if connectErr != nil {
		t.Fatalf("failed to connect: %v", connectErr)
	}
	defer sub.Disconnect(100)

	msgCh := make(chan []byte, 1)
	if token := sub.Subscribe(ScheduleTopic("it", "m"), 1, func(_ paho.Client, m paho.Message) {
		msgCh <- m.Payload()
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("failed to subscribe: %v", token.Error())
	}

	pub, err := NewPahoClient(Config{Broker: broker, ClientID: "pub", QoS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer pub.Disconnect()

	bus := eventbus.NewTyped[events.AdvanceEvent]()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := StartSchedulePublisher(runCtx, bus, pub, "it")
	bus.Publish(events.AdvanceEvent{Model: "m", T: 4, Committed: []int{4}, Objective: 2,
		Values: []events.CommittedValue{{Part: "tank", Variable: "tank.volume(4)", T: 4, Value: 7}}})

	select {
	case payload := <-msgCh:
		var msg ScheduleMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.T != 4 || len(msg.Values) != 1 || msg.Values[0].Value != 7 {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for schedule")
	}
	bus.Close()
	<-done
}
