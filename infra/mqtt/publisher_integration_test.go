//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/routing"
	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/internal/testutil"
)

func TestStatusPublisherWithMosquitto(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	delivered := make(chan Event, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)
	tok = sub.Subscribe("it/events", 1, func(_ paho.Client, m paho.Message) {
		var ev Event
		if json.Unmarshal(m.Payload(), &ev) == nil && ev.Kind == dispatch.KindDelivered {
			select {
			case delivered <- ev:
			default:
			}
		}
	})
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	pub, err := NewStatusPublisher(Config{Broker: broker, ClientID: "engine", TopicPrefix: "it", QoS: map[string]byte{"events": 1}}, logger.NopLogger{})
	require.NoError(t, err)
	defer pub.Close()

	e, err := dispatch.NewEngine(routing.NewDefault(), []*model.Carrier{model.NewCarrier("DR-001", 5, "Warehouse")}, dispatch.Options{
		Config:   dispatch.Config{Workers: 2, BackoffMS: 1, UnitDelayMS: 1, ShutdownGraceSeconds: 5},
		Observer: pub,
	})
	require.NoError(t, err)
	_, err = e.Submit(2, "Airport")
	require.NoError(t, err)
	require.NoError(t, e.WaitIdle(ctx))
	require.NoError(t, e.Shutdown(ctx))

	select {
	case ev := <-delivered:
		assert.Equal(t, "PKG-1", ev.RequestID)
		assert.Equal(t, "DR-001", ev.CarrierID)
	case <-time.After(10 * time.Second):
		t.Fatal("delivered event not received")
	}
}
