package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
)

// MQTTSource fires on every message published to a topic. Phones and home
// automation setups publish their lock events to a broker; the payload is
// ignored, only the arrival counts.
type MQTTSource struct {
	Broker   string // host:port
	Topic    string
	ClientID string
	QoS      byte
	Logger   *slog.Logger
}

func (s MQTTSource) Run(ctx context.Context, fire Handler) error {
	logger := logging.Default(s.Logger).With("component", "mqtt-trigger")

	clientID := s.ClientID
	if clientID == "" {
		clientID = "nwc-trigger"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", s.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	// Subscribing in OnConnect re-establishes the subscription after every
	// reconnect, not just the first connect.
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connected", "broker", s.Broker, "topic", s.Topic)
		token := c.Subscribe(s.Topic, s.QoS, func(_ mqtt.Client, _ mqtt.Message) {
			fire()
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			logger.Warn("mqtt subscribe failed", "topic", s.Topic, "error", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connection timeout to %s", s.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.Broker, err)
	}

	<-ctx.Done()
	client.Disconnect(250)
	logger.Info("mqtt disconnected")
	return nil
}
