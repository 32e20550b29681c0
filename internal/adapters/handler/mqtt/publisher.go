package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"statusboard/internal/core/domain"
	"statusboard/internal/core/logger"
)

const publishTimeout = 5 * time.Second

// Publisher mirrors accepted status events onto an MQTT topic.
type Publisher struct {
	client mqtt.Client
	prefix string
}

// NewPublisher connects to brokerURL and publishes under prefix.
func NewPublisher(brokerURL, prefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("statusboard-%d", time.Now().UnixNano()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", token.Error())
	}

	logger.Info("Connected to MQTT broker", "broker", brokerURL)
	return NewPublisherWithClient(client, prefix), nil
}

// NewPublisherWithClient wraps an already connected client.
func NewPublisherWithClient(client mqtt.Client, prefix string) *Publisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "statusboard"
	}
	return &Publisher{client: client, prefix: prefix}
}

// Topic is where status events are published.
func (p *Publisher) Topic() string {
	return p.prefix + "/status"
}

// NotifyStatus publishes ev at QoS 0 and waits briefly for the broker.
func (p *Publisher) NotifyStatus(ctx context.Context, ev domain.StatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}

	token := p.client.Publish(p.Topic(), 0, false, payload)
	wait := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("publish to %s: timed out", p.Topic())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.Topic(), err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work 250ms.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
