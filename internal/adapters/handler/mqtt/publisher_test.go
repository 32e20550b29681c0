package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"statusboard/internal/core/domain"
)

type fakeToken struct {
	completed bool
	err       error
}

func (t *fakeToken) Wait() bool                     { return t.completed }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.completed }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.completed {
		close(ch)
	}
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses.
type fakeClient struct {
	mqtt.Client
	token        *fakeToken
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestNotifyStatusPublishesEvent(t *testing.T) {
	client := &fakeClient{token: &fakeToken{completed: true}}
	p := NewPublisherWithClient(client, "home/agents/")

	ev := domain.StatusEvent{Agent: "Bob", Status: "online", ReceivedAt: "2026-03-04T12:00:00.000Z"}
	require.NoError(t, p.NotifyStatus(context.Background(), ev))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "home/agents/status", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.False(t, msg.retained)
	assert.Equal(t, "Bob", gjson.GetBytes(msg.payload, "agent").String())
	assert.Equal(t, "online", gjson.GetBytes(msg.payload, "status").String())
	assert.Equal(t, ev.ReceivedAt, gjson.GetBytes(msg.payload, "receivedAt").String())
}

func TestNotifyStatusErrors(t *testing.T) {
	tests := []struct {
		name  string
		token *fakeToken
	}{
		{"timeout", &fakeToken{completed: false}},
		{"broker error", &fakeToken{completed: true, err: errors.New("not connected")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPublisherWithClient(&fakeClient{token: tt.token}, "")
			err := p.NotifyStatus(context.Background(), domain.StatusEvent{Agent: "Bob"})
			assert.Error(t, err)
		})
	}
}

func TestPublisherDefaults(t *testing.T) {
	client := &fakeClient{token: &fakeToken{completed: true}}
	p := NewPublisherWithClient(client, "")
	assert.Equal(t, "statusboard/status", p.Topic())

	p.Close()
	assert.True(t, client.disconnected)
}
