package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"prodline-server/internal/config"
	"prodline-server/internal/logging"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	connected    bool
	connectTok   *fakeToken
	publishTok   *fakeToken
	published    []published
	disconnected int
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connect() mqtt.Token { return c.connectTok }

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected++
	c.connected = false
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	c.mu.Unlock()
	return c.publishTok
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{Enabled: true, Broker: "localhost", Port: 1883, ClientID: "test", Topic: "production/parameters"}
}

func connectedPublisher(client *fakeClient) *Publisher {
	client.connected = true
	p := newPublisher(client, testConfig(), logging.Discard())
	p.setConnected(true)
	return p
}

func TestPublish(t *testing.T) {
	client := &fakeClient{publishTok: completedToken(nil)}
	p := connectedPublisher(client)

	if err := p.Publish(context.Background(), "measured", []byte(`{"id":1}`)); err != nil {
		t.Fatalf("Publish() = %v; want nil", err)
	}
	if len(client.published) != 1 {
		t.Fatalf("published %d messages; want 1", len(client.published))
	}
	got := client.published[0]
	if got.topic != "production/parameters/measured" {
		t.Errorf("topic = %q; want production/parameters/measured", got.topic)
	}
	if got.qos != 1 {
		t.Errorf("qos = %d; want 1", got.qos)
	}
	if string(got.payload) != `{"id":1}` {
		t.Errorf("payload = %q", got.payload)
	}
}

func TestPublish_notConnected(t *testing.T) {
	client := &fakeClient{publishTok: completedToken(nil)}
	p := newPublisher(client, testConfig(), logging.Discard())

	err := p.Publish(context.Background(), "measured", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish() = %v; want ErrNotConnected", err)
	}
	if len(client.published) != 0 {
		t.Errorf("published %d messages; want 0", len(client.published))
	}
}

func TestPublish_tokenError(t *testing.T) {
	client := &fakeClient{publishTok: completedToken(errors.New("broker refused"))}
	p := connectedPublisher(client)

	err := p.Publish(context.Background(), "target", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "broker refused") {
		t.Fatalf("Publish() = %v; want broker error", err)
	}
}

func TestPublish_contextCanceled(t *testing.T) {
	client := &fakeClient{publishTok: pendingToken()}
	p := connectedPublisher(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "measured", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish() = %v; want context.Canceled", err)
	}
}

func TestTopic(t *testing.T) {
	p := newPublisher(&fakeClient{}, testConfig(), logging.Discard())
	if got := p.Topic(""); got != "production/parameters" {
		t.Errorf("Topic(\"\") = %q", got)
	}
	if got := p.Topic("target"); got != "production/parameters/target" {
		t.Errorf("Topic(target) = %q", got)
	}
}

func TestConnect_error(t *testing.T) {
	client := &fakeClient{connectTok: completedToken(errors.New("network unreachable"))}
	p := newPublisher(client, testConfig(), logging.Discard())

	err := p.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "mqtt connect") {
		t.Fatalf("Connect() = %v; want wrapped connect error", err)
	}
}

func TestConnect_contextDeadline(t *testing.T) {
	client := &fakeClient{connectTok: pendingToken(), publishTok: completedToken(nil)}
	p := newPublisher(client, testConfig(), logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() = %v; want context.DeadlineExceeded", err)
	}
	if client.disconnected != 0 {
		t.Errorf("disconnected = %d; want 0 so the client keeps retrying", client.disconnected)
	}

	// The background retry landing later flips the publisher to connected.
	client.mu.Lock()
	client.connected = true
	client.mu.Unlock()
	p.setConnected(true)
	if err := p.Publish(context.Background(), "readings", []byte("{}")); err != nil {
		t.Errorf("Publish() after late connect = %v; want nil", err)
	}
}

func TestConnect_afterDisconnect(t *testing.T) {
	client := &fakeClient{connectTok: pendingToken()}
	p := newPublisher(client, testConfig(), logging.Discard())

	p.Disconnect()
	p.Disconnect()

	if err := p.Connect(context.Background()); !errors.Is(err, errStopped) {
		t.Fatalf("Connect() = %v; want errStopped", err)
	}
	if p.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
}
