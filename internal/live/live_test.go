package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.C():
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_BroadcastFanOut(t *testing.T) {
	hub := NewHub(4)
	a := hub.Subscribe()
	b := hub.Subscribe()
	assert.Equal(t, 2, hub.ClientCount())

	assert.Equal(t, 2, hub.Broadcast([]byte(`{"type":"x"}`)))
	assert.Equal(t, `{"type":"x"}`, string(receive(t, a)))
	assert.Equal(t, `{"type":"x"}`, string(receive(t, b)))

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	assert.Equal(t, 1, hub.ClientCount())
	_, ok := <-a.C()
	assert.False(t, ok)

	assert.Equal(t, 1, hub.Broadcast([]byte(`{}`)))
}

func TestHub_SlowClientMissesMessages(t *testing.T) {
	hub := NewHub(1)
	slow := hub.Subscribe()

	assert.Equal(t, 1, hub.Broadcast([]byte("1")))
	assert.Equal(t, 0, hub.Broadcast([]byte("2")))

	assert.Equal(t, "1", string(receive(t, slow)))
	assert.Equal(t, 1, hub.Broadcast([]byte("3")))
	assert.Equal(t, "3", string(receive(t, slow)))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(1)
	c := hub.Subscribe()
	hub.Close()
	hub.Close()

	_, ok := <-c.C()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())

	late := hub.Subscribe()
	_, ok = <-late.C()
	assert.False(t, ok)
	hub.Unsubscribe(late)
}

func TestEnvelope(t *testing.T) {
	data, err := Envelope("partner:gps-update", []byte(`{"partnerId":"p1","lat":12.5,"lng":77.5}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"partner:gps-update","partnerId":"p1","lat":12.5,"lng":77.5}`, string(data))

	_, err = Envelope("booking:confirmed", []byte(`not json`))
	assert.Error(t, err)

	for _, payload := range []string{`null`, `[]`, `[{"partnerId":"p1"}]`, `"str"`, `42`} {
		assert.NotPanics(t, func() {
			_, err := Envelope("partner:gps-update", []byte(payload))
			assert.ErrorIs(t, err, errNotObject, payload)
		})
	}

	assert.JSONEq(t, `{"type":"error","message":"boom"}`, string(ErrorEvent("boom")))
	assert.JSONEq(t, `{"type":"heartbeat"}`, string(Heartbeat()))
	assert.JSONEq(t, `{"type":"connected","message":"live connection established"}`, string(Connected()))
}

func TestRelay_FromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := client.Subscribe(ctx, "partner:gps-update", "booking:confirmed")
	_, err := ps.Receive(ctx)
	require.NoError(t, err)
	defer ps.Close()

	hub := NewHub(8)
	c := hub.Subscribe()

	done := make(chan error, 1)
	go func() { done <- Relay(ctx, ps.Channel(), hub) }()

	require.NoError(t, client.Publish(ctx, "booking:confirmed", `{"bookingId":"b1","partnerId":"p1"}`).Err())
	assert.JSONEq(t, `{"type":"booking:confirmed","bookingId":"b1","partnerId":"p1"}`, string(receive(t, c)))

	require.NoError(t, client.Publish(ctx, "partner:gps-update", `garbage`).Err())
	assert.JSONEq(t, `{"type":"error","message":"invalid payload on partner:gps-update"}`, string(receive(t, c)))

	require.NoError(t, client.Publish(ctx, "partner:gps-update", `null`).Err())
	assert.JSONEq(t, `{"type":"error","message":"invalid payload on partner:gps-update"}`, string(receive(t, c)))

	require.NoError(t, client.Publish(ctx, "booking:confirmed", `{"bookingId":"b2"}`).Err())
	assert.JSONEq(t, `{"type":"booking:confirmed","bookingId":"b2"}`, string(receive(t, c)))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

type recorder struct {
	mu     sync.Mutex
	frames []string
	fail   error
}

func (r *recorder) write(b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.frames = append(r.frames, string(b))
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func TestStream_ConnectedMessagesAndHeartbeat(t *testing.T) {
	hub := NewHub(8)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Stream(ctx, hub, 20*time.Millisecond, rec.write) }()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast([]byte(`{"type":"booking:confirmed"}`))

	require.Eventually(t, func() bool {
		frames := rec.snapshot()
		for _, f := range frames {
			if f == string(Heartbeat()) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, hub.ClientCount())

	frames := rec.snapshot()
	require.GreaterOrEqual(t, len(frames), 3)
	assert.Equal(t, string(Connected()), frames[0])
	assert.Contains(t, frames, `{"type":"booking:confirmed"}`)
}

func TestStream_WriteFailureUnsubscribes(t *testing.T) {
	hub := NewHub(8)
	boom := errors.New("broken pipe")
	rec := &recorder{fail: boom}

	err := Stream(context.Background(), hub, time.Minute, rec.write)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestStream_EndsWhenHubCloses(t *testing.T) {
	hub := NewHub(8)
	rec := &recorder{}
	done := make(chan error, 1)
	go func() { done <- Stream(context.Background(), hub, time.Minute, rec.write) }()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
}
