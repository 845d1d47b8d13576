package live

import (
	"context"
	"time"
)

// Stream registers a client and pushes frames to write until ctx ends, the
// hub drops the client or write fails. It sends a connected event first and
// a heartbeat whenever the interval passes.
func Stream(ctx context.Context, hub *Hub, heartbeat time.Duration, write func([]byte) error) error {
	client := hub.Subscribe()
	defer hub.Unsubscribe(client)

	if err := write(Connected()); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-client.C():
			if !ok {
				return nil
			}
			if err := write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := write(Heartbeat()); err != nil {
				return err
			}
		}
	}
}
