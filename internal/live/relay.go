package live

import (
	"context"

	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Relay forwards pub/sub messages into the hub until ctx ends or msgs is
// closed. One subscription serves every connected client.
func Relay(ctx context.Context, msgs <-chan *redis.Message, hub *Hub) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				logging.Warn().Msg("live relay subscription closed")
				return nil
			}
			hub.Broadcast(frame(msg.Channel, msg.Payload))
		}
	}
}

func frame(channel, payload string) []byte {
	data, err := Envelope(channel, []byte(payload))
	if err != nil {
		logging.Warn().Err(err).Str("channel", channel).Msg("undecodable live payload")
		return ErrorEvent("invalid payload on " + channel)
	}
	return data
}
