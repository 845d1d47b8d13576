package live

import (
	"errors"

	"github.com/goccy/go-json"
)

var errNotObject = errors.New("payload is not a JSON object")

// Event types sent to live clients besides the relayed channel names.
const (
	EventConnected = "connected"
	EventHeartbeat = "heartbeat"
	EventError     = "error"
)

type notice struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

func Connected() []byte {
	return mustEncode(notice{Type: EventConnected, Message: "live connection established"})
}

func Heartbeat() []byte {
	return mustEncode(notice{Type: EventHeartbeat})
}

func ErrorEvent(message string) []byte {
	return mustEncode(notice{Type: EventError, Message: message})
}

// Envelope tags a published JSON object with the channel it came from:
// {"type": channel, ...payload}. Payloads that are not JSON objects yield
// an error event instead.
func Envelope(channel string, payload []byte) ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, err
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	fields["type"] = channel
	return json.Marshal(fields)
}

func mustEncode(n notice) []byte {
	data, err := json.Marshal(n)
	if err != nil {
		panic(err)
	}
	return data
}
