package events

import "encoding/json"

// Event name constants
const (
	DeviceAttached = "device.attached"
	DeviceDetached = "device.detached"
	QueryFailed    = "query.failed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// DeviceEvent is the payload for device.attached and device.detached.
type DeviceEvent struct {
	Bus     string `json:"bus"`
	Address uint16 `json:"address"`
	Error   string `json:"error,omitempty"`
	Ts      int64  `json:"ts"`
}

// QueryFailedEvent is the payload for query.failed.
type QueryFailedEvent struct {
	Query string `json:"query"`
	Error string `json:"error"`
	Ts    int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// If Data is empty, it returns the zero value of T with a nil error.
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
