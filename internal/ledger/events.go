package ledger

import (
	"encoding/json"
	"fmt"
)

// Event is a decoded log. Each stage client registers the events it knows;
// anything else comes back as UnrecognizedEvent.
type Event interface {
	EventName() string
}

// UnrecognizedEvent wraps a log no decoder was registered for.
type UnrecognizedEvent struct {
	Log Log
}

func (u UnrecognizedEvent) EventName() string { return u.Log.Name }

// Decoder turns receipt logs into typed events.
type Decoder struct {
	decoders map[string]func(json.RawMessage) (Event, error)
}

func NewDecoder() *Decoder {
	return &Decoder{decoders: make(map[string]func(json.RawMessage) (Event, error))}
}

func decoderKey(target, name string) string { return target + "/" + name }

// Register teaches d to decode event name emitted by target into T.
func Register[T Event](d *Decoder, target, name string) {
	d.decoders[decoderKey(target, name)] = func(raw json.RawMessage) (Event, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Decode decodes every log in order. A log that matches a registered event
// but fails to parse is an error.
func (d *Decoder) Decode(logs []Log) ([]Event, error) {
	out := make([]Event, 0, len(logs))
	for _, l := range logs {
		fn, ok := d.decoders[decoderKey(l.Target, l.Name)]
		if !ok {
			out = append(out, UnrecognizedEvent{Log: l})
			continue
		}
		ev, err := fn(l.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", l.Target, l.Name, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Find returns the first event of type T.
func Find[T Event](events []Event) (T, bool) {
	for _, ev := range events {
		if v, ok := ev.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
