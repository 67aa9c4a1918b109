package world

import (
	"encoding/json"
	"fmt"
)

// eventEnvelope is the wire form of an Event.
type eventEnvelope struct {
	ID            int64           `json:"id"`
	ReceivedOrder int64           `json:"received_order"`
	SimTime       int64           `json:"sim_time"`
	Entity        string          `json:"entity"`
	Kind          PayloadKind     `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
}

// EncodeEvent marshals an event to JSON.
func EncodeEvent(ev Event) ([]byte, error) {
	if ev.Payload == nil {
		return nil, fmt.Errorf("%v: %w: no payload", ev, ErrInvalidEvent)
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %v: %w", ev, err)
	}
	return json.Marshal(eventEnvelope{
		ID:            ev.ID,
		ReceivedOrder: ev.ReceivedOrder,
		SimTime:       ev.SimTime,
		Entity:        ev.Entity,
		Kind:          ev.Payload.Kind(),
		Payload:       payload,
	})
}

// DecodeEvent unmarshals an event produced by EncodeEvent.
func DecodeEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	payload, err := decodePayload(env.Kind, env.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("decoding event %d: %w", env.ID, err)
	}
	return Event{
		ID:            env.ID,
		ReceivedOrder: env.ReceivedOrder,
		SimTime:       env.SimTime,
		Entity:        env.Entity,
		Payload:       payload,
	}, nil
}

func decodePayload(kind PayloadKind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case PayloadInjury:
		return unmarshalAs[InjuryPayload](raw)
	case PayloadAction:
		return unmarshalAs[ActionPayload](raw)
	case PayloadCancel:
		return unmarshalAs[CancelPayload](raw)
	case PayloadMove:
		return unmarshalAs[MovePayload](raw)
	case PayloadPlace:
		return unmarshalAs[PlacePayload](raw)
	}
	return nil, fmt.Errorf("%w: unknown payload kind %q", ErrInvalidEvent, kind)
}

func unmarshalAs[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
