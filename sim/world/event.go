package world

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/triage-sim/triage-sim/sim/content"
)

// PayloadKind names the payload of an event.
type PayloadKind string

const (
	PayloadInjury PayloadKind = "injury"
	PayloadAction PayloadKind = "action"
	PayloadCancel PayloadKind = "cancel"
	PayloadMove   PayloadKind = "move"
	PayloadPlace  PayloadKind = "place"
)

// Payload is the closed set of things an event can carry.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

// InjuryPayload afflicts the event's entity with a content injury. An empty
// Block lets the injury choose its own.
type InjuryPayload struct {
	Injury string `json:"injury"`
	Block  string `json:"block,omitempty"`
}

// ActionPayload is a treatment or measurement performed by Actor on the
// event's entity.
type ActionPayload struct {
	Actor  string               `json:"actor"`
	Source content.ActionSource `json:"source"`
	Block  string               `json:"block,omitempty"`
}

// CancelPayload withdraws a pending action, designated by the ID of the
// event that started it.
type CancelPayload struct {
	Target int64 `json:"target"`
}

// MovePayload sends the event's entity walking to Destination.
type MovePayload struct {
	Destination Point `json:"destination"`
}

// PlacePayload puts the event's entity at Location instantly.
type PlacePayload struct {
	Location Point `json:"location"`
}

func (InjuryPayload) Kind() PayloadKind { return PayloadInjury }
func (ActionPayload) Kind() PayloadKind { return PayloadAction }
func (CancelPayload) Kind() PayloadKind { return PayloadCancel }
func (MovePayload) Kind() PayloadKind   { return PayloadMove }
func (PlacePayload) Kind() PayloadKind  { return PayloadPlace }

func (InjuryPayload) isPayload() {}
func (ActionPayload) isPayload() {}
func (CancelPayload) isPayload() {}
func (MovePayload) isPayload()   {}
func (PlacePayload) isPayload()  {}

// Event is something that happened to an entity at a simulated time.
type Event struct {
	ID            int64 // unique, monotonic at the source
	ReceivedOrder int64 // arrival order at the host
	SimTime       int64 // ms
	Entity        string
	Payload       Payload
}

func (e Event) String() string {
	kind := PayloadKind("none")
	if e.Payload != nil {
		kind = e.Payload.Kind()
	}
	return fmt.Sprintf("event %d (%s on %q at t=%d)", e.ID, kind, e.Entity, e.SimTime)
}

// SortEvents orders events by simulated time, then received order, then ID.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, compareEvents)
}

func compareEvents(a, b Event) int {
	if c := cmp.Compare(a.SimTime, b.SimTime); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ReceivedOrder, b.ReceivedOrder); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
