// Package face implements the Face Registry (spec §4.5): the thin
// multiplexer mapping a face id to an endpoint able to accept an outbound
// packet and emit inbound packets as events. Grounded on
// std/engine/face/base_face.go's running/onUp/onDown lifecycle pattern,
// generalized from a single client face to a registry of many concrete
// transports (UDP fast-path, WebSocket, Unix stream).
package face

import (
	"sync"
	"sync/atomic"

	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/ndnerr"
)

// Id is the wire-shared u16 face identifier (spec §3).
type Id = uint16

// EventKind classifies one entry in a Face's event stream (spec §4.5).
type EventKind int

const (
	EventInterestReceived EventKind = iota
	EventDataReceived
	EventClosed
	EventError
)

// Event is one item on a Face's bounded event channel. RawPacket carries
// the still-undecoded TLV bytes for InterestReceived/DataReceived; the
// forwarder decodes it via the pkt package before dispatch, keeping the
// face package itself codec-agnostic.
type Event struct {
	Kind      EventKind
	FaceId    Id
	RawPacket []byte
	Err       error
}

// Transport is what a concrete face kind (UDP, WebSocket, Unix stream,
// QUIC session — see the session package) must implement. Send is called
// by the registry only; a transport never reaches back into the registry
// directly (spec §9 weak-reference discipline).
type Transport interface {
	// Send writes one already-encoded NDN TLV packet out this transport.
	Send(packet []byte) error
	// Close tears down the underlying connection. Idempotent.
	Close() error
	// String identifies the transport kind and remote endpoint for logs.
	String() string
}

// faceState is the lifecycle state of a registered face (spec §3.3: "A
// face whose underlying connection closes transitions to Closed").
type faceState int32

const (
	faceUp faceState = iota
	faceClosed
)

type entry struct {
	id        Id
	transport Transport
	state     atomic.Int32
}

func (e *entry) isClosed() bool {
	return faceState(e.state.Load()) == faceClosed
}

// logModule implements corelog.Module for this package's log lines.
type logModule string

func (m logModule) String() string { return string(m) }

const logFace logModule = "face"

// Registry owns every registered face: it is the sole strong reference
// holder (spec §3 "Face ... Owned by the face registry"). The forwarder
// and session transport resolve faces only by id through this registry,
// so a closed face surfaces as a subsequent lookup miss rather than a
// dangling pointer (spec §9).
type Registry struct {
	mu      sync.RWMutex
	faces   map[Id]*entry
	nextId  atomic.Uint32

	events       chan Event
	eventsDropped atomic.Uint64
}

// NewRegistry builds an empty Registry with the given bounded event
// channel capacity (spec §6 "event_buffer_size"; 0 selects a sane default).
func NewRegistry(eventBufferSize int) *Registry {
	if eventBufferSize <= 0 {
		eventBufferSize = 1024
	}
	return &Registry{
		faces:  make(map[Id]*entry),
		events: make(chan Event, eventBufferSize),
	}
}

// Register adds a new face backed by transport and returns its assigned
// id. Ids start at 1; 0 is reserved (never assigned) so callers can use it
// as a sentinel for "no face".
func (r *Registry) Register(transport Transport) Id {
	id := Id(r.nextId.Add(1))

	e := &entry{id: id, transport: transport}
	r.mu.Lock()
	r.faces[id] = e
	r.mu.Unlock()

	corelog.Info(logFace, "face registered", "id", id, "transport", transport.String())
	return id
}

// Send resolves id and writes packet out its transport. Returns
// ndnerr.ErrNotFound if id is unknown or already closed (spec §7: a send
// to a closed face is a local, surfaced condition, not a panic).
func (r *Registry) Send(id Id, packet []byte) error {
	r.mu.RLock()
	e, ok := r.faces[id]
	r.mu.RUnlock()
	if !ok || e.isClosed() {
		return ndnerr.ErrNotFound{Key: "face"}
	}
	if err := e.transport.Send(packet); err != nil {
		r.closeLocked(id, err)
		return ndnerr.ErrNetwork{Msg: "send failed", Err: err}
	}
	return nil
}

// Wire type bytes for Interest/Data, mirroring pkt.TypeInterest/TypeData
// (spec §4.1). Duplicated here rather than imported so the face package —
// which only ever peeks the outermost TLV type byte to classify an event,
// never decodes — does not need a dependency on the codec package.
const (
	wireTypeInterest byte = 0x05
	wireTypeData     byte = 0x06
)

// Deliver is called by a transport's receive loop for every inbound
// packet; it classifies raw by its outermost TLV type byte, forwards it
// onto the registry's event channel, and counts (without blocking on)
// drops under backpressure (spec §4.5: "Faces produce these into a
// bounded channel; drops under backpressure are allowed but counted").
func (r *Registry) Deliver(id Id, fallbackKind EventKind, raw []byte) {
	kind := fallbackKind
	if len(raw) > 0 {
		switch raw[0] {
		case wireTypeInterest:
			kind = EventInterestReceived
		case wireTypeData:
			kind = EventDataReceived
		}
	}
	select {
	case r.events <- Event{Kind: kind, FaceId: id, RawPacket: raw}:
	default:
		r.eventsDropped.Add(1)
		corelog.Warn(logFace, "event dropped under backpressure", "face_id", id)
	}
}

// Events returns the channel callers (the forwarder's dispatch loop, or a
// long-lived producer) read inbound events from.
func (r *Registry) Events() <-chan Event {
	return r.events
}

// EventsDropped reports the cumulative count of events discarded because
// the event channel was full.
func (r *Registry) EventsDropped() uint64 {
	return r.eventsDropped.Load()
}

// Close transitions id to Closed and closes its transport. Idempotent.
func (r *Registry) Close(id Id) {
	r.closeLocked(id, nil)
}

func (r *Registry) closeLocked(id Id, cause error) {
	r.mu.RLock()
	e, ok := r.faces[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if !e.state.CompareAndSwap(int32(faceUp), int32(faceClosed)) {
		return // already closed
	}
	_ = e.transport.Close()

	if cause != nil {
		r.Deliver(id, EventError, nil)
	}
	r.Deliver(id, EventClosed, nil)
}

// CloseAll closes every registered face (spec §4.4 "close() on the
// transport closes every face ... notifying every pending waiter").
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]Id, 0, len(r.faces))
	for id := range r.faces {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Close(id)
	}
}

// removeClosed purges any Closed entries from the map (spec §4.5: "removed
// from the registry on next event poll"). Callers typically invoke this
// periodically from the same goroutine that drains Events().
func (r *Registry) removeClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.faces {
		if e.isClosed() {
			delete(r.faces, id)
		}
	}
}

// Poll drains and discards any Closed entries, mirroring spec §4.5's "next
// event poll" removal point. Safe to call periodically from the consumer
// of Events().
func (r *Registry) Poll() {
	r.removeClosed()
}
