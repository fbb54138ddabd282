package face

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent   [][]byte
	closed bool
	sendErr error
}

func (f *fakeTransport) Send(packet []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, packet)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) String() string { return "fake" }

func TestRegisterAndSend(t *testing.T) {
	r := NewRegistry(8)
	tr := &fakeTransport{}
	id := r.Register(tr)

	require.NoError(t, r.Send(id, []byte("hello")))
	require.Len(t, tr.sent, 1)
	assert.Equal(t, "hello", string(tr.sent[0]))
}

func TestSendToUnknownFaceIsNotFound(t *testing.T) {
	r := NewRegistry(8)
	err := r.Send(999, []byte("x"))
	assert.Error(t, err)
}

func TestSendFailureClosesFaceAndEmitsErrorThenClosed(t *testing.T) {
	r := NewRegistry(8)
	tr := &fakeTransport{sendErr: errors.New("boom")}
	id := r.Register(tr)

	err := r.Send(id, []byte("x"))
	assert.Error(t, err)
	assert.True(t, tr.closed)

	evErr := <-r.Events()
	assert.Equal(t, EventError, evErr.Kind)
	evClosed := <-r.Events()
	assert.Equal(t, EventClosed, evClosed.Kind)

	// Further sends observe the face as gone.
	assert.Error(t, r.Send(id, []byte("y")))
}

func TestDeliverClassifiesByOuterTlvType(t *testing.T) {
	r := NewRegistry(8)
	tr := &fakeTransport{}
	id := r.Register(tr)

	r.Deliver(id, EventInterestReceived, []byte{wireTypeData, 0x00})
	ev := <-r.Events()
	assert.Equal(t, EventDataReceived, ev.Kind)
}

func TestDeliverDropsUnderBackpressureAndCounts(t *testing.T) {
	r := NewRegistry(1)
	tr := &fakeTransport{}
	id := r.Register(tr)

	r.Deliver(id, EventInterestReceived, []byte{wireTypeInterest})
	r.Deliver(id, EventInterestReceived, []byte{wireTypeInterest}) // channel full, dropped

	assert.Equal(t, uint64(1), r.EventsDropped())
}

func TestCloseAllClosesEveryFace(t *testing.T) {
	r := NewRegistry(8)
	t1 := &fakeTransport{}
	t2 := &fakeTransport{}
	r.Register(t1)
	r.Register(t2)

	r.CloseAll()
	assert.True(t, t1.closed)
	assert.True(t, t2.closed)
}

func TestPollRemovesClosedFaces(t *testing.T) {
	r := NewRegistry(8)
	tr := &fakeTransport{}
	id := r.Register(tr)
	r.Close(id)
	r.Poll()

	err := r.Send(id, []byte("x"))
	assert.Error(t, err, "closed+polled face must be gone from the registry")
}
