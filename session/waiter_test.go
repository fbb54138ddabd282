package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

func mustName(t *testing.T, s string) pkt.Name {
	t.Helper()
	n, err := pkt.NameFromStr(s)
	require.NoError(t, err)
	return n
}

func TestWaiterTableFulfilsAllSharingName(t *testing.T) {
	w := newWaiterTable()
	name := mustName(t, "/x/y")

	ch1 := w.register(name.String())
	ch2 := w.register(name.String())

	data := &pkt.Data{Name: name, Content: []byte("hello")}
	n := w.fulfil(data)
	require.Equal(t, 2, n)

	res1 := <-ch1
	res2 := <-ch2
	require.NoError(t, res1.err)
	require.NoError(t, res2.err)
	require.Equal(t, "hello", string(res1.data.Content))
	require.Equal(t, "hello", string(res2.data.Content))

	// Entry is now gone: a second Data for the same name fulfils nobody.
	require.Equal(t, 0, w.fulfil(data))
}

func TestWaiterTableCancelRemovesOnlyThatWaiter(t *testing.T) {
	w := newWaiterTable()
	name := mustName(t, "/a")

	ch1 := w.register(name.String())
	ch2 := w.register(name.String())
	w.cancel(name.String(), ch1)

	data := &pkt.Data{Name: name}
	require.Equal(t, 1, w.fulfil(data))
	res := <-ch2
	require.NoError(t, res.err)
}

func TestWaiterTableCloseAllNotifiesNetworkError(t *testing.T) {
	w := newWaiterTable()
	ch := w.register("/missing")

	w.closeAll(ndnerr.ErrNetwork{Msg: "closed"})

	res := <-ch
	require.Error(t, res.err)
	require.Equal(t, 0, w.fulfil(&pkt.Data{Name: mustName(t, "/missing")}))
}
