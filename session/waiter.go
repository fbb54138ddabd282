package session

import (
	"sync"

	"github.com/ndnswitch/core/pkt"
)

// waiterResult is what a pending express_interest call eventually receives:
// either a matching Data or a terminal error (NetworkError on transport
// close; Timeout is handled by the caller's own select, not pushed here).
type waiterResult struct {
	data *pkt.Data
	err  error
}

// waiterTable correlates outbound Interests to inbound Data by textual
// name (spec §4.4: "An outbound Interest creates a one-shot waiter keyed
// by the Interest's textual name ... Multiple concurrent Interests for the
// same name share a single key; the first matching Data fulfils all of
// them"). Each concurrent caller gets its own channel so express_interest
// can block independently, but all channels under a name are fulfilled and
// removed together by the first matching Data.
type waiterTable struct {
	mu   sync.Mutex
	byName map[string][]chan waiterResult
}

func newWaiterTable() *waiterTable {
	return &waiterTable{byName: make(map[string][]chan waiterResult)}
}

// register adds a new one-shot waiter for name and returns its channel.
func (w *waiterTable) register(name string) chan waiterResult {
	ch := make(chan waiterResult, 1)
	w.mu.Lock()
	w.byName[name] = append(w.byName[name], ch)
	w.mu.Unlock()
	return ch
}

// cancel removes ch from name's waiter list without fulfilling it, e.g. on
// timeout or caller-side cancellation (spec §5: "cancellation removes the
// waiter immediately"). A no-op if ch was already fulfilled and removed.
func (w *waiterTable) cancel(name string, ch chan waiterResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	lst := w.byName[name]
	for i, c := range lst {
		if c == ch {
			lst = append(lst[:i], lst[i+1:]...)
			break
		}
	}
	if len(lst) == 0 {
		delete(w.byName, name)
	} else {
		w.byName[name] = lst
	}
}

// fulfil delivers data to every waiter registered under data's name, then
// removes the entry (spec §4.4: "the first matching Data fulfils all of
// them" and "the waiter entry is removed"). Returns how many waiters were
// fulfilled, so the caller can tell whether the Data was expected at all.
func (w *waiterTable) fulfil(data *pkt.Data) int {
	key := data.Name.String()
	w.mu.Lock()
	lst := w.byName[key]
	delete(w.byName, key)
	w.mu.Unlock()

	for _, ch := range lst {
		ch <- waiterResult{data: data}
	}
	return len(lst)
}

// closeAll fulfils every outstanding waiter with err (spec §4.4: "close()
// ... notifying every pending waiter with NetworkError(\"closed\")") and
// empties the table.
func (w *waiterTable) closeAll(err error) {
	w.mu.Lock()
	all := w.byName
	w.byName = make(map[string][]chan waiterResult)
	w.mu.Unlock()

	for _, lst := range all {
		for _, ch := range lst {
			ch <- waiterResult{err: err}
		}
	}
}
