package mgmt

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

// decoder is shared process-wide, as gorilla/schema recommends (it caches
// struct reflection internally); IgnoreUnknownKeys matches the teacher's
// own tolerance for forward-compatible extra query parameters.
var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// fibAddArgs is the query-parameter shape for POST /fib/add, decoded with
// gorilla/schema the same way fw/mgmt/helpers.go's decodeControlParameters
// turns wire-carried control arguments into a typed struct — here the
// wire is an HTTP query string instead of an NDN Interest name component.
type fibAddArgs struct {
	Prefix string `schema:"prefix,required"`
	FaceId uint16 `schema:"face_id,required"`
	Cost   uint8  `schema:"cost"`
}

type fibRemoveArgs struct {
	Prefix string `schema:"prefix,required"`
}

type fibLookupArgs struct {
	Name string `schema:"name,required"`
}

type pitArgs struct {
	Name  string `schema:"name,required"`
	Nonce uint32 `schema:"nonce,required"`
}

// Handler is the local-only HTTP management surface (spec §6, expanded
// scope): a thin verb-dispatch layer over API, mirroring fw/mgmt/cs.go's
// "decode control args, call the table, write a status struct" shape.
// Intended to be bound to a loopback-only listen address by the caller;
// this handler performs no authentication of its own, matching the
// teacher's own reliance on the /localhost prefix being unreachable from
// off-box for its NDN-native management Interests.
type Handler struct {
	api *API
}

// NewHandler builds an HTTP handler over api.
func NewHandler(api *API) *Handler {
	return &Handler{api: api}
}

// Register attaches this handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/fib/add", h.fibAdd)
	mux.HandleFunc("/fib/remove", h.fibRemove)
	mux.HandleFunc("/fib/lookup", h.fibLookup)
	mux.HandleFunc("/cs/stats", h.csStats)
	mux.HandleFunc("/pit/get", h.pitGet)
	mux.HandleFunc("/pit/remove", h.pitRemove)
	mux.HandleFunc("/metrics", h.metrics)
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.api.MetricsSnapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) fibAdd(w http.ResponseWriter, r *http.Request) {
	var args fibAddArgs
	if err := decoder.Decode(&args, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad control parameters")
		return
	}
	prefix, err := pkt.NameFromStr(args.Prefix)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prefix")
		return
	}
	if err := h.api.FibAdd(prefix, args.FaceId, args.Cost); err != nil {
		corelog.Warn(logMgmt, "fib.add failed", "prefix", args.Prefix, "err", err)
		writeError(w, http.StatusInsufficientStorage, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fibRemove(w http.ResponseWriter, r *http.Request) {
	var args fibRemoveArgs
	if err := decoder.Decode(&args, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad control parameters")
		return
	}
	prefix, err := pkt.NameFromStr(args.Prefix)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prefix")
		return
	}
	h.api.FibRemove(prefix)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fibLookup(w http.ResponseWriter, r *http.Request) {
	var args fibLookupArgs
	if err := decoder.Decode(&args, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad control parameters")
		return
	}
	name, err := pkt.NameFromStr(args.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}
	entry, err := h.api.FibLookup(name)
	if _, ok := err.(ndnerr.ErrNotFound); ok {
		writeError(w, http.StatusNotFound, "no route")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) csStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.api.CsStats())
}

func (h *Handler) pitGet(w http.ResponseWriter, r *http.Request) {
	var args pitArgs
	if err := decoder.Decode(&args, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad control parameters")
		return
	}
	name, err := pkt.NameFromStr(args.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}
	rec, err := h.api.PitGet(name, args.Nonce, h.api.Clk.NowMs())
	if _, ok := err.(ndnerr.ErrNotFound); ok {
		writeError(w, http.StatusNotFound, "no pending interest")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) pitRemove(w http.ResponseWriter, r *http.Request) {
	var args pitArgs
	if err := decoder.Decode(&args, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad control parameters")
		return
	}
	name, err := pkt.NameFromStr(args.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}
	h.api.PitRemove(name, args.Nonce)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
