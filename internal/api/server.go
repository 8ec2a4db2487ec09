package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/bootstrap"
	"YakNS/internal/logger"
	"YakNS/internal/namehash"
	"YakNS/internal/registry"
	"YakNS/internal/resolver"
)

const (
	// defaultEventLimit is the page size of GET /events.
	defaultEventLimit = 100

	// maxEventLimit caps the page size a client may request.
	maxEventLimit = 1000
)

// errPageFull stops journal iteration once a page is filled.
var errPageFull = errors.New("page full")

// SnapshotFunc produces a compressed snapshot of the store.
type SnapshotFunc func() ([]byte, error)

// Server is the read-only HTTP API over a bootstrapped naming system.
type Server struct {
	addr     string            // addr is the HTTP listen address
	sys      *bootstrap.System // sys is the naming system being served
	snapshot SnapshotFunc      // snapshot is optional; nil disables GET /snapshot
	server   *http.Server      // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, sys *bootstrap.System, snapshot SnapshotFunc) *Server {
	s := &Server{
		addr:     addr,
		sys:      sys,
		snapshot: snapshot,
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /names/{name}", s.handleName)
	mux.HandleFunc("GET /names/{name}/records/{kind}", s.handleRecord)
	mux.HandleFunc("GET /reverse/{addr}", s.handleReverse)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	return mux
}

// ListenAndServe serves until Stop is called. A clean stop returns nil.
func (s *Server) ListenAndServe() error {
	logger.Info("http api started", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http api %s:\n%w", s.addr, err)
	}

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// NodeResponse is the body of GET /names/{name}.
type NodeResponse struct {
	Name     string `json:"name"`
	Node     string `json:"node"`
	Exists   bool   `json:"exists"`
	Owner    string `json:"owner"`
	Resolver string `json:"resolver"`
	TTL      uint64 `json:"ttl"`
}

// RecordResponse is the body of GET /names/{name}/records/{kind}.
type RecordResponse struct {
	Name  string `json:"name"`
	Node  string `json:"node"`
	Kind  string `json:"kind"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// ReverseResponse is the body of GET /reverse/{addr}.
type ReverseResponse struct {
	Addr string `json:"addr"`
	Node string `json:"node"`
	Name string `json:"name"`
}

// EventResponse is one entry of GET /events.
type EventResponse struct {
	Seq   uint64 `json:"seq"`
	Kind  string `json:"kind"`
	Node  string `json:"node"`
	Label string `json:"label,omitempty"`
	Addr  string `json:"addr,omitempty"`
	TTL   uint64 `json:"ttl,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	TLD              string `json:"tld"`
	Authority        string `json:"authority"`
	Bootstrap        string `json:"bootstrap"`
	Complete         bool   `json:"complete"`
	Registry         string `json:"registry"`
	Resolver         string `json:"resolver"`
	Registrar        string `json:"registrar"`
	ReverseRegistrar string `json:"reverseRegistrar"`
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	step, err := s.sys.Progress()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}

	a := s.sys.Addresses
	writeJSON(w, http.StatusOK, StatusResponse{
		TLD:              s.sys.TLD,
		Authority:        s.sys.Authority.Hex(),
		Bootstrap:        step.String(),
		Complete:         step.Complete(),
		Registry:         a.Registry.Hex(),
		Resolver:         a.Resolver.Hex(),
		Registrar:        a.Registrar.Hex(),
		ReverseRegistrar: a.ReverseRegistrar.Hex(),
	})
}

// handleName handles GET /names/{name} requests.
func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	node := namehash.Namehash(name)

	rec := s.sys.Registry.Record(node)

	writeJSON(w, http.StatusOK, NodeResponse{
		Name:     name,
		Node:     node.Hex(),
		Exists:   s.sys.Registry.RecordExists(node),
		Owner:    rec.Owner.Hex(),
		Resolver: rec.Resolver.Hex(),
		TTL:      rec.TTL,
	})
}

// handleRecord handles GET /names/{name}/records/{kind}; text records take ?key=.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	node := namehash.Namehash(name)

	kind, err := resolver.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := r.URL.Query().Get("key")
	if kind == resolver.KindText && key == "" {
		writeError(w, http.StatusBadRequest, "text records need ?key=")
		return
	}

	res, err := s.sys.Directory.For(s.sys.Registry, node)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	value, ok := readRecord(res, node, kind, key)
	if !ok {
		writeError(w, http.StatusNotFound, resolver.ErrRecordNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{
		Name:  name,
		Node:  node.Hex(),
		Kind:  kind.String(),
		Key:   key,
		Value: value,
	})
}

// handleReverse handles GET /reverse/{addr} requests.
func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("addr")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	addr := common.HexToAddress(raw)

	name, err := s.sys.ReverseName(addr)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReverseResponse{
		Addr: addr.Hex(),
		Node: namehash.ReverseNode(addr).Hex(),
		Name: name,
	})
}

// handleEvents handles GET /events?from=&limit= requests.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	from, err := parseUint(r.URL.Query().Get("from"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}

	limit, err := parseUint(r.URL.Query().Get("limit"), defaultEventLimit)
	if err != nil || limit == 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxEventLimit)

	events := make([]EventResponse, 0)

	err = s.sys.Registry.Events(from, func(ev registry.Event) error {
		events = append(events, toEventResponse(ev))
		if uint64(len(events)) >= limit {
			return errPageFull
		}
		return nil
	})
	if err != nil && !errors.Is(err, errPageFull) {
		writeError(w, http.StatusInternalServerError, "journal unavailable")
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshots disabled")
		return
	}

	data, err := s.snapshot()
	if err != nil {
		logger.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// readRecord formats a record for JSON: addresses checksummed, bytes as 0x-hex.
func readRecord(res *resolver.Resolver, node common.Hash, kind resolver.Kind, key string) (string, bool) {
	switch kind {
	case resolver.KindAddr:
		addr, ok := res.Addr(node)
		return addr.Hex(), ok
	case resolver.KindName:
		return res.Name(node)
	case resolver.KindText:
		return res.Text(node, key)
	default:
		data, ok := res.Record(node, kind)
		return "0x" + hex.EncodeToString(data), ok
	}
}

// toEventResponse converts a journal entry.
func toEventResponse(ev registry.Event) EventResponse {
	out := EventResponse{
		Seq:  ev.Seq,
		Kind: ev.Kind.String(),
		Node: ev.Node.Hex(),
	}

	switch ev.Kind {
	case registry.EventNewOwner:
		out.Label = ev.Label.Hex()
		out.Addr = ev.Addr.Hex()
	case registry.EventTransfer, registry.EventNewResolver,
		registry.EventAddrChanged, registry.EventNameChanged, registry.EventContentHashChanged:
		out.Addr = ev.Addr.Hex()
	case registry.EventTextChanged:
		out.Label = ev.Label.Hex()
		out.Addr = ev.Addr.Hex()
	case registry.EventNewTTL:
		out.TTL = ev.TTL
	}

	return out
}

// parseUint parses a query value, returning def when empty.
func parseUint(raw string, def uint64) (uint64, error) {
	if raw == "" {
		return def, nil
	}

	return strconv.ParseUint(raw, 10, 64)
}

// writeLookupError maps resolution failures to HTTP statuses.
func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resolver.ErrNoResolver),
		errors.Is(err, resolver.ErrUnknownResolver),
		errors.Is(err, resolver.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
