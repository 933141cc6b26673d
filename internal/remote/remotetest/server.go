// Package remotetest provides an in-memory backend for exercising the remote
// client and the components built on it.
package remotetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"kanban/internal/model"
)

// Call is a recorded request to one of the notification endpoints.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server is a fake zones/bookings/staff/tasks backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int64
	zones    map[int64]map[string]any
	bookings map[string]map[string]any
	staff    map[string]map[string]any
	tasks    map[string]map[string]any
	failures map[string]int
	calls    []Call

	// StringIDs makes the server send tableId and zone ids as strings.
	StringIDs bool
	// DropCleanFlag removes isNotCleaned from zone update responses.
	DropCleanFlag bool
	// CascadeOnServer deletes bookings of a zone when the zone is deleted.
	CascadeOnServer bool
}

func NewServer() *Server {
	s := &Server{
		nextID:   1,
		zones:    make(map[int64]map[string]any),
		bookings: make(map[string]map[string]any),
		staff:    make(map[string]map[string]any),
		tasks:    make(map[string]map[string]any),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/zones", s.listZones)
	mux.HandleFunc("POST /api/zones", s.createZone)
	mux.HandleFunc("GET /api/zones/{id}", s.getZone)
	mux.HandleFunc("PUT /api/zones/{id}", s.updateZone)
	mux.HandleFunc("DELETE /api/zones/{id}", s.deleteZone)
	for _, coll := range []string{"bookings", "staff", "tasks"} {
		mux.HandleFunc("GET /api/"+coll, s.listColl(coll))
		mux.HandleFunc("POST /api/"+coll, s.createColl(coll))
		mux.HandleFunc("PUT /api/"+coll+"/{id}", s.updateColl(coll))
		mux.HandleFunc("DELETE /api/"+coll+"/{id}", s.deleteColl(coll))
	}
	for _, p := range []string{
		"/api/table-calls",
		"/api/telegram/notify-dirty-zone",
		"/api/telegram/notify-staff-on-shift",
		"/api/telegram/send-message",
	} {
		mux.HandleFunc("POST "+p, s.record)
	}

	s.Server = httptest.NewServer(s.failing(mux))
	return s
}

// Fail makes requests matching "METHOD /path" answer with code until cleared
// with code 0.
func (s *Server) Fail(route string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = code
}

func (s *Server) failing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		code, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeJSON(w, code, map[string]string{"error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns recorded notification requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// SeedZone stores a zone directly and returns its id.
func (s *Server) SeedZone(z model.Zone) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z.ID == 0 {
		z.ID = s.newID()
	}
	s.zones[z.ID] = toMap(z)
	return z.ID
}

// SeedBooking stores a booking directly and returns its id.
func (s *Server) SeedBooking(b model.Booking) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = "b" + strconv.FormatInt(s.newID(), 10)
	}
	s.bookings[b.ID] = toMap(b)
	return b.ID
}

// Zones returns the stored zones.
func (s *Server) Zones() []model.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Zone, 0, len(s.zones))
	for _, m := range s.zones {
		z, _ := model.DecodeZone(encode(m))
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Bookings returns the stored bookings.
func (s *Server) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, m := range s.bookings {
		b, _ := model.DecodeBooking(encode(m))
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) newID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) present(m map[string]any) map[string]any {
	if !s.StringIDs {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range []string{"tableId", "id"} {
		if f, ok := out[k].(float64); ok {
			out[k] = strconv.FormatInt(int64(f), 10)
		}
	}
	return out
}

func (s *Server) listZones(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.zones))
	for id := range s.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.present(s.zones[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "zone not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.present(z))
}

func (s *Server) createZone(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	body["id"] = float64(id)
	s.zones[id] = body
	writeJSON(w, http.StatusCreated, s.present(body))
}

func (s *Server) updateZone(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	z, found := s.zones[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "zone not found"})
		return
	}
	for k, v := range body {
		if k != "id" {
			z[k] = v
		}
	}
	out := s.present(z)
	if s.DropCleanFlag {
		out = copyWithout(out, "isNotCleaned")
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteZone(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "zone not found"})
		return
	}
	delete(s.zones, id)
	if s.CascadeOnServer {
		for bid, b := range s.bookings {
			if f, ok := b["tableId"].(float64); ok && int64(f) == id {
				delete(s.bookings, bid)
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) collection(name string) map[string]map[string]any {
	switch name {
	case "bookings":
		return s.bookings
	case "staff":
		return s.staff
	default:
		return s.tasks
	}
}

func (s *Server) listColl(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collection(name)
		ids := make([]string, 0, len(coll))
		for id := range coll {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			out = append(out, s.present(coll[id]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) createColl(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := fmt.Sprintf("%c%d", name[0], s.newID())
		body["id"] = id
		if name == "tasks" {
			body["createdAt"] = "2024-03-05T07:00:00.000Z"
			body["isSent"] = false
		}
		s.collection(name)[id] = body
		writeJSON(w, http.StatusCreated, s.present(body))
	}
}

func (s *Server) updateColl(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		item, found := s.collection(name)[id]
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		for k, v := range body {
			if k != "id" {
				item[k] = v
			}
		}
		writeJSON(w, http.StatusOK, s.present(item))
	}
}

func (s *Server) deleteColl(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collection(name)
		if _, ok := coll[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		delete(coll, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: body})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func readBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	body := map[string]any{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return nil, false
		}
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toMap(v any) map[string]any {
	m := map[string]any{}
	_ = json.Unmarshal(encode(v), &m)
	return m
}

func encode(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}

func copyWithout(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
