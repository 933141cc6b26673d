package tablecall

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kanban/internal/model"
	"kanban/internal/remote"
	"kanban/internal/remote/remotetest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	Store
	lookups atomic.Int32
}

func (c *countingStore) GetZone(ctx context.Context, id int64) (model.Zone, error) {
	c.lookups.Add(1)
	return c.Store.GetZone(ctx, id)
}

func newTestServer(t *testing.T, cfg Config) (*Server, *countingStore, *remotetest.Server) {
	t.Helper()
	backend := remotetest.NewServer()
	t.Cleanup(backend.Close)
	store := &countingStore{Store: remote.NewClient(backend.URL, "", 2*time.Second, zerolog.Nop())}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "https://board.example.com/"
	}
	return NewServer(store, cfg, zerolog.Nop()), store, backend
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestTableInfoUsesCachedZoneName(t *testing.T) {
	s, store, backend := newTestServer(t, Config{})
	id := backend.SeedZone(model.Zone{Name: "VIP", Capacity: 6, Branch: model.BranchMSK})
	h := s.Handler()
	target := "/table/%D0%9C%D0%A1%D0%9A/" + strconv.FormatInt(id, 10)

	for i := 0; i < 2; i++ {
		w := do(t, h, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, w.Code)

		var info tableInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, model.BranchMSK, info.Branch)
		assert.Equal(t, "Московское шоссе 43-47", info.Address)
		assert.Equal(t, "VIP", info.TableName)
		assert.Equal(t, PresetComments, info.PresetComments)
	}
	assert.Equal(t, int32(1), store.lookups.Load())
}

func TestTableInfoFallsBackToNumberedName(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	w := do(t, s.Handler(), http.MethodGet, "/table/%D0%9F%D0%BE%D0%BB%D0%B5%D0%B2%D0%B0%D1%8F/42", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info tableInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "Зона 42", info.TableName)
	assert.Equal(t, "Полевая 72", info.Address)
}

func TestTableInfoRejectsUnknownBranch(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/table/center/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/table/%D0%9C%D0%A1%D0%9A/abc", "").Code)
}

func TestCallForwardsToBackend(t *testing.T) {
	s, _, backend := newTestServer(t, Config{})

	w := do(t, s.Handler(), http.MethodPost, "/table/%D0%9C%D0%A1%D0%9A/7/call",
		`{"callType":"waiter","comment":"Проблема с PS5"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Сотрудник вызван")

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/table-calls", calls[0].Path)
	assert.Equal(t, map[string]any{
		"branch":   "МСК",
		"tableId":  float64(7),
		"callType": "waiter",
		"comment":  "Проблема с PS5",
	}, calls[0].Body)
}

func TestCallValidation(t *testing.T) {
	s, _, backend := newTestServer(t, Config{CallTypes: []remote.CallType{remote.CallWaiter}})
	h := s.Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/table/%D0%9C%D0%A1%D0%9A/7/call", `{"callType":"hookah"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/table/%D0%9C%D0%A1%D0%9A/7/call", `not json`).Code)
	assert.Empty(t, backend.Calls())
}

func TestCallBackendFailure(t *testing.T) {
	s, _, backend := newTestServer(t, Config{})
	backend.Fail("POST /api/table-calls", http.StatusInternalServerError)

	w := do(t, s.Handler(), http.MethodPost, "/table/%D0%9C%D0%A1%D0%9A/7/call", `{"callType":"hookah"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCallRateLimitPerIP(t *testing.T) {
	s, _, _ := newTestServer(t, Config{CallsPerMinute: 2})
	h := s.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodPost, "/table/%D0%9C%D0%A1%D0%9A/7/call", `{"callType":"waiter"}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	r := httptest.NewRequest(http.MethodPost, "/table/%D0%9C%D0%A1%D0%9A/7/call", strings.NewReader(`{"callType":"waiter"}`))
	r.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQRCode(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/qr/%D0%9C%D0%A1%D0%9A/5.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/qr/%D0%9C%D0%A1%D0%9A/5.jpg", "").Code)
	assert.Equal(t, "https://board.example.com/table/%D0%9C%D0%A1%D0%9A/5", s.TableURL(model.BranchMSK, 5))
}

func TestQRSheet(t *testing.T) {
	s, _, backend := newTestServer(t, Config{})
	for i := 1; i <= 13; i++ {
		backend.SeedZone(model.Zone{Name: "Зона " + strconv.Itoa(i), Capacity: 4, Branch: model.BranchMSK})
	}
	backend.SeedZone(model.Zone{Name: "Зона 1", Capacity: 4, Branch: model.BranchPolevaya})
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/qr/%D0%9C%D0%A1%D0%9A/sheet.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/qr/Center/sheet.pdf", "").Code)

	backend.Fail("GET /api/zones", http.StatusInternalServerError)
	assert.Equal(t, http.StatusBadGateway, do(t, h, http.MethodGet, "/qr/%D0%9C%D0%A1%D0%9A/sheet.pdf", "").Code)
}

func TestCardLabel(t *testing.T) {
	assert.Equal(t, "Zone 12", cardLabel(model.Zone{ID: 40, Name: "Зона 12"}))
	assert.Equal(t, "Table 40", cardLabel(model.Zone{ID: 40, Name: "VIP"}))
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := newTestServer(t, Config{AllowedOrigins: []string{"https://guest.example.com"}})

	r := httptest.NewRequest(http.MethodOptions, "/table/%D0%9C%D0%A1%D0%9A/7/call", nil)
	r.Header.Set("Origin", "https://guest.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	assert.Equal(t, "https://guest.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
