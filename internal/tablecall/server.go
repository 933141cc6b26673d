// Package tablecall serves the guest page API reached from the QR code on a
// table: table info, "call staff" requests and the QR images themselves.
package tablecall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/remote"

	"github.com/julienschmidt/httprouter"
	"github.com/patrickmn/go-cache"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

// Preset reasons offered with a waiter call.
var PresetComments = []string{"Проблема с PS5", "Выключается телевизор"}

var successMessages = map[remote.CallType]string{
	remote.CallWaiter:     "✅ Сотрудник вызван! Скоро подойдёт.",
	remote.CallHookah:     "✅ Кальянный мастер вызван! Скоро подойдёт.",
	remote.CallGameMaster: "✅ Игровед вызван! Скоро подойдёт.",
}

// Store is the part of the backend the guest page talks to.
type Store interface {
	ListZones(ctx context.Context) ([]model.Zone, error)
	GetZone(ctx context.Context, id int64) (model.Zone, error)
	CreateTableCall(ctx context.Context, call remote.TableCall) error
}

type Config struct {
	PublicURL      string
	AllowedOrigins []string
	CallsPerMinute int
	NameCacheTTL   time.Duration
	CallTypes      []remote.CallType
}

type Server struct {
	store    Store
	cfg      Config
	names    *cache.Cache
	visitors *visitors
	logger   zerolog.Logger
}

func NewServer(store Store, cfg Config, logger zerolog.Logger) *Server {
	if cfg.NameCacheTTL <= 0 {
		cfg.NameCacheTTL = 10 * time.Minute
	}
	if len(cfg.CallTypes) == 0 {
		cfg.CallTypes = []remote.CallType{remote.CallWaiter, remote.CallHookah, remote.CallGameMaster}
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Server{
		store:    store,
		cfg:      cfg,
		names:    cache.New(cfg.NameCacheTTL, 2*cfg.NameCacheTTL),
		visitors: newVisitors(cfg.CallsPerMinute),
		logger:   logger.With().Str("component", "tablecall").Logger(),
	}
}

// Handler returns the routed API wrapped in CORS for the guest page origin.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/table/:branch/:id", s.tableInfo)
	router.POST("/table/:branch/:id/call", s.visitors.limit(s.call))
	router.GET("/qr/:branch/:file", s.qr)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

type tableInfo struct {
	Branch         model.Branch      `json:"branch"`
	Address        string            `json:"address"`
	TableID        int64             `json:"tableId"`
	TableName      string            `json:"tableName"`
	CallTypes      []remote.CallType `json:"callTypes"`
	PresetComments []string          `json:"presetComments"`
}

type callRequest struct {
	CallType remote.CallType `json:"callType"`
	Comment  string          `json:"comment"`
}

func parseTable(ps httprouter.Params) (model.Branch, int64, error) {
	branch := model.Branch(ps.ByName("branch"))
	if !branch.Valid() {
		return "", 0, fmt.Errorf("unknown branch %q", branch)
	}
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid table id %q", ps.ByName("id"))
	}
	return branch, id, nil
}

// tableName looks the zone name up through the cache. A lookup failure
// falls back to "Зона {id}" and is not cached.
func (s *Server) tableName(ctx context.Context, id int64) string {
	key := strconv.FormatInt(id, 10)
	if name, ok := s.names.Get(key); ok {
		return name.(string)
	}
	zone, err := s.store.GetZone(ctx, id)
	if err != nil || strings.TrimSpace(zone.Name) == "" {
		s.logger.Warn().Err(err).Int64("zone_id", id).Msg("zone name lookup failed")
		return fmt.Sprintf("Зона %d", id)
	}
	s.names.SetDefault(key, zone.Name)
	return zone.Name
}

func (s *Server) tableInfo(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, id, err := parseTable(ps)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tableInfo{
		Branch:         branch,
		Address:        branch.Address(),
		TableID:        id,
		TableName:      s.tableName(r.Context(), id),
		CallTypes:      s.cfg.CallTypes,
		PresetComments: PresetComments,
	})
}

func (s *Server) allowed(t remote.CallType) bool {
	for _, known := range s.cfg.CallTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (s *Server) call(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, id, err := parseTable(ps)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var req callRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.allowed(req.CallType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown call type %q", req.CallType))
		return
	}

	err = s.store.CreateTableCall(r.Context(), remote.TableCall{
		Branch:   branch,
		TableID:  id,
		CallType: req.CallType,
		Comment:  strings.TrimSpace(req.Comment),
	})
	metrics.ObserveTableCall(string(req.CallType), err)
	if err != nil {
		s.logger.Error().Err(err).Str("branch", string(branch)).Int64("zone_id", id).Msg("table call failed")
		writeError(w, http.StatusBadGateway, "Не удалось отправить вызов")
		return
	}

	s.logger.Info().Str("branch", string(branch)).Int64("zone_id", id).Str("call_type", string(req.CallType)).Msg("table call sent")
	msg, ok := successMessages[req.CallType]
	if !ok {
		msg = "✅ Вызов отправлен!"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// TableURL is the guest page address encoded into a table's QR code.
func (s *Server) TableURL(branch model.Branch, id int64) string {
	return fmt.Sprintf("%s/table/%s/%d", s.cfg.PublicURL, url.PathEscape(string(branch)), id)
}

// qr serves "<id>.png" for one table and "sheet.pdf" for the whole branch.
func (s *Server) qr(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	file := ps.ByName("file")
	if file == "sheet.pdf" {
		s.sheet(w, r, model.Branch(ps.ByName("branch")))
		return
	}
	if !strings.HasSuffix(file, ".png") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	ps = append(ps, httprouter.Param{Key: "id", Value: strings.TrimSuffix(file, ".png")})
	branch, id, err := parseTable(ps)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	png, err := qrcode.Encode(s.TableURL(branch, id), qrcode.Medium, 256)
	if err != nil {
		s.logger.Error().Err(err).Msg("qr encode failed")
		writeError(w, http.StatusInternalServerError, "qr encode failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(png)
}

func (s *Server) sheet(w http.ResponseWriter, r *http.Request, branch model.Branch) {
	if !branch.Valid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown branch %q", branch))
		return
	}
	var buf bytes.Buffer
	if err := s.WriteSheet(r.Context(), &buf, branch); err != nil {
		s.logger.Error().Err(err).Str("branch", string(branch)).Msg("qr sheet failed")
		writeError(w, http.StatusBadGateway, "qr sheet failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="qr-sheet.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
