package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kanban/internal/board"
	"kanban/internal/model"
	"kanban/internal/remote"
	"kanban/internal/tasks"

	"github.com/julienschmidt/httprouter"
)

// Handler exposes the admin operations as a JSON API for the local admin
// panel. Every route except login requires a bearer token from login.
type Handler struct {
	svc    *Service
	tasks  *tasks.Service
	secret []byte
}

func NewHandler(svc *Service, taskSvc *tasks.Service, secret []byte) *Handler {
	return &Handler{svc: svc, tasks: taskSvc, secret: secret}
}

func (h *Handler) Routes() http.Handler {
	r := httprouter.New()
	r.POST("/admin/login", h.login)
	r.POST("/admin/logout", h.authenticate(h.logout))
	r.PUT("/admin/branch", h.authenticate(h.selectBranch))

	r.POST("/admin/zones", h.authenticate(h.addZone))
	r.PUT("/admin/zones/:id", h.authenticate(h.editZone))
	r.DELETE("/admin/zones/:id", h.authenticate(h.deleteZone))
	r.POST("/admin/zones/:id/notify-dirty", h.authenticate(h.notifyDirty))
	r.POST("/admin/bookings/clear", h.authenticate(h.clearBookings))

	r.GET("/admin/staff", h.authenticate(h.listStaff))
	r.POST("/admin/staff", h.authenticate(h.addStaff))
	r.PUT("/admin/staff/:id", h.authenticate(h.editStaff))
	r.DELETE("/admin/staff/:id", h.authenticate(h.deleteStaff))
	r.POST("/admin/staff/notify-shift", h.authenticate(h.notifyShift))

	r.PUT("/admin/telegram", h.authenticate(h.setTarget))
	r.POST("/admin/telegram/message", h.authenticate(h.sendMessage))

	r.GET("/admin/tasks", h.authenticate(h.listTasks))
	r.POST("/admin/tasks", h.authenticate(h.createTask))
	r.PUT("/admin/tasks/:id", h.authenticate(h.editTask))
	r.DELETE("/admin/tasks/:id", h.authenticate(h.deleteTask))

	r.PUT("/admin/time", h.authenticate(h.setTime))
	r.DELETE("/admin/time", h.authenticate(h.resetTime))
	r.PUT("/admin/test-mode", h.authenticate(h.setTestMode))

	r.GET("/admin/export.xlsx", h.authenticate(h.export))
	return r
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Login(r.Context(), req.Password); err != nil {
		respond(w, err, nil)
		return
	}
	token, err := h.issueToken()
	if err != nil {
		respond(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "expiresIn": int(tokenTTL.Seconds())})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	respond(w, h.svc.Logout(r.Context()), nil)
}

func (h *Handler) selectBranch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Branch model.Branch `json:"branch"`
	}
	if !decode(w, r, &req) {
		return
	}
	respond(w, h.svc.SelectBranch(r.Context(), req.Branch), nil)
}

type zoneRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func (h *Handler) addZone(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req zoneRequest
	if !decode(w, r, &req) {
		return
	}
	z, err := h.svc.AddZone(r.Context(), req.Name, req.Capacity)
	respond(w, err, z)
}

func (h *Handler) editZone(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := zoneID(w, ps)
	if !ok {
		return
	}
	var req zoneRequest
	if !decode(w, r, &req) {
		return
	}
	z, err := h.svc.EditZone(r.Context(), id, req.Name, req.Capacity)
	respond(w, err, z)
}

func (h *Handler) deleteZone(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := zoneID(w, ps)
	if !ok {
		return
	}
	respond(w, h.svc.DeleteZone(r.Context(), id), nil)
}

func (h *Handler) notifyDirty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := zoneID(w, ps)
	if !ok {
		return
	}
	respond(w, h.svc.NotifyDirtyZoneByID(r.Context(), id), nil)
}

func (h *Handler) clearBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n, err := h.svc.ClearBookings(r.Context())
	respond(w, err, map[string]int{"deleted": n})
}

type staffRequest struct {
	Name       string `json:"name"`
	TelegramID string `json:"telegramId"`
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.svc.ListStaff(r.Context())
	respond(w, err, list)
}

func (h *Handler) addStaff(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req staffRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.AddStaff(r.Context(), req.Name, req.TelegramID)
	respond(w, err, s)
}

func (h *Handler) editStaff(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req staffRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.EditStaff(r.Context(), ps.ByName("id"), req.Name, req.TelegramID)
	respond(w, err, s)
}

func (h *Handler) deleteStaff(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	respond(w, h.svc.DeleteStaff(r.Context(), ps.ByName("id")), nil)
}

// notifyShift messages every roster member with a Telegram id, or only the
// ids listed in the body.
func (h *Handler) notifyShift(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		StaffIDs []string `json:"staffIds"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	list, err := h.svc.ListStaff(r.Context())
	if err != nil {
		respond(w, err, nil)
		return
	}
	if len(req.StaffIDs) > 0 {
		wanted := make(map[string]bool, len(req.StaffIDs))
		for _, id := range req.StaffIDs {
			wanted[id] = true
		}
		selected := list[:0]
		for _, s := range list {
			if wanted[s.ID] {
				selected = append(selected, s)
			}
		}
		list = selected
	}
	n, err := h.svc.NotifyStaffOnShift(r.Context(), list)
	respond(w, err, map[string]int{"recipients": n})
}

func (h *Handler) setTarget(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		ChatID   string `json:"chatId"`
		ThreadID string `json:"threadId"`
	}
	if !decode(w, r, &req) {
		return
	}
	respond(w, h.svc.SetTelegramTarget(r.Context(), req.ChatID, req.ThreadID), nil)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	respond(w, h.svc.SendMessage(r.Context(), req.Message), nil)
}

type taskRequest struct {
	Title       string       `json:"title"`
	Message     string       `json:"message"`
	Time        string       `json:"time"`
	Branch      model.Branch `json:"branch"`
	IsRecurring bool         `json:"isRecurring"`
}

func (t taskRequest) input() tasks.Input {
	return tasks.Input{Title: t.Title, Message: t.Message, Time: t.Time, Branch: t.Branch, Recurring: t.IsRecurring}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.svc.requireLogin(); err != nil {
		respond(w, err, nil)
		return
	}
	list, err := h.tasks.List(r.Context())
	respond(w, err, list)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.svc.requireLogin(); err != nil {
		respond(w, err, nil)
		return
	}
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.tasks.Create(r.Context(), req.input())
	respond(w, err, t)
}

func (h *Handler) editTask(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.requireLogin(); err != nil {
		respond(w, err, nil)
		return
	}
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	current, err := h.tasks.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		respond(w, err, nil)
		return
	}
	t, err := h.tasks.Edit(r.Context(), current, req.input())
	respond(w, err, t)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.requireLogin(); err != nil {
		respond(w, err, nil)
		return
	}
	respond(w, h.tasks.Delete(r.Context(), ps.ByName("id")), nil)
}

func (h *Handler) setTime(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Value string `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	at, err := h.svc.SetTimeOverride(r.Context(), req.Value)
	respond(w, err, map[string]string{"override": at.Format("2006-01-02T15:04")})
}

func (h *Handler) resetTime(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	respond(w, h.svc.ResetTimeOverride(r.Context()), nil)
}

func (h *Handler) setTestMode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	respond(w, h.svc.SetReminderTestMode(r.Context(), req.Enabled), nil)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.svc.requireLogin(); err != nil {
		respond(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="board.xlsx"`)
	if err := h.svc.Export(w); err != nil {
		h.svc.logger.Error().Err(err).Msg("export failed")
	}
}

func zoneID(w http.ResponseWriter, ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid zone id"})
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// respond maps service errors to statuses and writes body on success.
func respond(w http.ResponseWriter, err error, body any) {
	if err == nil {
		if body == nil {
			body = map[string]bool{"success": true}
		}
		writeJSON(w, http.StatusOK, body)
		return
	}
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	var se *remote.StatusError
	switch {
	case IsAccessDenied(err):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput), errors.Is(err, tasks.ErrInvalidInput),
		errors.Is(err, board.ErrInvalidInput), errors.Is(err, ErrNoChat), errors.Is(err, ErrNoRecipients):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownZone), errors.Is(err, tasks.ErrNotFound), errors.Is(err, board.ErrUnknownZone):
		return http.StatusNotFound
	case errors.As(err, &se), errors.Is(err, remote.ErrTransport), errors.Is(err, remote.ErrMalformed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
