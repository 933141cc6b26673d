package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"kanban/internal/model"
)

// Keys in the backing store.
const (
	KeyBoardBranch      = "currentBranch"
	KeyAdminBranch      = "adminBranch"
	KeyBookingDraft     = "bookingForm"
	KeyAuthenticated    = "isAuthenticated"
	KeyTelegramChatID   = "telegramChatId"
	KeyTelegramThreadID = "telegramThreadId"
	KeyTimeOverride     = "appTimeOverride"
	KeyTestMode         = "hhTestMode"
)

// Draft is the last-entered add-booking form.
type Draft struct {
	Name      string `json:"name"`
	Time      string `json:"time"`
	TableID   int64  `json:"tableId"`
	Guests    int    `json:"guests"`
	Phone     string `json:"phone"`
	Comment   string `json:"comment"`
	HasVR     bool   `json:"hasVR"`
	HasShisha bool   `json:"hasShisha"`
}

// Cleared returns an empty draft that keeps the selected zone.
func (d Draft) Cleared() Draft {
	return Draft{TableID: d.TableID, Guests: 1}
}

// Defaults seeds values that are absent from the store.
type Defaults struct {
	Branch           model.Branch
	TelegramChatID   string
	TelegramThreadID string
}

// Context is the explicit session object handed to the board, the admin
// operations and the happy-hour reminder. Setters persist immediately.
type Context struct {
	store    Store
	defaults Defaults

	mu               sync.RWMutex
	boardBranch      model.Branch
	adminBranch      model.Branch
	draft            Draft
	authenticated    bool
	telegramChatID   string
	telegramThreadID string
	timeOverride     *time.Time
	testMode         bool
}

func NewContext(store Store, defaults Defaults) *Context {
	if !defaults.Branch.Valid() {
		defaults.Branch = model.BranchMSK
	}
	return &Context{
		store:            store,
		defaults:         defaults,
		boardBranch:      defaults.Branch,
		adminBranch:      defaults.Branch,
		draft:            Draft{TableID: 1, Guests: 1},
		telegramChatID:   defaults.TelegramChatID,
		telegramThreadID: defaults.TelegramThreadID,
	}
}

// Load reads every value from the store. Missing keys keep their defaults;
// unparsable values are ignored.
func (c *Context) Load(ctx context.Context) error {
	values := make(map[string]string)
	for _, key := range []string{
		KeyBoardBranch, KeyAdminBranch, KeyBookingDraft, KeyAuthenticated,
		KeyTelegramChatID, KeyTelegramThreadID, KeyTimeOverride, KeyTestMode,
	} {
		v, err := c.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
		values[key] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if b := model.Branch(values[KeyBoardBranch]); b.Valid() {
		c.boardBranch = b
	}
	if b := model.Branch(values[KeyAdminBranch]); b.Valid() {
		c.adminBranch = b
	}
	if raw, ok := values[KeyBookingDraft]; ok {
		var d Draft
		if err := json.Unmarshal([]byte(raw), &d); err == nil {
			if d.TableID == 0 {
				d.TableID = 1
			}
			if d.Guests <= 0 {
				d.Guests = 1
			}
			c.draft = d
		}
	}
	if v, ok := values[KeyAuthenticated]; ok {
		c.authenticated, _ = strconv.ParseBool(v)
	}
	if v, ok := values[KeyTelegramChatID]; ok && v != "" {
		c.telegramChatID = v
	}
	if v, ok := values[KeyTelegramThreadID]; ok && v != "" {
		c.telegramThreadID = v
	}
	if v, ok := values[KeyTimeOverride]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			c.timeOverride = &t
		}
	}
	if v, ok := values[KeyTestMode]; ok {
		c.testMode, _ = strconv.ParseBool(v)
	}
	return nil
}

// Save writes every value back to the store.
func (c *Context) Save(ctx context.Context) error {
	c.mu.RLock()
	draft, err := json.Marshal(c.draft)
	if err != nil {
		c.mu.RUnlock()
		return err
	}
	values := map[string]string{
		KeyBoardBranch:      string(c.boardBranch),
		KeyAdminBranch:      string(c.adminBranch),
		KeyBookingDraft:     string(draft),
		KeyAuthenticated:    strconv.FormatBool(c.authenticated),
		KeyTelegramChatID:   c.telegramChatID,
		KeyTelegramThreadID: c.telegramThreadID,
		KeyTestMode:         strconv.FormatBool(c.testMode),
	}
	override := c.timeOverride
	c.mu.RUnlock()

	for key, v := range values {
		if err := c.store.Set(ctx, key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	if override == nil {
		return c.store.Delete(ctx, KeyTimeOverride)
	}
	return c.store.Set(ctx, KeyTimeOverride, override.Format(time.RFC3339Nano))
}

func (c *Context) BoardBranch() model.Branch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boardBranch
}

func (c *Context) SetBoardBranch(ctx context.Context, b model.Branch) error {
	if !b.Valid() {
		return fmt.Errorf("unknown branch %q", b)
	}
	c.mu.Lock()
	c.boardBranch = b
	c.mu.Unlock()
	return c.store.Set(ctx, KeyBoardBranch, string(b))
}

func (c *Context) AdminBranch() model.Branch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adminBranch
}

func (c *Context) SetAdminBranch(ctx context.Context, b model.Branch) error {
	if !b.Valid() {
		return fmt.Errorf("unknown branch %q", b)
	}
	c.mu.Lock()
	c.adminBranch = b
	c.mu.Unlock()
	return c.store.Set(ctx, KeyAdminBranch, string(b))
}

func (c *Context) Draft() Draft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

func (c *Context) SetDraft(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.draft = d
	c.mu.Unlock()
	return c.store.Set(ctx, KeyBookingDraft, string(data))
}

func (c *Context) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Context) SetAuthenticated(ctx context.Context, v bool) error {
	c.mu.Lock()
	c.authenticated = v
	c.mu.Unlock()
	return c.store.Set(ctx, KeyAuthenticated, strconv.FormatBool(v))
}

// TelegramTarget returns the default chat and thread for admin messages.
func (c *Context) TelegramTarget() (chatID, threadID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.telegramChatID, c.telegramThreadID
}

func (c *Context) SetTelegramChatID(ctx context.Context, id string) error {
	c.mu.Lock()
	c.telegramChatID = id
	c.mu.Unlock()
	return c.store.Set(ctx, KeyTelegramChatID, id)
}

func (c *Context) SetTelegramThreadID(ctx context.Context, id string) error {
	c.mu.Lock()
	c.telegramThreadID = id
	c.mu.Unlock()
	return c.store.Set(ctx, KeyTelegramThreadID, id)
}

// TimeOverride implements clock.OverrideSource.
func (c *Context) TimeOverride() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.timeOverride == nil {
		return time.Time{}, false
	}
	return *c.timeOverride, true
}

func (c *Context) SetTimeOverride(ctx context.Context, t time.Time) error {
	c.mu.Lock()
	c.timeOverride = &t
	c.mu.Unlock()
	return c.store.Set(ctx, KeyTimeOverride, t.Format(time.RFC3339Nano))
}

// ResetTimeOverride returns the board to the real clock.
func (c *Context) ResetTimeOverride(ctx context.Context) error {
	c.mu.Lock()
	c.timeOverride = nil
	c.mu.Unlock()
	return c.store.Delete(ctx, KeyTimeOverride)
}

func (c *Context) TestMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.testMode
}

func (c *Context) SetTestMode(ctx context.Context, v bool) error {
	c.mu.Lock()
	c.testMode = v
	c.mu.Unlock()
	return c.store.Set(ctx, KeyTestMode, strconv.FormatBool(v))
}

// Marked reports whether a one-shot marker such as a daily dedup key is set.
func (c *Context) Marked(ctx context.Context, key string) (bool, error) {
	_, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark records a one-shot marker.
func (c *Context) Mark(ctx context.Context, key string) error {
	return c.store.Set(ctx, key, "1")
}

// Ping checks the backing store.
func (c *Context) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
