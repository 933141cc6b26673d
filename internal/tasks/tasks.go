// Package tasks manages scheduled Telegram message records. Sending is done
// by the backend; this package only computes schedules and keeps records.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"kanban/internal/clock"
	"kanban/internal/metrics"
	"kanban/internal/model"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidInput = errors.New("invalid task")
	ErrNotFound     = errors.New("task not found")
)

// Store is the remote task collection.
type Store interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, id string, t model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Input is the admin task form.
type Input struct {
	Title     string
	Message   string
	Time      string // HH:MM
	Branch    model.Branch
	Recurring bool
}

type Service struct {
	store  Store
	clock  clock.Clock
	logger zerolog.Logger
}

func NewService(store Store, clk clock.Clock, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		store:  store,
		clock:  clk,
		logger: logger.With().Str("component", "tasks").Logger(),
	}
}

// NextOccurrence returns tod on now's date, or on the next day when that
// instant is not strictly after now.
func NextOccurrence(tod model.TimeOfDay, now time.Time) time.Time {
	at := tod.On(now)
	if !at.After(now) {
		at = tod.On(now.AddDate(0, 0, 1))
	}
	return at
}

// ScheduleFor converts a form time into a schedule relative to now.
func ScheduleFor(in Input, now time.Time) (model.Schedule, error) {
	tod, err := model.ParseTimeOfDay(in.Time)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Recurring {
		return model.Recurring(tod), nil
	}
	return model.OneShot(NextOccurrence(tod, now)), nil
}

func validate(in Input) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case strings.TrimSpace(in.Message) == "":
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	case !in.Branch.Valid():
		return fmt.Errorf("%w: unknown branch %q", ErrInvalidInput, in.Branch)
	}
	return nil
}

// List returns tasks with recurring ones first by time of day, then
// one-shot tasks by ascending instant.
func (s *Service) List(ctx context.Context) ([]model.Task, error) {
	list, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	Sort(list)
	return list, nil
}

// Get returns one task from the list.
func (s *Service) Get(ctx context.Context, id string) (model.Task, error) {
	list, err := s.store.ListTasks(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Sort orders tasks in place the way List returns them.
func Sort(list []model.Task) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Schedule, list[j].Schedule
		if a.IsRecurring() != b.IsRecurring() {
			return a.IsRecurring()
		}
		if a.IsRecurring() {
			da, _ := a.Daily()
			db, _ := b.Daily()
			return da.Before(db)
		}
		ta, _ := a.At()
		tb, _ := b.At()
		return ta.Before(tb)
	})
}

func (s *Service) Create(ctx context.Context, in Input) (model.Task, error) {
	if err := validate(in); err != nil {
		return model.Task{}, err
	}
	now := s.clock.Now()
	sched, err := ScheduleFor(in, now)
	if err != nil {
		return model.Task{}, err
	}

	created, err := s.store.CreateTask(ctx, model.Task{
		Title:     strings.TrimSpace(in.Title),
		Message:   in.Message,
		Schedule:  sched,
		Branch:    in.Branch,
		CreatedAt: now,
	})
	metrics.ObserveMutation("task_create", err)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info().Str("task_id", created.ID).Str("scheduled", sched.Wire()).Msg("task created")
	return created, nil
}

// Edit replaces the task's fields and schedule. A one-shot task is re-armed;
// a recurring task keeps its last sent date.
func (s *Service) Edit(ctx context.Context, current model.Task, in Input) (model.Task, error) {
	if err := validate(in); err != nil {
		return model.Task{}, err
	}
	sched, err := ScheduleFor(in, s.clock.Now())
	if err != nil {
		return model.Task{}, err
	}

	next := current
	next.Title = strings.TrimSpace(in.Title)
	next.Message = in.Message
	next.Branch = in.Branch
	next.Schedule = sched
	next.IsSent = false
	if !sched.IsRecurring() {
		next.LastSentDate = ""
	}

	updated, err := s.store.UpdateTask(ctx, current.ID, next)
	metrics.ObserveMutation("task_edit", err)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task %s: %w", current.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteTask(ctx, id)
	metrics.ObserveMutation("task_delete", err)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}
