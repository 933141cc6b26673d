package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "board_refresh_total",
			Help:      "Count of full board refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "board_mutation_total",
			Help:      "Count of board mutations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	rollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "board_rollback_total",
			Help:      "Count of optimistic moves rolled back after a failed write.",
		},
	)

	reminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "happy_hour_reminder_total",
			Help:      "Count of happy-hour reminders by outcome.",
		},
		[]string{"outcome"},
	)

	tableCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "table_call_total",
			Help:      "Count of guest table calls by type and outcome.",
		},
		[]string{"call_type", "outcome"},
	)

	telegramSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "telegram_send_total",
			Help:      "Count of Telegram sends by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(refreshes, mutations, rollbacks, reminders, tableCalls, telegramSends)
	})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveRefresh(err error) {
	refreshes.WithLabelValues(outcome(err)).Inc()
}

func ObserveMutation(kind string, err error) {
	mutations.WithLabelValues(kind, outcome(err)).Inc()
}

func IncRollback() {
	rollbacks.Inc()
}

func IncReminder(result string) {
	reminders.WithLabelValues(result).Inc()
}

func ObserveTableCall(callType string, err error) {
	tableCalls.WithLabelValues(callType, outcome(err)).Inc()
}

func ObserveTelegramSend(err error) {
	telegramSends.WithLabelValues(outcome(err)).Inc()
}
