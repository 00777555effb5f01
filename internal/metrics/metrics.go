package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	logger *zap.Logger

	// Счетчики
	commands      *prometheus.CounterVec
	urlsShortened *prometheus.CounterVec
	creditsSpent  prometheus.Counter
	referrals     prometheus.Counter
	broadcasts    *prometheus.CounterVec

	// Gauge метрики
	activeSessions prometheus.Gauge

	// Гистограммы
	shortenerDuration *prometheus.HistogramVec
}

// New создает новый экземпляр метрик
func New(logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger: logger,

		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_commands_total",
				Help: "Общее количество обработанных команд",
			},
			[]string{"command"},
		),

		urlsShortened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "urls_shortened_total",
				Help: "Общее количество сокращенных ссылок",
			},
			[]string{"kind"}, // plain, emoji
		),

		creditsSpent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "credits_spent_total",
				Help: "Общее количество потраченных кредитов",
			},
		),

		referrals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "referrals_total",
				Help: "Общее количество успешных реферальных атрибуций",
			},
		),

		broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcast_messages_total",
				Help: "Количество сообщений рассылки по статусам",
			},
			[]string{"status"}, // sent, failed
		),

		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_sessions",
				Help: "Количество активных диалоговых сессий",
			},
		),

		shortenerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shortener_request_seconds",
				Help:    "Длительность запросов к API сокращения ссылок",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"}, // shorten, emoji, stats
		),
	}

	// Регистрируем все метрики
	prometheus.MustRegister(
		m.commands,
		m.urlsShortened,
		m.creditsSpent,
		m.referrals,
		m.broadcasts,
		m.activeSessions,
		m.shortenerDuration,
	)

	return m
}

// RecordCommand записывает обработанную команду
func (m *Metrics) RecordCommand(command string) {
	m.commands.WithLabelValues(command).Inc()
}

// RecordShortened записывает успешное сокращение ссылки
func (m *Metrics) RecordShortened(kind string, cost int) {
	m.urlsShortened.WithLabelValues(kind).Inc()
	m.creditsSpent.Add(float64(cost))
}

// RecordReferral записывает успешную реферальную атрибуцию
func (m *Metrics) RecordReferral() {
	m.referrals.Inc()
}

// RecordBroadcast записывает результат отправки одного сообщения рассылки
func (m *Metrics) RecordBroadcast(status string) {
	m.broadcasts.WithLabelValues(status).Inc()
}

// SetActiveSessions обновляет количество активных сессий
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// ObserveShortenerDuration записывает длительность запроса к API сокращения
func (m *Metrics) ObserveShortenerDuration(op string, seconds float64) {
	m.shortenerDuration.WithLabelValues(op).Observe(seconds)
}
