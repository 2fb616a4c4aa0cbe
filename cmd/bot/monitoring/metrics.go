package monitoring

import (
	"fmt"

	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalDiscordEvents is the total number of events.
	TotalDiscordEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_total_discord_events", config.AppName),
			Help: "Total number of events",
		},
		[]string{"event"},
	)

	// HttpTotalRequests is the total number of http requests.
	HttpTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_http_total_requests", config.AppName),
			Help: "Total number of http requests",
		},
		[]string{"path", "method", "status_code"},
	)

	// HttpRequestDuration is the duration of the http request.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: fmt.Sprintf("%s_http_request_duration", config.AppName),
			Help: "Duration of the http request",
		},
		[]string{"path", "method", "status_code"},
	)

	// TotalDiscordGuilds is the number of guilds the bot is in.
	TotalDiscordGuilds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_total_discord_guilds", config.AppName),
			Help: "Total number of discord guilds",
		},
	)

	// CommandDuration is how long commands, buttons and modals take to handle.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: fmt.Sprintf("%s_command_duration", config.AppName),
			Help: "Duration of command handling",
		},
		[]string{"command", "result"},
	)

	// TicketTransitions counts ticket state changes.
	TicketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_ticket_transitions_total", config.AppName),
			Help: "Total number of ticket transitions",
		},
		[]string{"transition", "type"},
	)

	// VerificationOutcomes counts verification answers by outcome.
	VerificationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_verification_outcomes_total", config.AppName),
			Help: "Total number of verification answers by outcome",
		},
		[]string{"outcome"},
	)

	// RateLimited counts requests rejected by the cooldowns.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_rate_limited_total", config.AppName),
			Help: "Total number of requests rejected by a cooldown",
		},
		[]string{"action"},
	)
)
