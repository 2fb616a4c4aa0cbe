package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
	"github.com/Jacobbrewer1/ticketdesk/pkg/request"
	"github.com/Jacobbrewer1/ticketdesk/pkg/verification"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// eventTimeout bounds the time spent handling a single discord event.
const eventTimeout = 30 * time.Second

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

type Controller func(w http.ResponseWriter, r *http.Request)

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func middlewareHttp(l *slog.Logger, handler Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := &statusWriter{ResponseWriter: w}

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				l.Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path
			}
		} else {
			path = r.URL.Path
		}

		defer func() {
			// The status code is only known once the handler has returned.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		// Recover from any panics that occur in the handler. This runs before the metrics are recorded.
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.Header().Set("Content-Type", "application/json")
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(http.StatusText(http.StatusInternalServerError))); err != nil {
					l.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		handler(cw, r)
	}
}

// recoverEvent stops a panic in a discord handler from taking down the session.
func (a *App) recoverEvent(event string) {
	if rec := recover(); rec != nil {
		a.Error("Panic handling event",
			slog.String("event", event),
			slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
			slog.String("stack", string(debug.Stack())),
		)
	}
}

// messageHandler routes guild messages to the verification gate and the text commands.
func (a *App) messageHandler() func(s *discordgo.Session, m *discordgo.MessageCreate) {
	cmds := make(map[string]*textCommand)
	for _, c := range a.commands() {
		cmds[c.name] = c
	}

	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		defer a.recoverEvent("message_create")

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		if a.gate.Pending(m.Author.ID) {
			outcome, err := a.gate.SubmitAnswer(ctx, &verification.Submission{
				GuildID:   m.GuildID,
				ChannelID: m.ChannelID,
				MessageID: m.ID,
				UserID:    m.Author.ID,
				Content:   m.Content,
			})
			if err != nil {
				a.Error("Error submitting verification answer",
					slog.String(logging.KeyGuild, m.GuildID),
					slog.String(logging.KeyUser, m.Author.ID),
					slog.String(logging.KeyError, err.Error()),
				)
			}
			if outcome != verification.OutcomeIgnored {
				monitoring.VerificationOutcomes.WithLabelValues(outcome.String()).Inc()
				return
			}
		}

		name, args, ok := parseCommand(a.cfg.CommandPrefix, m.Content)
		if !ok {
			return
		}

		cmd, ok := cmds[name]
		if !ok {
			return
		}

		a.runCommand(ctx, cmd, &commandRequest{
			m:    m,
			name: name,
			args: args,
		})
	}
}

func (a *App) runCommand(ctx context.Context, cmd *textCommand, c *commandRequest) {
	l := a.With(
		slog.String(logging.KeyCommand, cmd.name),
		slog.String(logging.KeyGuild, c.m.GuildID),
		slog.String(logging.KeyChannel, c.m.ChannelID),
		slog.String(logging.KeyUser, c.m.Author.ID),
		slog.String(logging.KeyEvent, uuid.NewString()),
	)

	start := time.Now()
	result := resultOK
	defer func() {
		monitoring.CommandDuration.WithLabelValues(cmd.name, result).Observe(time.Since(start).Seconds())
	}()

	reply := func(content string) {
		if _, err := a.s.ChannelMessageSendReply(c.m.ChannelID, content, c.m.Reference(), discordgo.WithContext(ctx)); err != nil {
			l.Error("Error replying to command", slog.String(logging.KeyError, err.Error()))
		}
	}

	if cmd.ownerOnly {
		ok, err := a.platform.IsOwnerOrAdmin(ctx, c.m.GuildID, c.m.Author.ID)
		if err != nil {
			result = resultError
			l.Error("Error checking command permissions", slog.String(logging.KeyError, err.Error()))
			reply(messages.ErrUserErrorProcessing)
			return
		} else if !ok {
			result = resultRejected
			reply(messages.ErrOwnerOnly)
			return
		}
	}

	if cmd.action != "" && !a.limiter.Check(c.m.Author.ID, cmd.action, cmd.cooldown) {
		result = resultRejected
		monitoring.RateLimited.WithLabelValues(cmd.action).Inc()
		reply(messages.ErrSlowDown)
		return
	}

	content, err := cmd.run(ctx, c)
	if err != nil {
		msg, expected := userMessage(err)
		if expected {
			result = resultRejected
			l.Debug("Command rejected", slog.String(logging.KeyError, err.Error()))
		} else {
			result = resultError
			l.Error("Error processing command", slog.String(logging.KeyError, err.Error()))
		}
		content = msg
	}

	if content != "" {
		reply(content)
	}
}

// componentProcessor handles a button press or a modal submission.
type componentProcessor func(ctx context.Context, i *discordgo.InteractionCreate, r *responder) error

// interactionHandler routes button presses and modal submissions by their custom ID.
func (a *App) interactionHandler(buttons, modals map[string]componentProcessor) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		defer a.recoverEvent("interaction_create")

		var (
			customID   string
			processors map[string]componentProcessor
		)
		switch i.Type {
		case discordgo.InteractionMessageComponent:
			customID = i.MessageComponentData().CustomID
			processors = buttons
		case discordgo.InteractionModalSubmit:
			customID = i.ModalSubmitData().CustomID
			processors = modals
		default:
			return
		}

		r := newResponder(s, i.Interaction)
		if i.Member == nil || i.Member.User == nil || i.GuildID == "" {
			if err := r.Ephemeral("This can only be used inside a server."); err != nil {
				a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			}
			return
		}

		l := a.With(
			slog.String(logging.KeyCommand, customID),
			slog.String(logging.KeyGuild, i.GuildID),
			slog.String(logging.KeyChannel, i.ChannelID),
			slog.String(logging.KeyUser, i.Member.User.ID),
			slog.String(logging.KeyEvent, uuid.NewString()),
		)

		processor, ok := processors[customID]
		if !ok {
			l.Error("No processor found for interaction")
			if err := r.Ephemeral(messages.ErrUserErrorProcessing); err != nil {
				l.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		start := time.Now()
		result := resultOK
		defer func() {
			monitoring.CommandDuration.WithLabelValues(customID, result).Observe(time.Since(start).Seconds())
		}()

		err := processor(ctx, i, r)
		if err == nil {
			return
		}

		msg, expected := userMessage(err)
		if expected {
			result = resultRejected
			l.Debug("Interaction rejected", slog.String(logging.KeyError, err.Error()))
		} else {
			result = resultError
			l.Error("Error processing interaction", slog.String(logging.KeyError, err.Error()))
		}

		if err := r.Ephemeral(msg); err != nil {
			l.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

// rateLimited replies to the interaction when the actor is on cooldown for the action.
func (a *App) rateLimited(i *discordgo.InteractionCreate, r *responder, action string, cooldown time.Duration) (bool, error) {
	if a.limiter.Check(i.Member.User.ID, action, cooldown) {
		return false, nil
	}
	monitoring.RateLimited.WithLabelValues(action).Inc()
	return true, r.Ephemeral(messages.ErrSlowDown)
}
