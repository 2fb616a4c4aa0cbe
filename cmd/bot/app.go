package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess/connection"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/ratelimit"
	"github.com/Jacobbrewer1/ticketdesk/pkg/request"
	"github.com/Jacobbrewer1/ticketdesk/pkg/roles"
	"github.com/Jacobbrewer1/ticketdesk/pkg/tickets"
	"github.com/Jacobbrewer1/ticketdesk/pkg/verification"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// PathRoot is the path for the root liveness check.
	PathRoot = "/"

	// PathHealth is the path for the liveness check.
	PathHealth = "/health"

	// PathReadiness is the path for the readiness check.
	PathReadiness = "/readiness"

	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"
)

// startupTimeout bounds connecting to the databases and running migrations.
const startupTimeout = time.Minute

type App struct {
	// is the logger.
	*slog.Logger

	// cfg is the configuration of the bot.
	cfg *config.Config

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// pool is the Postgres connection pool.
	pool *pgxpool.Pool

	// mongo is the transcript archive client. Nil when archiving is disabled.
	mongo *mongo.Client

	store     *dataaccess.Store
	platform  *discordPlatform
	directory *roles.Directory
	lifecycle *tickets.Lifecycle
	gate      *verification.Gate

	// limiter, locks and closeConfirmations hold process state that is lost on restart.
	limiter            *ratelimit.Limiter
	locks              *tickets.LockFlags
	closeConfirmations *closeConfirmations
}

// NewApp creates a new instance of App.
func NewApp(
	l *slog.Logger,
	cfg *config.Config,
	r *mux.Router,
	limiter *ratelimit.Limiter,
	locks *tickets.LockFlags,
	confirmations *closeConfirmations,
) *App {
	return &App{
		Logger:             l,
		cfg:                cfg,
		r:                  r,
		limiter:            limiter,
		locks:              locks,
		closeConfirmations: confirmations,
	}
}

func newLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

func (a *App) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := a.connectDatabases(ctx); err != nil {
		return err
	}

	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	if err := a.setupServices(ctx); err != nil {
		return fmt.Errorf("error setting up services: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s", r.User.Username))
	})

	a.RegisterDiscordHandlers()

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	sig := <-c
	a.Info("Received shutdown signal", slog.String("signal", sig.String()))
	if err := a.ShutdownHook(); err != nil {
		return fmt.Errorf("error shutting down application: %w", err)
	}
	return nil
}

func (a *App) connectDatabases(ctx context.Context) error {
	pg := &connection.Postgres{URL: a.cfg.DatabaseURL}
	pool, err := pg.Connect(ctx)
	if err != nil {
		return fmt.Errorf("error connecting to postgres: %w", err)
	}
	a.pool = pool
	a.Debug("Connected to Postgres")

	if err := dataaccess.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	a.store = dataaccess.NewStore(a.Logger, pool)

	if !a.cfg.ArchiveEnabled() {
		a.Info("No MongoDB URI provided, transcripts will not be archived", slog.String("key", config.EnvMongoUri))
		return nil
	}

	m := &connection.MongoDB{URI: a.cfg.MongoUri}
	client, err := m.Connect(ctx)
	if err != nil {
		return fmt.Errorf("error connecting to mongo: %w", err)
	}
	a.mongo = client
	a.Debug("Connected to MongoDB", slog.String("database", a.cfg.MongoDatabase))
	return nil
}

// setupServices builds the ticket lifecycle, verification gate and role directory on top of the
// store and the discord session.
func (a *App) setupServices(ctx context.Context) error {
	bot, err := a.s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error getting bot user: %w", err)
	}

	a.platform = newDiscordPlatform(a.Logger, a.s)
	a.directory = roles.NewDirectory(a.Logger, a.store, a.platform, a.cfg.RoleNames)

	opts := []tickets.Option{
		tickets.WithBotID(bot.ID),
		tickets.WithLockFlags(a.locks),
	}
	if a.mongo != nil {
		opts = append(opts, tickets.WithArchive(dataaccess.NewTranscriptDal(a.Logger, a.mongo, a.cfg.MongoDatabase)))
	}

	a.lifecycle = tickets.NewLifecycle(a.Logger, a.store, a.platform, a.directory, opts...)
	a.gate = verification.NewGate(a.Logger, a.store, a.platform, a.directory)
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	a.closeConfirmations.stopAll()
	a.limiter.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if a.svr != nil {
		if err := a.svr.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down monitoring server: %w", err))
		}
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing connection to Discord: %w", err))
	}

	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("error disconnecting from mongo: %w", err))
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server", slog.String("addr", a.svr.Addr))
		if err := a.svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// The liveness checks do not depend on the databases or discord.
	a.r.HandleFunc(PathRoot, middlewareHttp(a.Logger, Controller(request.OkHandler(a.Logger)))).Methods(http.MethodGet)
	a.r.HandleFunc(PathHealth, middlewareHttp(a.Logger, Controller(request.OkHandler(a.Logger)))).Methods(http.MethodGet)

	a.r.HandleFunc(PathReadiness, middlewareHttp(a.Logger, a.healthCheck())).Methods(http.MethodGet)

	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:              ":" + a.cfg.MonitoringPort,
		Handler:           a.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) RegisterDiscordHandlers() {
	// Bot joined guild.
	a.s.AddHandler(a.guildJoinedHandler())

	// Bot left guild.
	a.s.AddHandler(a.guildLeaveHandler())

	// Roles changed in a guild.
	a.s.AddHandler(a.roleCreatedHandler())
	a.s.AddHandler(a.roleUpdatedHandler())
	a.s.AddHandler(a.roleDeletedHandler())

	// Member joined a guild the bot is in.
	a.s.AddHandler(a.memberJoinHandler())

	// Text commands and verification answers.
	a.s.AddHandler(a.messageHandler())

	buttons := map[string]componentProcessor{
		ClaimTicketButtonID:  a.claimButtonHandler,
		CloseTicketButtonID:  a.closeButtonHandler,
		CloseConfirmButtonID: a.closeConfirmHandler,
		CloseCancelButtonID:  a.closeCancelHandler,
		VerifyButtonID:       a.verifyButtonHandler,
	}
	modals := make(map[string]componentProcessor)
	for _, k := range ticketKinds {
		buttons[k.buttonID] = a.openButtonHandler(k)
		modals[k.buttonID+modalSuffix] = a.openModalHandler(k)
	}

	// Buttons and modals.
	a.s.AddHandler(a.interactionHandler(buttons, modals))
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				monitoring.TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				monitoring.TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}
