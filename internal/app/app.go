package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"babytrack-go/internal/archive"
	"babytrack-go/internal/config"
	"babytrack-go/internal/db"
	"babytrack-go/internal/domain/access"
	activitydomain "babytrack-go/internal/domain/activity"
	babydomain "babytrack-go/internal/domain/baby"
	exportdomain "babytrack-go/internal/domain/export"
	invitationdomain "babytrack-go/internal/domain/invitation"
	recordsdomain "babytrack-go/internal/domain/records"
	statsdomain "babytrack-go/internal/domain/stats"
	userdomain "babytrack-go/internal/domain/user"
	"babytrack-go/internal/notify"
	"babytrack-go/internal/realtime"
	"babytrack-go/internal/repository/inmemory"
	accessrepo "babytrack-go/internal/repository/postgres/access"
	activityrepo "babytrack-go/internal/repository/postgres/activity"
	babyrepo "babytrack-go/internal/repository/postgres/baby"
	invitationrepo "babytrack-go/internal/repository/postgres/invitation"
	recordsrepo "babytrack-go/internal/repository/postgres/records"
	userrepo "babytrack-go/internal/repository/postgres/user"
	"babytrack-go/internal/session"
	"babytrack-go/internal/transport/httpserver"
	"babytrack-go/internal/transport/httpserver/handler"
	babieshandler "babytrack-go/internal/transport/httpserver/handler/babies"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	insightshandler "babytrack-go/internal/transport/httpserver/handler/insights"
	invitationshandler "babytrack-go/internal/transport/httpserver/handler/invitations"
	recordshandler "babytrack-go/internal/transport/httpserver/handler/records"
	sessionhandler "babytrack-go/internal/transport/httpserver/handler/session"
	"babytrack-go/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg        config.Config
	log        logger.Logger
	httpServer *http.Server
	db         *gorm.DB
	hub        *realtime.Hub
	source     realtime.Source
	sessions   *session.Manager
}

// Services is the domain layer shared by the HTTP app and the operator CLIs.
type Services struct {
	Resolver    *access.Resolver
	Users       *userdomain.Service
	Babies      *babydomain.Service
	Invitations *invitationdomain.Service
	Records     *recordsdomain.Services
	Activity    *activitydomain.Service
	Stats       *statsdomain.Service
	Export      *exportdomain.Service
}

func New(ctx context.Context, log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	log.Info("app: initializing database")
	dbConn, err := db.NewPostgres(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(dbConn, log); err != nil {
		closeDB(dbConn)
		return nil, err
	}

	log.Info("app: initializing services")
	services, err := NewServices(ctx, cfg, dbConn, log)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}

	hub := realtime.NewHub(log, cfg.Realtime.BufferSize)
	source := newRealtimeSource(cfg, log)

	var prefs session.PreferenceStore
	if cfg.Session.StorePath != "" {
		prefs = session.NewFileStore(cfg.Session.StorePath)
	}
	sessions := session.NewManager(services.Babies, services.Resolver, hub, prefs, log)

	log.Info("app: initializing router")
	router := NewRouter(cfg, services, sessions, log)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: srv,
		db:         dbConn,
		hub:        hub,
		source:     source,
		sessions:   sessions,
	}, nil
}

// NewServices builds repositories and domain services on top of dbConn.
// Optional integrations (SES, S3) are attached only when configured.
func NewServices(ctx context.Context, cfg config.Config, dbConn *gorm.DB, log logger.Logger) (*Services, error) {
	var roleCache access.Cache
	if cfg.Access.RoleCacheTTL > 0 {
		roleCache = inmemory.NewRoleCache()
	}
	resolver := access.NewResolver(accessrepo.NewPostgres(dbConn), roleCache, cfg.Access.RoleCacheTTL)

	invitationOpts := invitationdomain.Options{BaseURL: cfg.AppBaseURL, TTL: cfg.Invitations.TTL}
	mailer, err := notify.NewSES(ctx, cfg.Email, log)
	if err != nil {
		return nil, err
	}
	if mailer != nil {
		invitationOpts.Notifier = mailer
	} else {
		log.Warn("app: SES_FROM_EMAIL not set, invitation links must be shared manually")
	}

	records := &recordsdomain.Services{
		Feedings: recordsdomain.NewService[recordsdomain.Feeding](recordsrepo.NewPostgres[recordsdomain.Feeding](dbConn), resolver),
		Sleeps:   recordsdomain.NewService[recordsdomain.Sleep](recordsrepo.NewPostgres[recordsdomain.Sleep](dbConn), resolver),
		Diapers:  recordsdomain.NewService[recordsdomain.Diaper](recordsrepo.NewPostgres[recordsdomain.Diaper](dbConn), resolver),
		Health:   recordsdomain.NewService[recordsdomain.Health](recordsrepo.NewPostgres[recordsdomain.Health](dbConn), resolver),
	}

	var archiver exportdomain.Archiver
	store, err := archive.NewS3(ctx, cfg.Export, log)
	if err != nil {
		return nil, err
	}
	if store != nil {
		archiver = store
	}

	return &Services{
		Resolver:    resolver,
		Users:       userdomain.NewService(userrepo.NewPostgres(dbConn)),
		Babies:      babydomain.NewService(babyrepo.NewPostgres(dbConn), resolver),
		Invitations: invitationdomain.NewService(invitationrepo.NewPostgres(dbConn), resolver, invitationOpts),
		Records:     records,
		Activity:    activitydomain.NewService(activityrepo.NewPostgres(dbConn), resolver),
		Stats:       statsdomain.NewService(records),
		Export:      exportdomain.NewService(records, resolver, archiver),
	}, nil
}

// NewRouter mounts every HTTP handler on top of services.
func NewRouter(cfg config.Config, services *Services, sessions *session.Manager, log logger.Logger) http.Handler {
	handlers := &handler.Handlers{
		Common:      commonhandler.New(log),
		Babies:      babieshandler.New(services.Babies, sessions, log),
		Invitations: invitationshandler.New(services.Invitations, sessions, cfg.AppBaseURL, log),
		Feedings:    recordshandler.New(services.Records.Feedings, log),
		Sleeps:      recordshandler.New(services.Records.Sleeps, log),
		Diapers:     recordshandler.New(services.Records.Diapers, log),
		Health:      recordshandler.New(services.Records.Health, log),
		Insights:    insightshandler.New(services.Activity, services.Stats, services.Export, log),
		Session:     sessionhandler.New(sessions, log),
	}
	return httpserver.NewRouter(cfg, handlers, services.Users, log)
}

func newRealtimeSource(cfg config.Config, log logger.Logger) realtime.Source {
	switch cfg.Realtime.Source {
	case config.RealtimeSourceKafka:
		return realtime.NewKafkaSource(cfg.Realtime, log)
	case config.RealtimeSourceNone:
		log.Warn("app: realtime disabled, clients will not receive change notifications")
		return nil
	default:
		return realtime.NewPGListener(cfg.DB.GetDSN(), cfg.Realtime.Channel, log)
	}
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

// Run serves HTTP and pumps realtime changes until ctx is cancelled or either
// fails, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.source != nil {
		g.Go(func() error {
			return a.hub.Run(gctx, a.source)
		})
	}

	g.Go(func() error {
		a.log.Info("http: listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("app: shutting down")

		// Ending sessions first closes open change streams so Shutdown does
		// not wait on them.
		a.sessions.Close()
		a.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
