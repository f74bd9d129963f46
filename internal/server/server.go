package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/blob"
	"InternHub-backend/internal/capacity"
	"InternHub-backend/internal/catalog"
	"InternHub-backend/internal/certificate"
	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/intake"
	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/render"
	"InternHub-backend/internal/review"
	"InternHub-backend/internal/scheduler"
	"InternHub-backend/internal/tasks"
)

// MyServer holds the database, the lifecycle services and the background
// workers that the HTTP routes are bound to.
type MyServer struct {
	Config *config.Config
	DB     *database.DBinstanceStruct
	Log    logrus.FieldLogger

	Auth         *auth.Provider
	Blob         *blob.Store
	Catalog      *catalog.Catalog
	Ledger       *capacity.Ledger
	Intake       *intake.Service
	Review       *review.Service
	Tasks        *tasks.Service
	Certificates *certificate.Service
	Dispatcher   *notify.Dispatcher
	Scheduler    *scheduler.Scheduler

	objects *blob.CloudStorageClient
	cancel  context.CancelFunc
}

// New wires every component on top of an open database.
func New(ctx context.Context, cfg *config.Config, db *database.DBinstanceStruct, log logrus.FieldLogger) (*MyServer, error) {
	s := &MyServer{Config: cfg, DB: db, Log: log}

	var objects blob.ObjectStorage
	if cfg.GCSBucket != "" {
		client, err := blob.NewCloudStorageClient(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		s.objects = client
		objects = client
		log.WithField("bucket", cfg.GCSBucket).Info("storing files in cloud storage")
	} else {
		log.Warn("GCS_BUCKET not set, storing files in the database")
	}
	s.Blob = blob.NewStore(db.DB, objects, cfg.PublicBaseURL, log.WithField("component", "blob"))

	var deliverers []notify.Deliverer
	if cfg.SendgridAPIKey != "" {
		deliverers = append(deliverers, notify.NewEmailDeliverer(cfg.SendgridAPIKey, cfg.EmailSender, cfg.EmailSenderName))
	}
	if cfg.WhatsAppAPIURL != "" {
		deliverers = append(deliverers, notify.NewWhatsAppDeliverer(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIKey))
	}
	s.Dispatcher = notify.NewDispatcher(notify.GormStore{DB: db.DB}, deliverers, notify.Options{
		Workers:       cfg.NotifyWorkers,
		QueueSize:     cfg.NotifyQueueSize,
		RatePerSecond: cfg.NotifyRatePerSec,
		MaxTries:      cfg.DeliveryMaxTries,
	}, log.WithField("component", "notify"))

	var renderer render.Renderer = render.LinkRenderer{PublicBaseURL: cfg.PublicBaseURL}
	if cfg.RenderURL != "" {
		renderer = render.NewHTTPRenderer(cfg.RenderURL, cfg.RenderAPIKey, cfg.RenderTimeout, cfg.DeliveryMaxTries, log.WithField("component", "render"))
	}

	s.Auth = auth.NewProvider(cfg.SecretKey, cfg.JwtIssuer, cfg.AccessTokenTTL)
	s.Catalog = catalog.NewCatalog(db.DB, log.WithField("component", "catalog"))
	s.Ledger = capacity.NewLedger(db.DB, log.WithField("component", "capacity"))
	s.Intake = intake.NewService(db.DB, s.Catalog, s.Ledger, s.Blob, cfg.AllowedDurations, log.WithField("component", "intake"))
	s.Review = review.NewService(db.DB, s.Ledger, s.Dispatcher, log.WithField("component", "review"))
	s.Tasks = tasks.NewService(db.DB, s.Dispatcher, s.Blob, log.WithField("component", "tasks"))
	s.Certificates = certificate.NewService(db.DB, renderer, s.Dispatcher, cfg.CertificatePrefix, log.WithField("component", "certificate"))

	sched, err := scheduler.New(cfg.OverdueReminderCron, s.Tasks, s.Dispatcher, log.WithField("component", "scheduler"))
	if err != nil {
		return nil, err
	}
	s.Scheduler = sched
	return s, nil
}

// Start launches the background workers.
func (s *MyServer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.Dispatcher.Start(ctx)
	s.Scheduler.Start()
}

// HTTPServer returns the http.Server serving the API.
func (s *MyServer) HTTPServer() (*http.Server, error) {
	handler, err := s.RegisterRoutes()
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Config.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Shutdown stops the scheduler, drains queued deliveries and releases clients.
func (s *MyServer) Shutdown(ctx context.Context) {
	s.Scheduler.Stop(ctx)

	drained := make(chan struct{})
	go func() {
		s.Dispatcher.Stop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.Log.Warn("notification queue not drained before shutdown deadline")
	}
	if s.cancel != nil {
		s.cancel()
	}

	if s.objects != nil {
		if err := s.objects.Close(); err != nil {
			s.Log.WithError(err).Warn("failed to close cloud storage client")
		}
	}
}
