package integration_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/hospital-payments/api"
	"github.com/metinatakli/hospital-payments/internal/app"
	"github.com/metinatakli/hospital-payments/internal/billing"
	"github.com/metinatakli/hospital-payments/internal/events"
	"github.com/metinatakli/hospital-payments/internal/locker"
	"github.com/metinatakli/hospital-payments/internal/mailer"
	"github.com/metinatakli/hospital-payments/internal/payment"
	"github.com/metinatakli/hospital-payments/internal/report"
	"github.com/metinatakli/hospital-payments/internal/repository"
	appvalidator "github.com/metinatakli/hospital-payments/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Mailer      *mailer.MockMailer
	Gateway     *payment.SimulatedGateway
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()
	mailer := mailer.NewMockMailer()

	openapi, err := api.LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	userRepo := repository.NewPostgresUserRepository(db)
	doctorRepo := repository.NewPostgresDoctorRepository(db)
	appointmentRepo := repository.NewPostgresAppointmentRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	receiptRepo := repository.NewPostgresReceiptRepository(db)

	gateway := payment.NewSimulatedGateway(cfg.PublicBaseURL)
	publisher := events.NopPublisher{}

	paymentService := billing.NewPaymentService(
		app.NewPaymentConfig(cfg),
		logger,
		paymentRepo,
		appointmentRepo,
		userRepo,
		doctorRepo,
		gateway,
		locker.NewRedisLocker(redisClient),
		billing.NewAppointmentSynchronizer(appointmentRepo, logger),
		publisher,
	)

	receiptIssuer := billing.NewReceiptIssuer(
		logger,
		receiptRepo,
		paymentRepo,
		appointmentRepo,
		userRepo,
		doctorRepo,
		publisher,
	)

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		mailer,
		sessionManager,
		openapi,
		userRepo,
		paymentService,
		receiptIssuer,
		report.NewReceiptRenderer(cfg.Billing.IssuerName),
	)

	return &TestApp{
		App:         application,
		DB:          db,
		RedisClient: redisClient,
		Mailer:      mailer,
		Gateway:     gateway,
	}, nil
}
