package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/metinatakli/hospital-payments/api"
	"github.com/metinatakli/hospital-payments/internal/billing"
	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/metinatakli/hospital-payments/internal/events"
	"github.com/metinatakli/hospital-payments/internal/locker"
	"github.com/metinatakli/hospital-payments/internal/mailer"
	"github.com/metinatakli/hospital-payments/internal/payment"
	"github.com/metinatakli/hospital-payments/internal/report"
	"github.com/metinatakli/hospital-payments/internal/repository"
	appvalidator "github.com/metinatakli/hospital-payments/internal/validator"
	"github.com/metinatakli/hospital-payments/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const serviceName = "hospital-payments-api"

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager
	openapi        *openapi3.T

	userRepo domain.UserRepository

	payments paymentService
	receipts receiptService
	renderer receiptRenderer
}

type Config struct {
	Port             int
	Env              string
	PublicBaseURL    string
	OtelCollectorUrl string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	Gateway          GatewayConfig
	Billing          BillingConfig
	AMQP             AMQPConfig
	CORS             CORSConfig
	Limiter          LimiterConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey  string
	SuccessUrl string
	CancelUrl  string
}

type GatewayConfig struct {
	// Simulated forces the simulated gateway even when a Stripe key is present.
	Simulated bool
	// Fallback routes new charges to the simulated gateway while Stripe is unreachable.
	Fallback bool
	Timeout  time.Duration
}

type BillingConfig struct {
	Currency      string
	PaymentMethod string
	LockWait      time.Duration
	IssuerName    string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type CORSConfig struct {
	TrustedOrigins []string
}

type LimiterConfig struct {
	// RPS is the per-IP request budget for mutating payment routes. Zero disables it.
	RPS int
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	validator *validator.Validate,
	mailer mailer.Mailer,
	sessionManager *scs.SessionManager,
	openapi *openapi3.T,
	userRepo domain.UserRepository,
	payments paymentService,
	receipts receiptService,
	renderer receiptRenderer) *Application {

	return &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		validator:      validator,
		mailer:         mailer,
		sessionManager: sessionManager,
		openapi:        openapi,
		userRepo:       userRepo,
		payments:       payments,
		receipts:       receipts,
		renderer:       renderer,
	}
}

func Run() error {
	// A missing .env file is fine, flags and the real environment still apply.
	_ = godotenv.Load()

	var cfg Config

	flag.IntVar(&cfg.Port, "port", envInt("PORT", 4000), "server port")
	flag.StringVar(&cfg.Env, "env", envString("ENV", "dev"), "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.PublicBaseURL, "public-base-url", envString("PUBLIC_BASE_URL", "http://localhost:4000"), "Public base URL of this API")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", envString("DB_DSN", ""), "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", envInt("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", envDuration("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", envString("REDIS_URL", ""), "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", envInt("REDIS_MAX_OPEN_CONNS", 25), "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", envInt("REDIS_MAX_IDLE_CONNS", 10), "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", envDuration("REDIS_MAX_IDLE_TIME", 2*time.Minute), "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", envString("SMTP_HOST", "sandbox.smtp.mailtrap.io"), "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", envInt("SMTP_PORT", 2525), "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", envString("SMTP_USERNAME", ""), "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", envString("SMTP_PASSWORD", ""), "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", envString("SMTP_SENDER", "Hospital Billing <no-reply@billing.example.com>"), "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", envString("STRIPE_KEY", ""), "Stripe secret key")
	flag.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", envString("STRIPE_SUCCESS_URL", "https://example.com/payments/success"), "Checkout return page")
	flag.StringVar(&cfg.Stripe.CancelUrl, "stripe-cancel-url", envString("STRIPE_CANCEL_URL", "https://example.com/payments/cancel"), "Checkout cancel page")

	flag.BoolVar(&cfg.Gateway.Simulated, "gateway-simulated", envBool("GATEWAY_SIMULATED", false), "Use the simulated payment gateway")
	flag.BoolVar(&cfg.Gateway.Fallback, "gateway-fallback", envBool("GATEWAY_FALLBACK", true), "Fall back to the simulated gateway when Stripe is unreachable")
	flag.DurationVar(&cfg.Gateway.Timeout, "gateway-timeout", envDuration("GATEWAY_TIMEOUT", 10*time.Second), "Timeout of a single gateway call")

	flag.StringVar(&cfg.Billing.Currency, "currency", envString("CURRENCY", "USD"), "ISO 4217 currency of appointment payments")
	flag.StringVar(&cfg.Billing.PaymentMethod, "payment-method", envString("PAYMENT_METHOD", "card"), "Payment method label stored on payments and receipts")
	flag.DurationVar(&cfg.Billing.LockWait, "lock-wait", envDuration("LOCK_WAIT", 3*time.Second), "How long a duplicate execute waits for the in-flight one")
	flag.StringVar(&cfg.Billing.IssuerName, "receipt-issuer", envString("RECEIPT_ISSUER", "General Hospital"), "Issuer name printed on receipts")

	flag.StringVar(&cfg.AMQP.URL, "amqp-url", envString("AMQP_URL", ""), "RabbitMQ URL, events are dropped when empty")
	flag.StringVar(&cfg.AMQP.Exchange, "amqp-exchange", envString("AMQP_EXCHANGE", "billing"), "RabbitMQ topic exchange")

	flag.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		cfg.CORS.TrustedOrigins = strings.Fields(val)
		return nil
	})
	cfg.CORS.TrustedOrigins = strings.Fields(envString("CORS_TRUSTED_ORIGINS", ""))

	flag.IntVar(&cfg.Limiter.RPS, "limiter-rps", envInt("LIMITER_RPS", 10), "Per-IP requests per second on payment mutations (0 disables)")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdownTelemetry, err := InitTelemetry(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(logger.Handler(), otelslog.NewHandler(serviceName)))
	}

	openapi, err := api.LoadSpec(context.Background())
	if err != nil {
		return fmt.Errorf("invalid openapi document: %w", err)
	}

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publisher, closePublisher, err := newEventPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	userRepo := repository.NewPostgresUserRepository(db)
	doctorRepo := repository.NewPostgresDoctorRepository(db)
	appointmentRepo := repository.NewPostgresAppointmentRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	receiptRepo := repository.NewPostgresReceiptRepository(db)

	paymentService := billing.NewPaymentService(
		NewPaymentConfig(cfg),
		logger,
		paymentRepo,
		appointmentRepo,
		userRepo,
		doctorRepo,
		newPaymentGateway(cfg, logger),
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

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		appvalidator.NewValidator(),
		mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender),
		NewSessionManager(redisClient),
		openapi,
		userRepo,
		paymentService,
		receiptIssuer,
		report.NewReceiptRenderer(cfg.Billing.IssuerName),
	)

	return app.run()
}

// NewPaymentConfig derives the billing settings from the server configuration.
func NewPaymentConfig(cfg Config) billing.PaymentConfig {
	return billing.PaymentConfig{
		Currency:       cfg.Billing.Currency,
		PaymentMethod:  cfg.Billing.PaymentMethod,
		ReturnURL:      cfg.Stripe.SuccessUrl,
		CancelURL:      cfg.Stripe.CancelUrl,
		GatewayTimeout: cfg.Gateway.Timeout,
		LockWait:       cfg.Billing.LockWait,
	}
}

func newPaymentGateway(cfg Config, logger *slog.Logger) domain.PaymentGateway {
	simulated := payment.NewSimulatedGateway(cfg.PublicBaseURL)

	if cfg.Gateway.Simulated || cfg.Stripe.SecretKey == "" {
		logger.Warn("using simulated payment gateway, no real charges will be made")
		return simulated
	}

	stripeGateway := payment.NewStripeGateway(cfg.Stripe.SecretKey)
	if cfg.Gateway.Fallback {
		return payment.NewFallbackGateway(stripeGateway, simulated, logger)
	}

	return stripeGateway
}

func newEventPublisher(cfg Config, logger *slog.Logger) (domain.EventPublisher, func(), error) {
	if cfg.AMQP.URL == "" {
		logger.Info("AMQP URL not set, domain events will not be published")
		return events.NopPublisher{}, func() {}, nil
	}

	publisher, err := events.NewRabbitMQPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close rabbitmq publisher", "error", err)
		}
	}

	return publisher, closeFn, nil
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		rdb.Close()
		return nil, err
	}

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "version", version)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.CORS.TrustedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(app.sessionManager.LoadAndSave)

	r.Get("/healthcheck", app.GetHealth)
	r.Get("/openapi.json", app.GetOpenAPI)

	r.Post("/sessions", app.Login)
	r.Delete("/sessions", app.Logout)

	r.Get("/payments/checkout/simulated", app.GetSimulatedCheckout)
	r.Post("/receipts/verify", app.VerifyReceipt)

	r.Group(func(r chi.Router) {
		r.Use(app.requireAuthentication)

		r.Group(func(r chi.Router) {
			if app.config.Limiter.RPS > 0 {
				r.Use(httprate.LimitByIP(app.config.Limiter.RPS, time.Second))
			}

			r.Post("/payments/create", app.CreatePayment)
			r.Post("/payments/execute", app.ExecutePayment)
			r.Post("/payments/cancel", app.CancelPayment)
			r.Post("/receipts/{paymentId}/generate", app.GenerateReceipt)
		})

		r.Get("/payments", app.ListPayments)
		r.Get("/payments/{paymentId}", app.GetPayment)
		r.Get("/appointments/{appointmentId}/payments", app.ListAppointmentPayments)

		r.Get("/receipts", app.ListReceipts)
		r.Get("/receipts/by-payment/{paymentId}", app.GetReceiptByPayment)
		r.Get("/receipts/{receiptNumber}", app.GetReceipt)
		r.Get("/receipts/{receiptNumber}/pdf", app.GetReceiptPdf)
	})

	return r
}
