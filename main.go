package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/meinhoongagan/urban-services/auth"
	"github.com/meinhoongagan/urban-services/config"
	"github.com/meinhoongagan/urban-services/controllers"
	"github.com/meinhoongagan/urban-services/cron"
	"github.com/meinhoongagan/urban-services/db"
	"github.com/meinhoongagan/urban-services/middleware"
	redisclient "github.com/meinhoongagan/urban-services/redis"
	"github.com/meinhoongagan/urban-services/repository"
	"github.com/meinhoongagan/urban-services/routes"
	"github.com/meinhoongagan/urban-services/utils"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Init(cfg.DatabaseURL, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		zlog.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb, err := redisclient.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	repo := repository.NewAccountRepository(gdb)
	svc := auth.NewService(
		repo,
		auth.NewRedisPendingStore(rdb, cfg.PendingOTPTTL),
		newDelivery(cfg, zlog),
		auth.Options{
			BcryptCost:     cfg.BcryptCost,
			OTPTTL:         cfg.OTPTTL,
			MaxOTPAttempts: cfg.OTPMaxAttempts,
		},
		zlog,
	)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if cfg.OTPReturnToClient {
		zlog.Warn("OTP_RETURN_TO_CLIENT is enabled; verification codes are echoed in responses")
	}
	ac := controllers.NewAuthController(svc, tokens, zlog, cfg.OTPReturnToClient)

	scheduler, err := cron.StartCronJobs(cfg.OTPSweepSchedule, repo, zlog)
	if err != nil {
		zlog.Fatal("Failed to schedule cron jobs", zap.Error(err))
	}
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.IsProduction()})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: cfg.CORSOrigins != "*",
	}))
	app.Use(middleware.BrowserSession(cfg.SessionCookie, cfg.IsProduction()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hello, World!")
	})

	protected := middleware.Protected(tokens.Secret(), zlog)
	routes.SetupAuthRoutes(app, ac, protected)
	routes.SetupProviderRoutes(app, ac, protected)
	routes.SetupAdminRoutes(app, ac, protected, cfg.AdminRegistrationOpen)

	go func() {
		<-ctx.Done()
		zlog.Info("Shutting down server")
		if err := app.Shutdown(); err != nil {
			zlog.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("Server starting", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	if err := app.Listen(cfg.Addr); err != nil {
		zlog.Error("Server stopped", zap.Error(err))
	}
}

func newDelivery(cfg *config.Config, log *zap.Logger) auth.Delivery {
	switch cfg.OTPDelivery {
	case "email":
		return utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
	case "log":
		return utils.LogDelivery{Log: log}
	default:
		return utils.NewSMSClient(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender)
	}
}
