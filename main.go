package main

import (
	"context"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-challenge-bridge/handlers"
	"daily-challenge-bridge/middleware"
	"daily-challenge-bridge/models"
	"daily-challenge-bridge/services"
	"daily-challenge-bridge/utils"
	"daily-challenge-bridge/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration:\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	middleware.InitPrometheus()
	services.InitMetrics()

	// --- Day-scoped state: catalog owns the rotation lock, broker and ledger reset with it ---
	catalog := services.NewChallengeCatalog(services.CatalogConfig{
		Location:    cfg.Location,
		AmountRange: services.IntRange{Min: cfg.AmountMin, Max: cfg.AmountMax},
		RewardRange: services.IntRange{Min: cfg.RewardMin, Max: cfg.RewardMax},
		Rand:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	})
	broker := services.NewSessionBroker(catalog, cfg.NonceTTL)
	ledger := services.NewProgressLedger(catalog)

	issuer := services.NewRewardIssuerClient(cfg.RewardServiceURL, cfg.RewardServiceToken)
	gate := services.NewRewardGate(ledger, issuer, cfg.PayoutTO)

	// --- Identity service (optional, but required to be reachable at boot when configured) ---
	var profileWorker *workers.ProfileSyncWorker
	if cfg.IdentityServiceURL != "" {
		identity := services.NewIdentityClient(cfg.IdentityServiceURL, cfg.IdentityServiceToken, cfg.IdentityProjectName, services.ChallengesPerDay)
		bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := identity.EnsureProject(bootCtx); err != nil {
			cancel()
			log.Fatal("identity service unreachable at startup: ", err)
		}
		cancel()

		profileWorker = workers.NewProfileSyncWorker(identity, 512)
		profileWorker.Start(ctx)
		gate.Profiles = profileWorker
		broker.OnConfirmed = profileWorker.EnqueueProfile
	} else {
		log.Println("⚠️  IDENTITY_SERVICE_URL not set, profile/badge sync disabled")
	}

	// --- Claim receipts (optional audit trail) ---
	var receipts *services.GormReceiptStore
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		if err := db.AutoMigrate(&models.ClaimReceipt{}); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
		receipts = services.NewGormReceiptStore(db)
		gate.Receipts = receipts
	} else {
		log.Println("⚠️  DATABASE_URL not set, claim receipts are not recorded")
	}

	// --- Publish each day's catalog to R2 for CDN reads ---
	if cfg.R2.Enabled() {
		publisher, err := utils.NewR2Publisher(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		catalog.OnRotate(func(day string, challenges []models.Challenge) {
			go func() {
				pubCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				for _, key := range utils.ChallengeKeys(day) {
					url, err := publisher.PublishJSON(pubCtx, key, challenges)
					if err != nil {
						log.Printf("❌ [R2] Failed to publish %s: %v", key, err)
						continue
					}
					log.Printf("📤 [R2] Published %s", url)
				}
			}()
		})
	}

	// Generate today's set eagerly so the first request does not pay for it.
	catalog.Rotate(catalog.Now())

	sched, err := broker.StartNonceSweeper(cfg.SweepPeriod)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	limiter := middleware.NewRateLimiter(cfg.AuthRPS, 20)
	if _, err := sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			if n := limiter.Cleanup(); n > 0 {
				log.Printf("🧹 [Scheduler] Forgot %d idle rate-limit visitor(s)", n)
			}
		}),
	); err != nil {
		log.Fatal("failed to schedule rate limiter cleanup:", err)
	}

	fiberCfg := fiber.Config{
		BodyLimit:    64 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	}
	if len(cfg.TrustedProxies) > 0 {
		// c.IP() (and so the auth rate limit) reads X-Forwarded-For only from these peers
		fiberCfg.ProxyHeader = fiber.HeaderXForwardedFor
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = cfg.TrustedProxies
		fiberCfg.EnableIPValidation = true
	}
	app := fiber.New(fiberCfg)

	app.Use(recover.New())
	app.Use(middleware.MonitorMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Session-Token",
		MaxAge:       86400, // 24 hours
	}))

	handlers.SetupChallengeRoutes(app, catalog, broker)
	handlers.SetupAuthRoutes(app, broker, limiter.Handler())
	handlers.SetupProgressionRoutes(app, handlers.ProgressionDeps{
		Broker:   broker,
		Ledger:   ledger,
		Gate:     gate,
		Receipts: receipts,
	})
	app.Get("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass), adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Challenge day rotates at midnight %s", cfg.Location)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if profileWorker != nil {
		profileWorker.Wait()
	}
}
