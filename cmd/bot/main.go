package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/ignite/pulse-bot/internal/api"
	"github.com/ignite/pulse-bot/internal/bot"
	"github.com/ignite/pulse-bot/internal/config"
	"github.com/ignite/pulse-bot/internal/message"
	"github.com/ignite/pulse-bot/internal/messenger"
	"github.com/ignite/pulse-bot/internal/pkg/distlock"
	"github.com/ignite/pulse-bot/internal/pkg/httpretry"
	"github.com/ignite/pulse-bot/internal/pkg/logger"
	"github.com/ignite/pulse-bot/internal/repository/postgres"
	"github.com/ignite/pulse-bot/internal/service/audience"
	"github.com/ignite/pulse-bot/internal/service/ledger"
	"github.com/ignite/pulse-bot/internal/service/survey"
	"github.com/ignite/pulse-bot/internal/service/user"
	"github.com/ignite/pulse-bot/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("load config failed", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err.Error())
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactAnswers(cfg.Logging.RedactAnswers)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		logger.Error("database ping failed", "error", err.Error())
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// Services
	surveySvc := survey.NewService(postgres.NewSurveyRepo(db))
	audienceSvc := audience.NewService(postgres.NewAudienceRepo(db))
	ledgerSvc := ledger.NewService(postgres.NewLedgerRepo(db))
	userSvc := user.NewService(postgres.NewUserRepo(db))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Slack.BootstrapAdminID != "" {
		if err := userSvc.EnsureAdmin(ctx, cfg.Slack.BootstrapAdminID); err != nil {
			logger.Error("bootstrap admin failed",
				"slack_id", cfg.Slack.BootstrapAdminID, "error", err.Error())
			os.Exit(1)
		}
	}

	// Slack transport with retrying HTTP client
	retryClient := httpretry.NewRetryClient(nil, cfg.Slack.MaxRetries)
	slackClient := slack.New(cfg.Slack.BotToken,
		slack.OptionAppLevelToken(cfg.Slack.AppToken),
		slack.OptionHTTPClient(retryClient),
	)
	smClient := socketmode.New(slackClient)

	msgr := messenger.New(slackClient, message.NewRenderer(), cfg.Slack.SendTimeout())

	// Background workers
	engine := worker.NewReminderEngine(surveySvc, audienceSvc, ledgerSvc, userSvc, msgr)
	engine.SetCheckInterval(cfg.Reminder.CheckInterval())
	engine.SetLock(distlock.NewLock(redisClient, db, "pulse:reminder-tick", 4*time.Minute))

	roster := worker.NewRosterSync(slackClient, userSvc, audienceSvc)
	roster.SetInterval(cfg.Roster.RefreshInterval())

	if err := engine.Start(); err != nil {
		logger.Error("start reminder engine failed", "error", err.Error())
		os.Exit(1)
	}
	if err := roster.Start(); err != nil {
		logger.Error("start roster sync failed", "error", err.Error())
		os.Exit(1)
	}

	// Ops API
	handlers := api.NewHandlers(surveySvc, ledgerSvc, audienceSvc)
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: api.SetupRoutes(handlers)}
	go func() {
		logger.Info("ops api listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops api failed", "error", err.Error())
		}
	}()

	// Slack event loop
	b := bot.New(smClient, &bot.Deps{
		Client:   slackClient,
		Surveys:  surveySvc,
		Audience: audienceSvc,
		Users:    userSvc,
		Ledger:   ledgerSvc,
		Engine:   engine,
		Roster:   roster,
	})
	go func() {
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("slack event loop failed", "error", err.Error())
			stop()
		}
	}()

	logger.Info("pulse bot running")
	<-ctx.Done()
	logger.Info("shutting down")

	engine.Stop()
	roster.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops api shutdown failed", "error", err.Error())
	}
	logger.Info("goodbye")
}
