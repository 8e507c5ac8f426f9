package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/commie294/T4t/internal/config"
	s3infra "github.com/commie294/T4t/internal/infra/s3"
	tginfra "github.com/commie294/T4t/internal/infra/telegram"
	"github.com/commie294/T4t/internal/jobs/cleanup"
	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
	redisrepo "github.com/commie294/T4t/internal/repo/redis"
	dialogsvc "github.com/commie294/T4t/internal/services/dialog"
	discoverysvc "github.com/commie294/T4t/internal/services/discovery"
	evidencesvc "github.com/commie294/T4t/internal/services/evidence"
	interactionsvc "github.com/commie294/T4t/internal/services/interactions"
	modsvc "github.com/commie294/T4t/internal/services/moderation"
	profilesvc "github.com/commie294/T4t/internal/services/profiles"
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	s3       *minio.Client
	bot      *tginfra.Bot

	profiles     *profilesvc.Service
	dialogs      *dialogsvc.Service
	discovery    *discoverysvc.Service
	interactions *interactionsvc.Service
	moderation   *modsvc.Service
	cleanupJob   *cleanup.Job
}

// botNotifier delivers service notifications through the bot. In private
// chats the chat id equals the user id.
type botNotifier struct {
	bot *tginfra.Bot
}

func (n *botNotifier) Notify(ctx context.Context, userID int64, text string) error {
	if n.bot == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	return n.bot.SendText(ctx, userID, text)
}

func (n *botNotifier) NotifyReport(ctx context.Context, chatID int64, text string, reportID int64) error {
	if n.bot == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	return n.bot.SendReportQueue(ctx, chatID, text, reportID)
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init s3 for bot app: %w", err)
	}

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, update listener disabled")
	}

	profileRepo := pgrepo.NewProfileRepo(pool)
	candidateRepo := pgrepo.NewCandidateRepo(pool)
	likeRepo := pgrepo.NewLikeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	viewRepo := pgrepo.NewViewRepo(pool)
	dialogRepo := redisrepo.NewDialogRepo(redisClient, cfg.Dialog.TTL)

	notifier := &botNotifier{bot: bot}
	evidenceStore := evidencesvc.NewS3Store(s3Client, cfg.S3.Bucket)

	profiles := profilesvc.NewService(profileRepo)
	discovery := discoverysvc.NewService(discoverysvc.Dependencies{
		Profiles:   profileRepo,
		Candidates: candidateRepo,
		Views:      viewRepo,
	}, discoverysvc.Config{ViewCooldown: cfg.Discovery.ViewCooldown})
	interactions := interactionsvc.NewService(interactionsvc.Dependencies{
		Pool:     pool,
		Profiles: profileRepo,
		Likes:    likeRepo,
		Matches:  matchRepo,
		Notifier: notifier,
	}, logger)
	moderation := modsvc.NewService(modsvc.Dependencies{
		Pool:     pool,
		Reports:  reportRepo,
		Profiles: profileRepo,
		Evidence: evidencesvc.NewArchiver(bot, evidenceStore),
		Notifier: notifier,
		Admin:    notifier,
	}, modsvc.Config{AdminChatID: cfg.Bot.AdminChatID}, logger)

	app := &App{
		cfg:          cfg,
		logger:       logger,
		postgres:     pool,
		redis:        redisClient,
		s3:           s3Client,
		bot:          bot,
		profiles:     profiles,
		discovery:    discovery,
		interactions: interactions,
		moderation:   moderation,
		cleanupJob:   cleanup.New(viewRepo, cfg.Discovery.ViewRetention, logger),
	}
	app.dialogs = dialogsvc.NewService(dialogRepo, app.commitDialogue)

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnPhoto:    a.handlePhoto,
				OnCommand:  a.handleCommand,
				OnText:     a.handleText,
				OnCallback: a.handleCallback,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Bot.CleanupInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
