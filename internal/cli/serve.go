package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"task-manager/internal/auth"
	"task-manager/internal/bot"
	"task-manager/internal/config"
	"task-manager/internal/repository"
	"task-manager/internal/service"
	"task-manager/internal/web"
)

const jobTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduled jobs and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

// app is the wired service graph shared by serve and export.
type app struct {
	db         *gorm.DB
	users      *repository.UserRepository
	tokens     *auth.Tokens
	auth       *service.AuthService
	tasks      *service.TaskService
	reminders  *service.ReminderService
	recurrence *service.RecurrenceService
}

func openApp(cfg config.Config) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	return &app{
		db:         db,
		users:      users,
		tokens:     tokens,
		auth:       service.NewAuthService(users, auth.NewHasher(cfg.BcryptCost), tokens),
		tasks:      service.NewTaskService(tasks, repository.NewTaskQuery(sqlDB, cfg.DatabaseDriver)),
		reminders:  service.NewReminderService(tasks),
		recurrence: service.NewRecurrenceService(tasks),
	}, nil
}

func (a *app) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runServe(ctx context.Context, cfg config.Config) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// pollers must return before the database closes
	ctx, cancel := context.WithCancel(ctx)
	var workers sync.WaitGroup
	defer func() {
		cancel()
		workers.Wait()
		log.Println("[info] shutdown complete")
	}()

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.Schedule(cfg.RecurrenceCron, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := a.recurrence.ReopenDue(jobCtx); err != nil {
			log.Printf("[error] reopen repeating tasks: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule recurrence: %w", err)
	}

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, a.users, a.tasks, a.reminders)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		if _, err := scheduler.Schedule(cfg.DigestCron, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := telegramBot.SendDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[error] digest: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
		startPoller(ctx, &workers, "bot", telegramBot)
	} else {
		log.Println("[info] TELEGRAM_TOKEN is empty, bot disabled")
	}

	scheduler.Start()
	defer scheduler.Stop()

	server := web.NewServer(a.auth, a.tasks, web.Options{
		Addr:          cfg.HTTPAddr,
		TokenTTL:      a.tokens.TTL(),
		SecureCookies: cfg.Production(),
	})
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// poller receives updates until its context is cancelled.
type poller interface {
	Start(ctx context.Context) error
}

func startPoller(ctx context.Context, wg *sync.WaitGroup, name string, p poller) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Start(ctx); err != nil {
			log.Printf("[error] %s stopped: %v", name, err)
		}
	}()
}
