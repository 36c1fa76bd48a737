package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/smilecare/clinic-api/internal/config"
	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	"github.com/smilecare/clinic-api/internal/repository/postgres"
	"github.com/smilecare/clinic-api/pkg/messaging"
	"github.com/smilecare/clinic-api/pkg/messaging/redis"
)

// workerConfig is read from the environment; the worker runs detached from
// the API and does not share its config file.
type workerConfig struct {
	DatabaseHost     string `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser     string `envconfig:"DB_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DB_PASSWORD" default:""`
	DatabaseName     string `envconfig:"DB_NAME" default:"clinic"`
	DatabaseSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	SMTPHost string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser string `envconfig:"SMTP_USER" default:""`
	SMTPPass string `envconfig:"SMTP_PASSWORD" default:""`
	From     string `envconfig:"MAIL_FROM" default:"noreply@smilecare.example"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("worker", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Name:     cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appLogger := log.Logger
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     5,
		MinIdleConns: 1,
	}, &appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := broker.Subscribe(ctx, messaging.NotificationChannel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to notification channel")
	}

	w := &worker{
		users:  postgres.NewUserRepository(db),
		dialer: dialer,
		from:   cfg.From,
	}

	log.Info().Msg("notification worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			log.Info().Msg("notification worker shutting down")
			return
		case payload, ok := <-messages:
			if !ok {
				log.Warn().Msg("notification channel closed")
				return
			}
			w.handle(ctx, payload)
		}
	}
}

type worker struct {
	users  repository.UserRepository
	dialer *gomail.Dialer
	from   string
}

func (w *worker) handle(ctx context.Context, payload []byte) {
	var msg model.NotificationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Error().Err(err).Msg("failed to decode notification payload")
		return
	}

	user, err := w.users.Get(ctx, msg.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", msg.UserID.String()).Msg("failed to resolve notification recipient")
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", w.from)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", "SmileCare notification")
	body := msg.Message
	if msg.Link != "" {
		body += "\n\n" + msg.Link
	}
	m.SetBody("text/plain", body)

	if err := w.dialer.DialAndSend(m); err != nil {
		log.Error().Err(err).Str("to", user.Email).Msg("failed to send notification email")
		return
	}
	log.Info().Str("to", user.Email).Msg("notification email sent")
}
