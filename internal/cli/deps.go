// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"classifieds/internal/config"
	"classifieds/internal/database"
	"classifieds/internal/mail"
	"classifieds/internal/mq"
)

// openDB connects to PostgreSQL.
func openDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// openBroker dials RabbitMQ.
func openBroker(cfg *config.Config) (*mq.RabbitMQClient, error) {
	broker, err := mq.NewRabbitMQClient(mq.RabbitMQOptions{URL: cfg.RabbitMQURL, PrefetchCount: 10})
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return broker, nil
}

func smtpSender(cfg *config.Config) *mail.SMTPSender {
	return mail.NewSMTPSender(mail.SMTPOptions{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

// newMailer builds the sender selected by MAIL_TRANSPORT. The returned
// close function releases the broker connection, if any.
func newMailer(cfg *config.Config) (mail.Sender, func() error, error) {
	noop := func() error { return nil }

	switch cfg.MailTransport {
	case "smtp":
		slog.Info("mail transport", "transport", "smtp", "host", cfg.SMTPHost)
		return smtpSender(cfg), noop, nil
	case "queue":
		broker, err := openBroker(cfg)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("mail transport", "transport", "queue", "queue", cfg.MailQueue)
		return mail.NewQueueSender(broker, cfg.MailQueue), broker.Close, nil
	default:
		slog.Info("mail transport", "transport", "log")
		return mail.LogSender{}, noop, nil
	}
}
