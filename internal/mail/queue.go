// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"classifieds/internal/mq"
)

// QueueSender publishes messages to a broker queue for the mailer worker.
type QueueSender struct {
	broker mq.Backend
	queue  string
}

// NewQueueSender creates a QueueSender publishing to queue.
func NewQueueSender(broker mq.Backend, queue string) *QueueSender {
	return &QueueSender{broker: broker, queue: queue}
}

// Send enqueues msg.
func (q *QueueSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	if _, err := q.broker.Publish(ctx, q.queue, data, map[string]string{"subject": msg.Subject}); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}

// Worker drains the mail queue into a delivering Sender.
type Worker struct {
	broker   mq.Backend
	queue    string
	delivery Sender
}

// NewWorker creates a Worker that hands queued messages to delivery.
func NewWorker(broker mq.Backend, queue string, delivery Sender) *Worker {
	return &Worker{broker: broker, queue: queue, delivery: delivery}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("mail worker started", "queue", w.queue)
	return w.broker.Subscribe(ctx, w.queue, w.handle)
}

func (w *Worker) handle(ctx context.Context, m mq.Message) error {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		return fmt.Errorf("decode mail %s: %w: %v", m.ID, mq.ErrPermanent, err)
	}
	if msg.To == "" {
		return fmt.Errorf("mail %s has no recipient: %w", m.ID, mq.ErrPermanent)
	}
	if err := w.delivery.Send(ctx, msg); err != nil {
		return err
	}
	slog.Info("mail delivered", "id", m.ID, "to", msg.To, "subject", msg.Subject)
	return nil
}
