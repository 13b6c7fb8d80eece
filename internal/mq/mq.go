// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mq is a small broker abstraction used for background mail
// delivery. RabbitMQ is the only production backend.
package mq

import (
	"context"
	"errors"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to have it redelivered, or
// an error wrapping ErrPermanent to drop it.
type Handler func(ctx context.Context, msg Message) error

// ErrPermanent marks a message that can never be processed.
var ErrPermanent = errors.New("permanent failure")

// Backend defines the broker operations used by the app.
type Backend interface {
	Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, queue string, handler Handler) error
	Close() error
}
