package app

import (
	"context"
	"log/slog"
)

// Variant distinguishes success feedback from failures.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is fire-and-forget feedback for the author.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier surfaces notifications (toasts, log lines, websocket pushes).
type Notifier interface {
	Notify(n Notification)
}

// Confirmer asks the author a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// StaticConfirmer answers every prompt with the same value.
type StaticConfirmer bool

func (c StaticConfirmer) Confirm(string) bool { return bool(c) }

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(msg Notification) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if msg.Variant == VariantDestructive {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, msg.Title, "description", msg.Description)
}
