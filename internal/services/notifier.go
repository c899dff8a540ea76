package services

import (
	"context"

	"github.com/google/uuid"
)

// Notifier is told which rendered paths a mutation made stale.
type Notifier interface {
	Invalidate(ctx context.Context, paths ...string)
}

type noopNotifier struct{}

func (noopNotifier) Invalidate(context.Context, ...string) {}

const (
	pathBooks     = "/books"
	pathDashboard = "/dash"
	pathGenres    = "/genres"
)

func bookPaths(id uuid.UUID) []string {
	return []string{pathBooks, pathDashboard, pathBooks + "/" + id.String()}
}
