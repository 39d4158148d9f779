package ports

import (
	"context"

	"github.com/samirrijal/civic311/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRequestRouted(ctx context.Context, event *domain.RequestRouted) error
	PublishRequestUnrouted(ctx context.Context, event *domain.RequestUnrouted) error
	PublishBoundaryChanged(ctx context.Context, event *domain.BoundaryChanged) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeBoundaryChanges(ctx context.Context, handler func(ctx context.Context, event *domain.BoundaryChanged) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// MediaClassifier decides whether a media URL attached to a request is safe to publish.
type MediaClassifier interface {
	IsSafe(ctx context.Context, mediaURL string) (bool, error)
}
