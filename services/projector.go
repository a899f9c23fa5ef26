package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/metrics"
	"github.com/kendall-kelly/home-services-api/models"
)

// JobCardProjection is the reduced copy of a job card read by real-time consumers.
type JobCardProjection struct {
	ID        string
	Status    string
	UpdatedAt time.Time
}

// ProviderPresence is the live availability copy of a provider.
type ProviderPresence struct {
	ID              string
	IsOnline        bool
	IsAvailable     bool
	CurrentLocation *models.GeoPoint
	UpdatedAt       time.Time
}

// ErrStaleProjection is returned when the stored projection is already newer
// than the one being written. The write is dropped.
var ErrStaleProjection = errors.New("projection is older than the stored copy")

// ProjectionStore is the secondary store behind the live-status projection.
// Writes carry the entity's UpdatedAt and must never replace a newer copy.
type ProjectionStore interface {
	PutJobCard(ctx context.Context, p JobCardProjection) error
	PutProviderPresence(ctx context.Context, p ProviderPresence) error
}

const (
	jobCardKeyPrefix  = "jobCards_rtdb:"
	presenceKeyPrefix = "providerStatus:"
)

// RedisProjectionStore keeps one hash per entity. Each hash carries a numeric
// revision (UpdatedAt in microseconds) and putIfNewer refuses older revisions,
// so writes that arrive out of order cannot roll a projection back.
type RedisProjectionStore struct {
	client redis.UniversalClient
}

func NewRedisProjectionStore(client redis.UniversalClient) *RedisProjectionStore {
	return &RedisProjectionStore{client: client}
}

// putIfNewer sets ARGV[2..] as field/value pairs on KEYS[1] unless the stored
// revision is greater than ARGV[1]. Returns 1 when written.
var putIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'revision')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'revision', ARGV[1], unpack(ARGV, 2))
return 1
`)

// NewRedisClient parses url and pings the server once.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

func (s *RedisProjectionStore) PutJobCard(ctx context.Context, p JobCardProjection) error {
	return s.put(ctx, jobCardKeyPrefix+p.ID, p.UpdatedAt,
		"id", p.ID,
		"status", p.Status,
		"updatedAt", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
}

func (s *RedisProjectionStore) PutProviderPresence(ctx context.Context, p ProviderPresence) error {
	values := []interface{}{
		"id", p.ID,
		"isOnline", p.IsOnline,
		"isAvailable", p.IsAvailable,
		"updatedAt", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.CurrentLocation != nil {
		values = append(values,
			"latitude", p.CurrentLocation.Latitude,
			"longitude", p.CurrentLocation.Longitude,
		)
	}
	return s.put(ctx, presenceKeyPrefix+p.ID, p.UpdatedAt, values...)
}

func (s *RedisProjectionStore) put(ctx context.Context, key string, updatedAt time.Time, fields ...interface{}) error {
	args := append([]interface{}{updatedAt.UnixMicro()}, fields...)
	written, err := putIfNewer.Run(ctx, s.client, []string{key}, args...).Int()
	if err != nil {
		return err
	}
	if written == 0 {
		return ErrStaleProjection
	}
	return nil
}

// Projector mirrors status changes into the projection store on the task
// runner. A write that fails is logged and left stale until the next change.
type Projector struct {
	store   ProjectionStore
	runner  *TaskRunner
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewProjector returns a projector. A nil store disables projection.
func NewProjector(store ProjectionStore, runner *TaskRunner, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Projector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Projector{store: store, runner: runner, timeout: timeout, log: log, metrics: m}
}

// JobCardChanged schedules the projection of card's current status.
func (p *Projector) JobCardChanged(card *models.JobCard) {
	if p == nil || p.store == nil || card == nil {
		return
	}
	proj := JobCardProjection{ID: card.ID, Status: card.Status, UpdatedAt: card.UpdatedAt}
	p.runner.Go("project_job_card", p.timeout, func(ctx context.Context) error {
		return p.record("job_card", proj.ID, p.store.PutJobCard(ctx, proj))
	})
}

// ProviderPresenceChanged schedules the projection of a provider's presence.
func (p *Projector) ProviderPresenceChanged(provider *models.Provider) {
	if p == nil || p.store == nil || provider == nil {
		return
	}
	proj := ProviderPresence{
		ID:              provider.ID,
		IsOnline:        provider.IsOnline,
		IsAvailable:     provider.IsAvailable,
		CurrentLocation: provider.CurrentLocation,
		UpdatedAt:       provider.UpdatedAt,
	}
	p.runner.Go("project_provider_presence", p.timeout, func(ctx context.Context) error {
		return p.record("provider_presence", proj.ID, p.store.PutProviderPresence(ctx, proj))
	})
}

func (p *Projector) record(kind, id string, err error) error {
	if errors.Is(err, ErrStaleProjection) {
		p.metrics.ProjectionWritten(kind, "stale")
		p.log.Debug("live status projection skipped, stored copy is newer",
			zap.String("kind", kind),
			zap.String("id", id),
		)
		return nil
	}
	if err != nil {
		p.metrics.ProjectionWritten(kind, "error")
		p.log.Warn("live status projection failed",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
		return nil
	}
	p.metrics.ProjectionWritten(kind, "ok")
	return nil
}
