package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/citamed/citamed/internal/platform/metrics"
)

const (
	activeDoctorsKey = "citamed:doctors:active"
	doctorKeyPrefix  = "citamed:doctor:"
)

// CachedDoctorRepository keeps the active doctor listing and single doctors
// in Redis. Writes invalidate the affected keys. Redis failures are logged
// and the call falls through to the wrapped repository.
type CachedDoctorRepository struct {
	DoctorRepository
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewCachedDoctorRepository(next DoctorRepository, client *redis.Client, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *CachedDoctorRepository {
	return &CachedDoctorRepository{
		DoctorRepository: next,
		redis:            client,
		ttl:              ttl,
		metrics:          m,
		logger:           logger,
	}
}

func doctorKey(id uuid.UUID) string { return doctorKeyPrefix + id.String() }

func (r *CachedDoctorRepository) ListActive(ctx context.Context) ([]*Doctor, error) {
	var cached []*Doctor
	if r.load(ctx, activeDoctorsKey, &cached) {
		return cached, nil
	}
	doctors, err := r.DoctorRepository.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, activeDoctorsKey, doctors)
	return doctors, nil
}

func (r *CachedDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var cached Doctor
	if r.load(ctx, doctorKey(id), &cached) {
		return &cached, nil
	}
	d, err := r.DoctorRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, doctorKey(id), d)
	return d, nil
}

func (r *CachedDoctorRepository) Create(ctx context.Context, d *Doctor) error {
	if err := r.DoctorRepository.Create(ctx, d); err != nil {
		return err
	}
	r.invalidate(ctx, activeDoctorsKey)
	return nil
}

func (r *CachedDoctorRepository) UpdateAvailability(ctx context.Context, d *Doctor) error {
	if err := r.DoctorRepository.UpdateAvailability(ctx, d); err != nil {
		return err
	}
	r.invalidate(ctx, activeDoctorsKey, doctorKey(d.ID))
	return nil
}

func (r *CachedDoctorRepository) load(ctx context.Context, key string, dst any) bool {
	data, err := r.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.DoctorCacheLookup("miss")
		return false
	}
	if err != nil {
		r.metrics.DoctorCacheLookup("error")
		r.logger.Warn().Err(err).Str("key", key).Msg("doctor cache read failed")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.metrics.DoctorCacheLookup("error")
		r.logger.Warn().Err(err).Str("key", key).Msg("doctor cache entry unreadable")
		return false
	}
	r.metrics.DoctorCacheLookup("hit")
	return true
}

func (r *CachedDoctorRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("doctor cache write failed")
	}
}

func (r *CachedDoctorRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn().Err(err).Strs("keys", keys).Msg("doctor cache invalidation failed")
	}
}
