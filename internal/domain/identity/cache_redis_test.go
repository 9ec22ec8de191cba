package identity

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citamed/citamed/internal/platform/metrics"
)

func newCachedRepo(t *testing.T) (*CachedDoctorRepository, *mockDoctorRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	next := newMockDoctorRepo()
	return NewCachedDoctorRepository(next, client, time.Minute, nil, zerolog.Nop()), next, mr
}

func TestCachedDoctorRepository_ListActive(t *testing.T) {
	repo, next, mr := newCachedRepo(t)
	ctx := context.Background()
	require.NoError(t, next.Create(ctx, &Doctor{UserID: "u1", FullName: "Dra. López", IsActive: true, AvailableDays: []string{"Lunes"}}))

	first, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mr.Exists(activeDoctorsKey))

	second, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first[0].FullName, second[0].FullName)
	assert.Equal(t, 1, next.lists, "second listing should be served from redis")

	mr.FastForward(2 * time.Minute)
	_, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.lists, "expired entry should be reloaded")
}

func TestCachedDoctorRepository_WritesInvalidate(t *testing.T) {
	repo, next, mr := newCachedRepo(t)
	ctx := context.Background()
	d := &Doctor{UserID: "u1", FullName: "Dra. López", IsActive: true, StartTime: "09:00", EndTime: "17:00"}
	require.NoError(t, repo.Create(ctx, d))

	_, err := repo.ListActive(ctx)
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "17:00", got.EndTime)
	assert.True(t, mr.Exists(doctorKey(d.ID)))

	updated := *d
	updated.EndTime = "13:00"
	require.NoError(t, repo.UpdateAvailability(ctx, &updated))
	assert.False(t, mr.Exists(activeDoctorsKey))
	assert.False(t, mr.Exists(doctorKey(d.ID)))

	got, err = repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "13:00", got.EndTime)

	require.NoError(t, repo.Create(ctx, &Doctor{UserID: "u2", FullName: "Dr. Ruiz", IsActive: true}))
	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, next.lists)
}

func TestCachedDoctorRepository_RedisDownFallsThrough(t *testing.T) {
	repo, next, mr := newCachedRepo(t)
	reg := prometheus.NewRegistry()
	repo.metrics = metrics.New(reg)
	ctx := context.Background()
	require.NoError(t, next.Create(ctx, &Doctor{UserID: "u1", FullName: "Dra. López", IsActive: true}))

	mr.Close()
	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	series, err := testutil.GatherAndCount(reg, "citamed_identity_doctor_cache_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series, "only the error result should be recorded")
}
