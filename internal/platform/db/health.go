package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthTimeout = 3 * time.Second

// Health is the /health/db body.
type Health struct {
	Status        string     `json:"status"`
	SchemaVersion int        `json:"schemaVersion"`
	Pool          *PoolStats `json:"pool,omitempty"`
}

// PoolStats is a snapshot of the connection pool.
type PoolStats struct {
	TotalConns    int32  `json:"totalConns"`
	IdleConns     int32  `json:"idleConns"`
	AcquiredConns int32  `json:"acquiredConns"`
	MaxConns      int32  `json:"maxConns"`
	AcquireCount  int64  `json:"acquireCount"`
	AcquireWait   string `json:"acquireWait"`
}

func poolStats(pool *pgxpool.Pool) *PoolStats {
	s := pool.Stat()
	return &PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
		AcquireCount:  s.AcquireCount(),
		AcquireWait:   s.AcquireDuration().String(),
	}
}

// HealthHandler answers 200 when the database answers a query within a few
// seconds, reporting the newest applied migration, and 503 otherwise. Pool
// statistics are included when conn is a *pgxpool.Pool.
func HealthHandler(conn DBTX) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		h := Health{Status: "healthy"}
		if pool, ok := conn.(*pgxpool.Pool); ok {
			h.Pool = poolStats(pool)
		}
		err := conn.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM _migrations`).Scan(&h.SchemaVersion)
		if err != nil {
			c.Logger().Errorf("database health check: %v", err)
			h.Status = "unhealthy"
			return c.JSON(http.StatusServiceUnavailable, h)
		}
		return c.JSON(http.StatusOK, h)
	}
}
