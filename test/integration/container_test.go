//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresReadyMax = 45 * time.Second
)

// startPostgres returns a connection string for the integration database.
// CITAMED_TEST_DATABASE_URL points the suite at an existing server; without
// it a throwaway container is started through the Docker CLI.
func startPostgres(ctx context.Context) (string, func(), error) {
	if url := os.Getenv("CITAMED_TEST_DATABASE_URL"); url != "" {
		return url, func() {}, waitForPostgres(ctx, url, postgresReadyMax)
	}

	name := fmt.Sprintf("citamed-integration-%d", time.Now().UnixNano())
	out, err := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"--name", name,
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=citamed",
		"-e", "POSTGRES_PASSWORD=citamed",
		"-e", "POSTGRES_DB=citamed",
		postgresImage,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run: %w: %s", err, out)
	}
	cleanup := func() { _ = exec.Command("docker", "rm", "-f", name).Run() }

	hostPort, err := mappedPort(ctx, name)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	url := fmt.Sprintf("postgres://citamed:citamed@%s/citamed?sslmode=disable", hostPort)
	if err := waitForPostgres(ctx, url, postgresReadyMax); err != nil {
		cleanup()
		return "", nil, err
	}
	return url, cleanup, nil
}

// mappedPort asks Docker which host address it bound to the container's 5432.
func mappedPort(ctx context.Context, container string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", "port", container, "5432/tcp").Output()
	if err != nil {
		return "", fmt.Errorf("docker port: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return "", fmt.Errorf("docker port: no mapping for %s", container)
	}
	return line, nil
}

// waitForPostgres polls until a connection answers a query or the deadline passes.
func waitForPostgres(ctx context.Context, url string, max time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		conn, err := pgx.Connect(ctx, url)
		if err == nil {
			var one int
			err = conn.QueryRow(ctx, "SELECT 1").Scan(&one)
			_ = conn.Close(ctx)
			if err == nil {
				return nil
			}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", max, lastErr)
		case <-tick.C:
		}
	}
}
