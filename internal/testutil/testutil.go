// Package testutil holds shared helpers and data factories for tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uwuntu/keyhub/internal/model"
	"github.com/uwuntu/keyhub/internal/repository"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// NewTestRepository opens a migrated SQLite database in a temp dir.
// It is closed when the test ends.
func NewTestRepository(t testing.TB) *repository.Repository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "uwuntu-test.db")
	repo, err := repository.Open(context.Background(), repository.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Int64

// UniqueEmail returns an email address unique within the test binary.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@example.com", prefix, time.Now().UnixNano(), seq.Add(1))
}

// NewTestUser returns an unsaved user with sensible defaults.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	return &model.User{
		Firstname: "Test",
		Lastname:  "User",
		Email:     UniqueEmail("user"),
		CreatedAt: time.Now().UTC(),
	}
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
