//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/techsim/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return &Client{rdb: testRDB}
}

func TestStatusRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	runID := "test-run-1"

	status := json.RawMessage(`{"name":"The 74th Games","cycle":3,"alive":["Katniss","Peeta"]}`)
	if err := c.SetStatus(ctx, runID, status); err != nil {
		t.Fatalf("set status: %v", err)
	}

	// stored compressed
	raw := testRDB.Get(ctx, statusKey(runID)).Val()
	if raw == string(status) {
		t.Fatal("expected the stored value to be compressed")
	}

	got, err := c.GetStatus(ctx, runID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	var fetched map[string]any
	if err := json.Unmarshal(got, &fetched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fetched["cycle"].(float64) != 3 {
		t.Fatalf("status round-trip failed: %s", string(got))
	}
}

func TestStatusNotFound(t *testing.T) {
	c := setup(t)
	got, err := c.GetStatus(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("get missing status: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %s", string(got))
	}
}

func TestLockExclusive(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	runID := "test-run-2"

	token, ok, err := c.AcquireLock(ctx, runID, 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := c.AcquireLock(ctx, runID, 5*time.Second); ok {
		t.Fatal("second acquire should fail while held")
	}

	if err := c.ReleaseLock(ctx, runID, "someone-else"); err != nil {
		t.Fatalf("foreign release: %v", err)
	}
	if testRDB.Exists(ctx, lockKey(runID)).Val() != 1 {
		t.Fatal("a foreign token must not release the lock")
	}

	if err := c.ReleaseLock(ctx, runID, token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := c.AcquireLock(ctx, runID, 5*time.Second); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestTimerWithTTL(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	runID := "test-run-3"

	deadline := time.Now().Add(10 * time.Second)
	if err := c.SetTimer(ctx, runID, deadline); err != nil {
		t.Fatalf("set timer: %v", err)
	}

	ttl := testRDB.TTL(ctx, timerKey(runID)).Val()
	if ttl <= 0 || ttl > 11*time.Second {
		t.Fatalf("expected TTL ~10s, got %v", ttl)
	}

	c.ClearTimer(ctx, runID)
	if testRDB.Exists(ctx, timerKey(runID)).Val() != 0 {
		t.Fatal("expected timer key to be deleted")
	}
}

func TestTimerPastDeadline(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	runID := "test-run-4"

	if err := c.SetTimer(ctx, runID, time.Now().Add(-5*time.Second)); err != nil {
		t.Fatalf("set timer past deadline: %v", err)
	}
	ttl := testRDB.TTL(ctx, timerKey(runID)).Val()
	if ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("expected TTL ~1s for past deadline, got %v", ttl)
	}
}

func TestDeleteRunData(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	runID := "test-run-5"

	c.SetStatus(ctx, runID, json.RawMessage(`{}`))
	c.AcquireLock(ctx, runID, time.Minute)
	c.SetTimer(ctx, runID, time.Now().Add(time.Minute))

	if err := c.DeleteRunData(ctx, runID); err != nil {
		t.Fatalf("delete run data: %v", err)
	}
	n := testRDB.Exists(ctx, statusKey(runID), lockKey(runID), timerKey(runID)).Val()
	if n != 0 {
		t.Fatalf("expected all keys removed, %d remain", n)
	}
}
