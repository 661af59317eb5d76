package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLeaseIsExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.LockKey("cron", "production")

	first, err := AcquireLease(ctx, client, key, time.Minute)
	if err != nil || first == nil {
		t.Fatalf("expected first lease, got %v err=%v", first, err)
	}
	second, err := AcquireLease(ctx, client, key, time.Minute)
	if err != nil || second != nil {
		t.Fatalf("expected key to be held, got %v err=%v", second, err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
	second, err = AcquireLease(ctx, client, key, time.Minute)
	if err != nil || second == nil {
		t.Fatalf("expected key to be free after release, got %v err=%v", second, err)
	}
}

func TestLeaseLeavesTakenOverKey(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	lease, err := AcquireLease(ctx, client, "garantie:lock:x", time.Minute)
	if err != nil || lease == nil {
		t.Fatalf("acquire: %v", err)
	}
	// simulate expiry followed by another holder
	mock.data["garantie:lock:x"] = "someone-else"
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if value := mock.data["garantie:lock:x"]; value != "someone-else" {
		t.Fatalf("foreign owner was removed, value=%q", value)
	}
	if mock.scriptCalls != 1 {
		t.Fatalf("release should be a single compare-and-delete, got %d script calls", mock.scriptCalls)
	}
}

func TestLeaseReleaseSurfacesStoreErrors(t *testing.T) {
	ctx := context.Background()
	lease, err := AcquireLease(ctx, failingDelete{}, "garantie:lock:y", time.Minute)
	if err != nil || lease == nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lease.Release(ctx); err == nil {
		t.Fatal("expected release error")
	}
}

type failingDelete struct{}

func (failingDelete) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return true, nil
}

func (failingDelete) DeleteIfValue(context.Context, string, string) (bool, error) {
	return false, errors.New("connection reset")
}
