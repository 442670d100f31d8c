package session

import (
	"context"
	"fmt"
	"testing"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		_ = mgr.WithLock(ctx, InstanceKey(int64(i)), func(context.Context) error { return nil })
	}

	// Every entry must be released once its last holder leaves.
	if n := len(mgr.locks); n != 0 {
		t.Errorf("Lock leak detected: %d locks remaining after %d operations", n, count)
	}
}

func TestManager_LockReleasedOnError(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()

	err := mgr.WithLock(ctx, StartKey(1, "u1"), func(context.Context) error {
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("expected error from fn")
	}
	if n := len(mgr.locks); n != 0 {
		t.Errorf("expected no locks after failed fn, got %d", n)
	}
}
