package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	t.Parallel()

	mutex := NewKeyedMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		guard   sync.Mutex
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := mutex.Lock(ctx, "page:1")
			if err != nil {
				t.Errorf("Lock returned error: %v", err)
				return
			}

			guard.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			guard.Unlock()

			time.Sleep(time.Millisecond)

			guard.Lock()
			inside--
			guard.Unlock()

			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", maxSeen)
	}
	if mutex.Len() != 0 {
		t.Fatalf("expected entries to be released, got %d", mutex.Len())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()

	mutex := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := mutex.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock a returned error: %v", err)
	}
	defer unlockA()

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	unlockB, err := mutex.Lock(timeoutCtx, "b")
	if err != nil {
		t.Fatalf("expected key b to be free while a is held, got %v", err)
	}
	unlockB()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	t.Parallel()

	mutex := NewKeyedMutex()

	unlock, err := mutex.Lock(context.Background(), "busy")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := mutex.Lock(ctx, "busy"); !eris.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()

	if mutex.Len() != 0 {
		t.Fatalf("expected no entries after release, got %d", mutex.Len())
	}
}

func TestNewRedisLockerRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisLocker(RedisOptions{}); err == nil {
		t.Fatalf("expected error when client is missing")
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisClient(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty URL")
	}
	if _, err := NewRedisClient(context.Background(), "http://not-redis"); err == nil {
		t.Fatalf("expected error for non redis scheme")
	}
}
