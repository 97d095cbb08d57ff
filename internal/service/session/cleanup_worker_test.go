package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront-cart/internal/cart"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
	"github.com/vladislavdragonenkov/storefront-cart/internal/storage/memory"
)

var _ domain.SessionSweeper = (*stubSweeper)(nil)

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	repo := &stubSweeper{deleteResults: []int{2, 2, 1}}
	worker := NewCleanupWorker(repo, WithBatchSize(2))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("unexpected deleted total: got=%d want=5", deleted)
	}
	if calls := repo.calls(); calls != 3 {
		t.Fatalf("unexpected delete calls: got=%d want=3", calls)
	}
}

func TestCleanupWorker_DeleteExpired_Error(t *testing.T) {
	t.Parallel()

	repo := &stubSweeper{deleteErrors: []error{errors.New("boom")}}
	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected DeleteExpired error")
	}
	if deleted != 0 {
		t.Fatalf("unexpected deleted total: got=%d want=0", deleted)
	}
}

func TestCleanupWorker_DeleteExpired_CanceledContext(t *testing.T) {
	t.Parallel()

	repo := &stubSweeper{deleteResults: []int{1}}
	worker := NewCleanupWorker(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := worker.DeleteExpired(ctx, time.Now().UTC()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls := repo.calls(); calls != 0 {
		t.Fatalf("repository must not be called after cancel, got %d calls", calls)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubSweeper{deleteResults: []int{0, 0, 0}}

	var (
		mu     sync.Mutex
		sweeps int
	)
	worker := NewCleanupWorker(
		repo,
		WithInterval(5*time.Millisecond),
		WithBatchSize(10),
		WithOnSweep(func(int) {
			mu.Lock()
			sweeps++
			mu.Unlock()
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if calls := repo.calls(); calls == 0 {
		t.Fatal("expected cleanup to be called at least once")
	}
	mu.Lock()
	defer mu.Unlock()
	if sweeps == 0 {
		t.Fatal("expected OnSweep to be called")
	}
}

func TestCleanupWorker_Run_NilRepository(t *testing.T) {
	t.Parallel()

	worker := NewCleanupWorker(nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker with nil repository must return immediately")
	}
}

func TestCleanupWorker_RemovesIdleCarts(t *testing.T) {
	t.Parallel()

	repo := memory.NewSessionRepository()
	repo.GetOrCreate("idle", func() *cart.Store { return cart.NewStore() })

	worker := NewCleanupWorker(repo, WithTTL(time.Hour))

	// Отсечка в будущем: все сессии считаются неактивными.
	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 || repo.Len() != 0 {
		t.Fatalf("expected idle cart to be removed, deleted=%d left=%d", deleted, repo.Len())
	}
}

type stubSweeper struct {
	mu sync.Mutex

	deleteResults []int
	deleteErrors  []error
	callCount     int
}

func (s *stubSweeper) DeleteExpired(_ time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++

	if len(s.deleteErrors) > 0 {
		err := s.deleteErrors[0]
		s.deleteErrors = s.deleteErrors[1:]
		if err != nil {
			return 0, err
		}
	}

	if len(s.deleteResults) == 0 {
		return 0, nil
	}
	result := s.deleteResults[0]
	s.deleteResults = s.deleteResults[1:]
	return result, nil
}

func (s *stubSweeper) Len() int { return 0 }

func (s *stubSweeper) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
