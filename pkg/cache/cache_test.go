package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chainopt/chainopt/pkg/lp"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "alpha" {
		t.Fatalf("Get(a) = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry should be gone after Delete")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should be a miss")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry should be a silent miss, got hit %v err %v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("entries should be gone after Clear")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestKeyers(t *testing.T) {
	k := NewDefaultKeyer()
	k1 := k.SolutionKey("abc", "simplex")
	k2 := k.SolutionKey("abc", "glpk")
	if k1 == k2 {
		t.Error("different solvers should produce different keys")
	}
	if !strings.HasPrefix(k1, "solution:") {
		t.Errorf("unexpected key %s", k1)
	}

	scoped := NewScopedKeyer(nil, "planning:")
	if got := scoped.SolutionKey("abc", "simplex"); got != "planning:"+k1 {
		t.Errorf("ScopedKeyer key = %s, want prefixed %s", got, k1)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Millisecond
	ctx := context.Background()

	calls := 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return nil }); err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	calls = 0
	err := RetryWithBackoff(ctx, func() error { calls++; return ErrNetwork })
	if err != ErrNetwork {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func testModel(t *testing.T, rhs float64) *lp.Model {
	t.Helper()
	m := lp.NewModel("cached", lp.Minimize)
	x := lp.NewContinuous("x")
	if err := m.AddConstraint(lp.NewConstraint("need", lp.Sum(x), lp.GE, rhs)); err != nil {
		t.Fatal(err)
	}
	if err := m.SetObjective(lp.Sum(x).Scale(2)); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSolverCachesSolutions(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	calls := 0
	inner := lp.SolverFunc(func(_ context.Context, m *lp.Model) (*lp.Solution, error) {
		calls++
		rhs := m.Constraints()[0].RHS
		return &lp.Solution{Status: lp.StatusOptimal, Objective: 2 * rhs, Values: []float64{rhs}}, nil
	})
	s := NewSolver(inner, c, SolverOptions{SolverID: "fake"})

	for range 3 {
		sol, err := s.Solve(ctx, testModel(t, 4))
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		if sol.Objective != 8 || sol.Values[0] != 4 {
			t.Errorf("unexpected solution %+v", sol)
		}
	}
	if calls != 1 {
		t.Errorf("identical models should be solved once, got %d calls", calls)
	}

	if _, err := s.Solve(ctx, testModel(t, 5)); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if calls != 2 {
		t.Errorf("a changed model must be solved again, got %d calls", calls)
	}

	other := NewSolver(inner, c, SolverOptions{SolverID: "other"})
	if _, err := other.Solve(ctx, testModel(t, 4)); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if calls != 3 {
		t.Errorf("solver IDs must not share entries, got %d calls", calls)
	}
}

func TestSolverObjectiveConstant(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	calls := 0
	inner := lp.SolverFunc(func(_ context.Context, m *lp.Model) (*lp.Solution, error) {
		calls++
		values := []float64{m.Constraints()[0].RHS}
		return &lp.Solution{Status: lp.StatusOptimal, Objective: lp.Evaluate(m, values), Values: values}, nil
	})
	s := NewSolver(inner, c, SolverOptions{SolverID: "fake"})

	withFixed := func(fixed float64) *lp.Model {
		m := testModel(t, 4)
		if err := m.SetObjective(m.Objective().Add(lp.Const(fixed))); err != nil {
			t.Fatal(err)
		}
		return m
	}

	for _, tt := range []struct {
		fixed, want float64
	}{
		{100, 108},
		{1000, 1008},
		{100, 108},
	} {
		sol, err := s.Solve(ctx, withFixed(tt.fixed))
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		if sol.Objective != tt.want {
			t.Errorf("fixed cost %v: objective = %v, want %v", tt.fixed, sol.Objective, tt.want)
		}
	}
	if calls != 2 {
		t.Errorf("models differing only in their constant must not share entries, got %d calls", calls)
	}

	// A hit reports the objective of the model asked for, not the stored one.
	m := withFixed(100)
	hash, err := ModelHash(m)
	if err != nil {
		t.Fatalf("ModelHash: %v", err)
	}
	stale, err := json.Marshal(lp.Solution{Status: lp.StatusOptimal, Objective: -1, Values: []float64{4}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, NewDefaultKeyer().SolutionKey(hash, "fake"), stale, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	sol, err := s.Solve(ctx, m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if calls != 2 || sol.Objective != 108 {
		t.Errorf("hit = (%d calls, objective %v), want (2, 108)", calls, sol.Objective)
	}
}

func TestSolverCachesInfeasibility(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	calls := 0
	inner := lp.SolverFunc(func(context.Context, *lp.Model) (*lp.Solution, error) {
		calls++
		return lp.Infeasible("no"), nil
	})
	s := NewSolver(inner, c, SolverOptions{})

	for range 2 {
		sol, err := s.Solve(ctx, testModel(t, 1))
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		if sol.Status != lp.StatusInfeasible {
			t.Errorf("status = %v, want infeasible", sol.Status)
		}
	}
	if calls != 1 {
		t.Errorf("infeasible outcome should be cached, got %d calls", calls)
	}
}

func TestSolverDoesNotCacheFaults(t *testing.T) {
	ctx := context.Background()
	calls := 0
	inner := lp.SolverFunc(func(context.Context, *lp.Model) (*lp.Solution, error) {
		calls++
		return nil, ErrNetwork
	})
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	s := NewSolver(inner, c, SolverOptions{})

	for range 2 {
		if _, err := s.Solve(ctx, testModel(t, 1)); err != ErrNetwork {
			t.Errorf("Solve error = %v, want ErrNetwork", err)
		}
	}
	if calls != 2 {
		t.Errorf("faults must not be cached, got %d calls", calls)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("CHAINOPT_TEST_REDIS")
	if addr == "" {
		t.Skip("CHAINOPT_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisOptions{Addr: addr, Prefix: "chainopt-test:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := "k-" + Hash([]byte(t.Name()))[:8]
	if err := c.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "v" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Errorf("Get after Delete = hit %v, err %v", hit, err)
	}
}
