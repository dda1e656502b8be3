package lazy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/pkg/composables"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func testOptions(clock *fakeClock, loader Loader) MountOptions {
	return MountOptions{
		States:          NewStateRegistry(),
		Loader:          loader,
		RetryBaseDelay:  time.Second,
		RetryMaxDelay:   30 * time.Second,
		CircuitLimit:    5,
		CircuitCooldown: 5 * time.Minute,
		LoadTimeout:     10 * time.Second,
		Now:             clock.Now,
	}
}

func doRequest(mount *Mount) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mount.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/items", nil))
	return rec
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Meta    struct {
		Module string    `json:"module"`
		State  LoadState `json:"state"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestMount_LoadsOnceAndServes(t *testing.T) {
	clock := newFakeClock()
	loads := 0
	mount := NewMount("inventory", testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loads++
		return okHandler(), nil
	}))

	for i := 0; i < 3; i++ {
		rec := doRequest(mount)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, loads)

	state := mount.State()
	assert.Equal(t, StatusReady, state.Status)
	assert.Equal(t, 1, state.Attempts)
	assert.Equal(t, 0, state.FailCount)
	assert.False(t, state.LastLoadedAt.IsZero())
}

func TestMount_ImportFailureResponse(t *testing.T) {
	clock := newFakeClock()
	mount := NewMount("inventory", testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		return nil, assert.AnError
	}))

	rec := doRequest(mount)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, CodeImportFailed, env.Code)
	assert.Equal(t, "inventory", env.Meta.Module)
	assert.Equal(t, StatusFailed, env.Meta.State.Status)
	assert.Equal(t, 1, env.Meta.State.FailCount)
	assert.NotEmpty(t, env.Meta.State.LastError)
}

func TestMount_CooldownFastFail(t *testing.T) {
	clock := newFakeClock()
	loads := 0
	mount := NewMount("inventory", testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loads++
		return nil, assert.AnError
	}))

	doRequest(mount)
	require.Equal(t, 1, loads)

	// Inside the 1s backoff window no new attempt is made.
	rec := doRequest(mount)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeCooldown, decodeEnvelope(t, rec).Code)
	assert.Equal(t, 1, loads)

	// Once the cooldown elapses a fresh attempt runs.
	clock.Advance(1100 * time.Millisecond)
	doRequest(mount)
	assert.Equal(t, 2, loads)
}

func TestMount_CircuitThreshold(t *testing.T) {
	clock := newFakeClock()
	loads := 0
	opts := testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loads++
		return nil, assert.AnError
	})
	opts.CircuitLimit = 3
	mount := NewMount("inventory", opts)

	// Failures 1 and 2: failed, not circuitOpen.
	doRequest(mount)
	assert.Equal(t, StatusFailed, mount.State().Status)
	clock.Advance(2 * time.Second)
	doRequest(mount)
	assert.Equal(t, StatusFailed, mount.State().Status, "(N-1)th failure must not open the circuit")

	// Third consecutive failure trips the circuit.
	clock.Advance(5 * time.Second)
	doRequest(mount)
	state := mount.State()
	assert.Equal(t, StatusCircuitOpen, state.Status)
	assert.Equal(t, clock.Now().Add(5*time.Minute), state.CooldownUntil)

	// Requests inside the circuit window never reach the loader.
	rec := doRequest(mount)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeCircuitOpen, decodeEnvelope(t, rec).Code)
	assert.Equal(t, 3, loads)
}

func TestMount_BackoffGrowth(t *testing.T) {
	clock := newFakeClock()
	opts := testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		return nil, assert.AnError
	})
	opts.RetryBaseDelay = time.Second
	opts.RetryMaxDelay = 4 * time.Second
	opts.CircuitLimit = 10
	mount := NewMount("inventory", opts)

	expected := []time.Duration{
		time.Second,     // k=1: base
		2 * time.Second, // k=2: base*2
		4 * time.Second, // k=3: base*4
		4 * time.Second, // k=4: clamped at max
		4 * time.Second, // k=5: still clamped
	}
	for _, want := range expected {
		doRequest(mount)
		state := mount.State()
		assert.Equal(t, StatusFailed, state.Status)
		assert.Equal(t, want, state.CooldownUntil.Sub(clock.Now()))
		clock.Advance(want + time.Millisecond)
	}
}

func TestMount_CoalescesConcurrentLoads(t *testing.T) {
	clock := newFakeClock()
	entered := make(chan struct{})
	release := make(chan struct{})
	var loads int
	var loadMu sync.Mutex
	opts := testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loadMu.Lock()
		loads++
		first := loads == 1
		loadMu.Unlock()
		if first {
			close(entered)
		}
		<-release
		return okHandler(), nil
	})
	mount := NewMount("inventory", opts)

	const workers = 8
	codes := make(chan int, workers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := doRequest(mount)
		codes <- rec.Code
	}()
	<-entered

	// The load is in flight; the rest must wait on it, not start their own.
	for i := 1; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := doRequest(mount)
			codes <- rec.Code
		}()
	}
	// Give the waiters a moment to reach the pending handle.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, 1, loads, "exactly one load attempt for %d concurrent requests", workers)
	assert.Equal(t, 1, mount.State().Attempts)
}

func TestMount_InitFailedWhenLoaderReturnsNoHandler(t *testing.T) {
	clock := newFakeClock()
	mount := NewMount("inventory", testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		return nil, nil
	}))

	rec := doRequest(mount)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, CodeInitFailed, env.Code)
	// A missing entry point still counts toward the failure accounting.
	assert.Equal(t, 1, mount.State().FailCount)
	assert.Equal(t, StatusFailed, mount.State().Status)
}

func TestMount_LoadTimeoutCountsAsFailure(t *testing.T) {
	clock := newFakeClock()
	opts := testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	opts.LoadTimeout = 20 * time.Millisecond
	mount := NewMount("inventory", opts)

	rec := doRequest(mount)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeImportFailed, decodeEnvelope(t, rec).Code)
	assert.Equal(t, 1, mount.State().FailCount)
}

func TestMount_RuntimePanicDoesNotAffectLoadState(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	mount := NewMount("inventory", testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				panic("boom")
			}
			w.WriteHeader(http.StatusOK)
		}), nil
	}))

	rec := doRequest(mount)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	state := mount.State()
	assert.Equal(t, StatusReady, state.Status, "a runtime panic is not a load failure")
	assert.Equal(t, 0, state.FailCount)

	// The cached handler keeps serving.
	rec = doRequest(mount)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMount_HotReloadDisabledIgnoresSourceChanges(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "module.go")

	loads := 0
	opts := testOptions(newFakeClock(), func(ctx context.Context) (http.Handler, error) {
		loads++
		return okHandler(), nil
	})
	opts.Now = time.Now
	opts.SourceDir = dir
	mount := NewMount("inventory", opts)

	doRequest(mount)
	require.Equal(t, 1, loads)

	touchFuture(t, filepath.Join(dir, "module.go"))
	doRequest(mount)
	assert.Equal(t, 1, loads, "hot reload disabled: source changes must not trigger a reload")
}

func TestMount_HotReloadReloadsOnceOnNewerSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "module.go")

	clock := &fakeClock{t: time.Now()}
	loads := 0
	opts := testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loads++
		return okHandler(), nil
	})
	opts.HotReload = true
	opts.SourceDir = dir
	mount := NewMount("inventory", opts)

	doRequest(mount)
	require.Equal(t, 1, loads)
	loadedAt := mount.State().LastLoadedAt

	// Source untouched: no reload.
	doRequest(mount)
	require.Equal(t, 1, loads)

	// Edit the source after the load, then let time pass.
	clock.Advance(time.Hour)
	touchAt(t, filepath.Join(dir, "module.go"), loadedAt.Add(30*time.Minute))

	rec := doRequest(mount)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, loads, "exactly one reload after the source changed")

	// LastLoadedAt is now past the mtime again; no further reloads.
	doRequest(mount)
	assert.Equal(t, 2, loads)
}

func TestMount_DisabledModuleRejectedForTenant(t *testing.T) {
	clock := newFakeClock()
	loads := 0
	mount := NewMount("billing", testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loads++
		return okHandler(), nil
	}))

	record := tenant.New("acme",
		tenant.WithDomain("acme.example.com"),
		tenant.WithEnabledModules([]string{"inventory"}),
	)
	req := httptest.NewRequest(http.MethodGet, "/api/billing/invoices", nil)
	req = req.WithContext(composables.WithTenant(req.Context(), composables.NewTenantContext(record)))
	rec := httptest.NewRecorder()
	mount.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeModuleDisabled, decodeEnvelope(t, rec).Code)
	assert.Equal(t, 0, loads, "disabled modules must not be loaded")
}

// End-to-end scenario: circuit limit 5, base backoff 1000ms.
func TestMount_EndToEndCircuitScenario(t *testing.T) {
	clock := newFakeClock()
	loads := 0
	failing := true
	opts := testOptions(clock, func(ctx context.Context) (http.Handler, error) {
		loads++
		if failing {
			return nil, assert.AnError
		}
		return okHandler(), nil
	})
	opts.RetryBaseDelay = 1000 * time.Millisecond
	opts.CircuitLimit = 5
	mount := NewMount("inventory", opts)

	// Five consecutive load failures; each attempt answers import_failed.
	for i := 0; i < 5; i++ {
		rec := doRequest(mount)
		require.Equal(t, http.StatusInternalServerError, rec.Code, "attempt %d", i+1)
		require.Equal(t, CodeImportFailed, decodeEnvelope(t, rec).Code, "attempt %d", i+1)
		clock.Advance(opts.RetryMaxDelay + time.Second)
	}
	require.Equal(t, 5, loads)
	require.Equal(t, StatusCircuitOpen, mount.State().Status)

	// Rewind inside the circuit window: request 6 is rejected outright.
	clock.Advance(-opts.RetryMaxDelay)
	rec := doRequest(mount)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeCircuitOpen, decodeEnvelope(t, rec).Code)
	assert.Equal(t, 5, loads)

	// After the circuit cooldown a fresh attempt runs and succeeds.
	failing = false
	clock.Advance(opts.CircuitCooldown + opts.RetryMaxDelay)
	rec = doRequest(mount)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, loads)
	assert.Equal(t, StatusReady, mount.State().Status)
	assert.Equal(t, 0, mount.State().FailCount)
}

func writeSource(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("package inventory\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func touchFuture(t *testing.T, path string) {
	t.Helper()
	touchAt(t, path, time.Now().Add(time.Hour))
}

func touchAt(t *testing.T, path string, ts time.Time) {
	t.Helper()
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
