package lazy

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/eventbus"
	"github.com/iota-uz/tenancy/pkg/httpapi"
)

// Loader builds the module's handler on first use. Loaders are resolved at
// startup from an explicit table; there is no filesystem-path import.
type Loader func(ctx context.Context) (http.Handler, error)

// ErrNoEntrypoint marks a loader that completed without producing a handler.
var ErrNoEntrypoint = errors.New("module has no usable entry point")

const (
	CodeCircuitOpen    = "router.circuit_open"
	CodeCooldown       = "router.cooldown"
	CodeImportFailed   = "router.import_failed"
	CodeInitFailed     = "router.init_failed"
	CodeModuleDisabled = "router.module_disabled"
)

// ModuleLoadedEvent is published on every successful load.
type ModuleLoadedEvent struct {
	Module   string
	Duration time.Duration
}

// ModuleLoadFailedEvent is published on every failed load attempt.
type ModuleLoadFailedEvent struct {
	Module    string
	Err       error
	FailCount int
}

type MountOptions struct {
	States *StateRegistry
	Loader Loader
	Logger *logrus.Logger
	Bus    eventbus.EventBus

	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	CircuitLimit    int
	CircuitCooldown time.Duration
	LoadTimeout     time.Duration

	// HotReload reloads the module when a file under SourceDir is newer than
	// the last successful load. Development only; keep off in production.
	HotReload bool
	SourceDir string

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Mount is the per-module request facade: it loads the module's handler on
// first use, guarded by a circuit breaker with exponential backoff, and
// serves all later traffic through the cached handler.
type Mount struct {
	name   string
	states *StateRegistry
	loader Loader
	logger *logrus.Logger
	bus    eventbus.EventBus
	opts   MountOptions
	now    func() time.Time

	mu      sync.Mutex
	handler http.Handler
	pending *loadCall
}

// loadCall is the single in-flight load; concurrent requests wait on done
// instead of starting their own attempt.
type loadCall struct {
	done    chan struct{}
	handler http.Handler
	err     error
}

func NewMount(name string, opts MountOptions) *Mount {
	if opts.Loader == nil {
		panic(fmt.Sprintf("lazy: mount %q has no loader", name))
	}
	if opts.States == nil {
		opts.States = NewStateRegistry()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	opts.States.Ensure(name)
	return &Mount{
		name:   name,
		states: opts.States,
		loader: opts.Loader,
		logger: opts.Logger,
		bus:    opts.Bus,
		opts:   opts,
		now:    now,
	}
}

func (m *Mount) Name() string {
	return m.name
}

// State returns a snapshot of the module's load state.
func (m *Mount) State() LoadState {
	state, _ := m.states.Status(m.name)
	return state
}

func (m *Mount) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if tc, err := composables.UseTenant(r.Context()); err == nil {
		if !tc.ModuleEnabled(m.name) {
			rejectionsTotal.WithLabelValues(m.name, "disabled").Inc()
			m.respondState(w, http.StatusNotFound, CodeModuleDisabled,
				fmt.Sprintf("module %q is not enabled for tenant %q", m.name, tc.Slug))
			return
		}
	}

	handler := m.readyHandler()
	if handler == nil {
		var err error
		handler, err = m.load(r.Context())
		if err != nil {
			m.respondLoadError(w, err)
			return
		}
	}

	m.serve(handler, w, r)
}

// serve delegates to the loaded module, recovering panics at the mount
// boundary. A module that loaded fine but misbehaves on one request is not a
// load failure.
func (m *Mount) serve(handler http.Handler, w http.ResponseWriter, r *http.Request) {
	defer func() {
		if recovered := recover(); recovered != nil {
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{
					"module": m.name,
					"path":   r.URL.Path,
					"panic":  recovered,
				}).Error("module handler panicked")
			}
			_ = httpapi.WriteError(w, http.StatusInternalServerError, "",
				"internal server error", map[string]any{"module": m.name})
		}
	}()
	handler.ServeHTTP(w, r)
}

// readyHandler returns the cached handler, first running the development
// hot-reload check. Nil means a load is required.
func (m *Mount) readyHandler() http.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler == nil {
		return nil
	}
	if m.opts.HotReload && m.sourceChangedLocked() {
		if m.logger != nil {
			m.logger.WithField("module", m.name).Info("module source changed, discarding cached handler")
		}
		m.handler = nil
		m.states.Update(m.name, func(s *LoadState) {
			s.Status = StatusIdle
		})
		return nil
	}
	return m.handler
}

// sourceChangedLocked reports whether any file under SourceDir is newer than
// the last successful load.
func (m *Mount) sourceChangedLocked() bool {
	if m.opts.SourceDir == "" {
		return false
	}
	state, ok := m.states.Status(m.name)
	if !ok || state.LastLoadedAt.IsZero() {
		return false
	}
	newest := newestModTime(m.opts.SourceDir)
	return newest.After(state.LastLoadedAt)
}

func newestModTime(dir string) time.Time {
	var newest time.Time
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}

// load implements the state machine: fast-fail inside a cooldown, coalesce
// concurrent attempts into one, and account the outcome.
func (m *Mount) load(ctx context.Context) (http.Handler, error) {
	m.mu.Lock()

	if m.handler != nil {
		handler := m.handler
		m.mu.Unlock()
		return handler, nil
	}

	state, _ := m.states.Status(m.name)
	if (state.Status == StatusFailed || state.Status == StatusCircuitOpen) &&
		m.now().Before(state.CooldownUntil) {
		m.mu.Unlock()
		if state.Status == StatusCircuitOpen {
			return nil, &cooldownError{state: state, circuit: true}
		}
		return nil, &cooldownError{state: state, circuit: false}
	}

	if m.pending != nil {
		call := m.pending
		m.mu.Unlock()
		<-call.done
		return call.handler, call.err
	}

	call := &loadCall{done: make(chan struct{})}
	m.pending = call
	m.states.Update(m.name, func(s *LoadState) {
		s.Status = StatusLoading
		s.Attempts++
	})
	m.mu.Unlock()

	started := m.now()
	handler, err := m.runLoader(ctx)
	duration := m.now().Sub(started)

	m.mu.Lock()
	call.handler = handler
	call.err = err
	if err == nil {
		m.handler = handler
	}
	// Settle before clearing pending so no request can start a fresh attempt
	// ahead of the outcome being recorded.
	m.settle(duration, err)
	m.pending = nil
	m.mu.Unlock()
	close(call.done)

	return handler, err
}

func (m *Mount) runLoader(ctx context.Context) (http.Handler, error) {
	loadCtx := ctx
	if m.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, m.opts.LoadTimeout)
		defer cancel()
	}

	handler, err := m.loader(loadCtx)
	if err == nil && loadCtx.Err() != nil {
		err = errors.Wrap(loadCtx.Err(), "module load timed out")
	}
	if err == nil && handler == nil {
		err = ErrNoEntrypoint
	}
	if err != nil {
		return nil, err
	}
	return handler, nil
}

// settle records the attempt's outcome in the state registry and publishes
// the matching event.
func (m *Mount) settle(duration time.Duration, err error) {
	if err == nil {
		m.states.Update(m.name, func(s *LoadState) {
			s.Status = StatusReady
			s.FailCount = 0
			s.CooldownUntil = time.Time{}
			s.LastError = ""
			s.LastLoadedAt = m.now()
			s.LoadMs = duration.Milliseconds()
		})
		loadsTotal.WithLabelValues(m.name, "success").Inc()
		loadDuration.WithLabelValues(m.name).Observe(duration.Seconds())
		if m.logger != nil {
			m.logger.WithFields(logrus.Fields{
				"module": m.name,
				"loadMs": duration.Milliseconds(),
			}).Info("module loaded")
		}
		if m.bus != nil {
			m.bus.Publish(&ModuleLoadedEvent{Module: m.name, Duration: duration})
		}
		return
	}

	var failCount int
	m.states.Update(m.name, func(s *LoadState) {
		s.FailCount++
		failCount = s.FailCount
		s.LastError = err.Error()
		if s.FailCount >= m.opts.CircuitLimit {
			s.Status = StatusCircuitOpen
			s.CooldownUntil = m.now().Add(m.opts.CircuitCooldown)
		} else {
			s.Status = StatusFailed
			s.CooldownUntil = m.now().Add(m.backoff(s.FailCount))
		}
	})
	loadsTotal.WithLabelValues(m.name, "failure").Inc()
	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"module":    m.name,
			"failCount": failCount,
		}).WithError(err).Error("module load failed")
	}
	if m.bus != nil {
		m.bus.Publish(&ModuleLoadFailedEvent{Module: m.name, Err: err, FailCount: failCount})
	}
}

// backoff computes min(base * 2^(failCount-1), max).
func (m *Mount) backoff(failCount int) time.Duration {
	delay := m.opts.RetryBaseDelay
	for i := 1; i < failCount; i++ {
		delay *= 2
		if delay >= m.opts.RetryMaxDelay {
			return m.opts.RetryMaxDelay
		}
	}
	if delay > m.opts.RetryMaxDelay {
		return m.opts.RetryMaxDelay
	}
	return delay
}

// cooldownError is returned on the fast-fail path while a cooldown is live.
type cooldownError struct {
	state   LoadState
	circuit bool
}

func (e *cooldownError) Error() string {
	if e.circuit {
		return "module circuit open"
	}
	return "module cooling down after failed load"
}

func (m *Mount) respondLoadError(w http.ResponseWriter, err error) {
	var cd *cooldownError
	if errors.As(err, &cd) {
		if cd.circuit {
			rejectionsTotal.WithLabelValues(m.name, "circuit_open").Inc()
			m.respondState(w, http.StatusServiceUnavailable, CodeCircuitOpen,
				fmt.Sprintf("module %q is temporarily disabled after repeated load failures", m.name))
			return
		}
		rejectionsTotal.WithLabelValues(m.name, "cooldown").Inc()
		m.respondState(w, http.StatusServiceUnavailable, CodeCooldown,
			fmt.Sprintf("module %q failed to load recently, retry pending", m.name))
		return
	}
	if errors.Is(err, ErrNoEntrypoint) {
		m.respondState(w, http.StatusInternalServerError, CodeInitFailed,
			fmt.Sprintf("module %q loaded but exposes no handler", m.name))
		return
	}
	m.respondState(w, http.StatusInternalServerError, CodeImportFailed,
		fmt.Sprintf("module %q failed to load: %v", m.name, err))
}

// respondState writes the error envelope with the module name and a state
// snapshot for operational diagnosis.
func (m *Mount) respondState(w http.ResponseWriter, status int, code, message string) {
	state, _ := m.states.Status(m.name)
	_ = httpapi.WriteError(w, status, code, message, map[string]any{
		"module": m.name,
		"state":  state,
	})
}
