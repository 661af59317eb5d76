package rendering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

// State is the bootstrap state of a Loader.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateVerified State = "verified"
	StateFailed   State = "failed"
)

// Bootstrap steps named in ENGINE_BOOTSTRAP_ERROR messages.
const (
	StepLoadCore       = "load_core"
	StepLoadExtension  = "load_table_extension"
	StepSettle         = "settle"
	StepManualAttach   = "manual_attach"
	StepVerifyInstance = "verify_instance"
)

const (
	bootstrapFlightKey  = "engine"
	defaultSettleDelay  = 100 * time.Millisecond
	defaultPollInterval = 200 * time.Millisecond
	defaultPollRetries  = 5
)

var errExtensionMissing = errors.New("table extension not attached")

// Modules loads the pieces the engine is assembled from.
type Modules interface {
	LoadCore(ctx context.Context) (*Engine, error)
	// LoadTableExtension starts attaching the table layout. Attachment may
	// complete after the call returns.
	LoadTableExtension(ctx context.Context, engine *Engine) error
	// AttachTableExtension attaches the table layout synchronously.
	AttachTableExtension(engine *Engine) error
}

// BootstrapRecorder observes bootstrap outcomes.
type BootstrapRecorder interface {
	IncBootstrap(result string)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// LoaderConfig tunes the bootstrap timings. Zero values use the defaults; a
// negative SettleDelay skips the settle pause.
type LoaderConfig struct {
	SettleDelay  time.Duration
	PollInterval time.Duration
	PollRetries  int
}

// LoaderParams wires a Loader.
type LoaderParams struct {
	Modules Modules
	Config  LoaderConfig
	Sleep   SleepFunc
	Metrics BootstrapRecorder
	Logger  *logger.Logger
}

// Loader owns the process-wide rendering engine. Ready bootstraps it at most
// once at a time; concurrent callers share the in-flight attempt.
type Loader struct {
	modules Modules
	cfg     LoaderConfig
	sleep   SleepFunc
	metrics BootstrapRecorder
	logg    *logger.Logger

	group singleflight.Group

	mu     sync.RWMutex
	state  State
	engine *Engine
	loads  int
}

// NewLoader constructs an unloaded Loader.
func NewLoader(params LoaderParams) (*Loader, error) {
	if params.Modules == nil {
		return nil, errors.New("engine modules required")
	}
	cfg := params.Config
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	} else if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollRetries <= 0 {
		cfg.PollRetries = defaultPollRetries
	}
	sleep := params.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Loader{
		modules: params.Modules,
		cfg:     cfg,
		sleep:   sleep,
		metrics: params.Metrics,
		logg:    params.Logger,
		state:   StateUnloaded,
	}, nil
}

// Ready returns a verified engine, loading it if needed. An engine that was
// verified before is checked again on a fresh document; if the check fails
// the engine is discarded and fully reloaded.
func (l *Loader) Ready(ctx context.Context) (*Engine, error) {
	if engine := l.current(); engine != nil {
		err := verifyInstance(engine)
		if err == nil {
			return engine, nil
		}
		l.warn(ctx, "rendering engine verification regressed, reloading", err)
		l.discard(engine)
	}

	result, err, _ := l.group.Do(bootstrapFlightKey, func() (any, error) {
		if engine := l.current(); engine != nil {
			if verifyInstance(engine) == nil {
				return engine, nil
			}
			l.discard(engine)
		}
		return l.load(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return result.(*Engine), nil
}

// State reports the current bootstrap state.
func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Loads reports how many load sequences have started.
func (l *Loader) Loads() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loads
}

// Reset drops the cached engine so the next Ready performs a full load.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine = nil
	l.state = StateUnloaded
}

func (l *Loader) current() *Engine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state != StateVerified {
		return nil
	}
	return l.engine
}

func (l *Loader) discard(engine *Engine) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine == engine {
		l.engine = nil
		l.state = StateUnloaded
	}
}

func (l *Loader) load(ctx context.Context) (*Engine, error) {
	l.mu.Lock()
	l.state = StateLoading
	l.engine = nil
	l.loads++
	l.mu.Unlock()

	engine, step, err := l.assemble(ctx)
	if err != nil {
		l.mu.Lock()
		l.state = StateFailed
		l.engine = nil
		l.mu.Unlock()
		l.record("failure")
		l.warn(ctx, fmt.Sprintf("rendering engine bootstrap failed at %s", step), err)
		return nil, pkgerrors.Wrapf(pkgerrors.CodeEngineBootstrap, err, "rendering engine bootstrap failed at step %s", step).
			WithDetails(map[string]any{"step": step})
	}

	l.mu.Lock()
	l.state = StateVerified
	l.engine = engine
	l.mu.Unlock()
	l.record("success")
	return engine, nil
}

func (l *Loader) assemble(ctx context.Context) (*Engine, string, error) {
	engine, err := l.modules.LoadCore(ctx)
	if err != nil {
		return nil, StepLoadCore, err
	}
	if engine == nil {
		return nil, StepLoadCore, errors.New("core module returned no engine")
	}
	if err := l.modules.LoadTableExtension(ctx, engine); err != nil {
		return nil, StepLoadExtension, err
	}
	if err := l.sleep(ctx, l.cfg.SettleDelay); err != nil {
		return nil, StepSettle, err
	}

	if err := l.poll(ctx, engine); err != nil {
		l.warn(ctx, "table extension not attached after polling, attaching manually", err)
		if err := l.modules.AttachTableExtension(engine); err != nil {
			return nil, StepManualAttach, err
		}
		if !engine.Has(TableExtension) {
			return nil, StepManualAttach, errExtensionMissing
		}
	}

	if err := verifyInstance(engine); err != nil {
		return nil, StepVerifyInstance, err
	}
	return engine, "", nil
}

func (l *Loader) poll(ctx context.Context, engine *Engine) error {
	backoff := retry.WithMaxRetries(uint64(l.cfg.PollRetries), retry.NewConstant(l.cfg.PollInterval))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if engine.Has(TableExtension) {
			return nil
		}
		return retry.RetryableError(errExtensionMissing)
	})
}

// verifyInstance draws a one-cell table on a throwaway document. Presence in
// the registry is not enough: the method has to work on an instance.
func verifyInstance(engine *Engine) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("table layout panicked: %v", r)
		}
	}()

	doc := engine.NewDocument(Metadata{Title: "bootstrap check"})
	if !doc.CanDrawTables() {
		return ErrTableUnavailable
	}
	doc.AddPage()
	if err := doc.Table(Table{Columns: []Column{{Header: "check"}}, Rows: [][]string{{"ok"}}}); err != nil {
		return fmt.Errorf("table layout failed on instance: %w", err)
	}
	return doc.Err()
}

func (l *Loader) record(result string) {
	if l.metrics != nil {
		l.metrics.IncBootstrap(result)
	}
}

func (l *Loader) warn(ctx context.Context, msg string, err error) {
	if l.logg == nil {
		return
	}
	ctx = l.logg.WithField(ctx, "error", err.Error())
	l.logg.Warn(ctx, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
