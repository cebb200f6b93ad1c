package reconcile

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

var logger = log.GetLogger("Reconcile")

// Engine runs exports, remote imports and local scans, one at a time
type Engine struct {
	cfg    Config
	repo   Repository
	mirror mirror.Client
	clock  clockwork.Clock

	sinkMu   sync.RWMutex
	sink     Sink
	recorder Recorder

	running atomic.Bool
	mu      sync.Mutex
	active  *RunStatus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine syncing repo with client
func NewEngine(cfg Config, repo Repository, client mirror.Client) *Engine {
	if cfg.RootName == "" {
		cfg.RootName = DefaultRootName
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:    cfg,
		repo:   repo,
		mirror: client,
		clock:  cfg.Clock,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetSink sets the receiver of run events
func (e *Engine) SetSink(sink Sink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.sink = sink
}

// SetRecorder enables run history
func (e *Engine) SetRecorder(r Recorder) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.recorder = r
}

// StartExport uploads the given projects in the background
func (e *Engine) StartExport(projects []string) (string, error) {
	selected := normalizeProjects(projects)
	if len(selected) == 0 {
		return "", apperrors.Validation("startExport", "select at least one project to export")
	}
	return e.launch(RunExport, joinParams(selected), func(ctx context.Context, progress ProgressFunc) (int, error) {
		return e.Export(ctx, selected, progress)
	})
}

// StartImportRemote downloads the mirror into the repository in the background
func (e *Engine) StartImportRemote() (string, error) {
	return e.launch(RunImport, "", e.ImportRemote)
}

// StartScanLocal turns every .flp under source into snapshots in the background
func (e *Engine) StartScanLocal(source string) (string, error) {
	if err := e.checkScanSource(source); err != nil {
		return "", err
	}
	return e.launch(RunScan, source, func(ctx context.Context, progress ProgressFunc) (int, error) {
		return e.ScanLocal(ctx, source, progress)
	})
}

// Active returns a copy of the running run's status, or nil
func (e *Engine) Active() *RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	status := *e.active
	return &status
}

// Wait blocks until no run is in flight
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Stop cancels the active run and waits for it to finish
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	logger.Info().Msg("reconciliation engine stopped")
}

type runFunc func(ctx context.Context, progress ProgressFunc) (int, error)

func (e *Engine) launch(kind RunKind, params string, run runFunc) (string, error) {
	if !e.running.CompareAndSwap(false, true) {
		return "", apperrors.Precondition("start"+string(kind), "a sync run is already in progress")
	}

	id := uuid.NewString()
	status := &RunStatus{ID: id, Kind: kind, StartedAt: e.clock.Now()}
	e.mu.Lock()
	e.active = status
	e.mu.Unlock()

	if r := e.getRecorder(); r != nil {
		if err := r.InsertSyncRun(db.SyncRun{ID: id, Kind: string(kind), Params: params, StartedAt: status.StartedAt.UnixMilli()}); err != nil {
			logger.Warn().Err(err).Str("run", id).Msg("failed to record sync run")
		}
	}

	logger.Info().Str("run", id).Str("kind", string(kind)).Str("params", params).Msg("sync run started")

	e.wg.Add(1)
	go e.execute(id, kind, run)
	return id, nil
}

func (e *Engine) execute(id string, kind RunKind, run runFunc) {
	defer e.wg.Done()

	done := 0
	count, err := run(e.ctx, func(d, total int) {
		done = d
		e.mu.Lock()
		e.active.Done, e.active.Total = d, total
		e.mu.Unlock()
		if r := e.getRecorder(); r != nil {
			if err := r.UpdateSyncRunProgress(id, d, total); err != nil {
				logger.Warn().Err(err).Str("run", id).Msg("failed to record sync progress")
			}
		}
		e.emit(Event{RunID: id, Run: kind, Kind: EventProgress, Done: d, Total: total})
	})

	// Free the slot before the terminal event so its receiver may start a new run
	e.mu.Lock()
	e.active = nil
	e.mu.Unlock()
	e.running.Store(false)

	r := e.getRecorder()
	if err != nil {
		kindName := string(apperrors.KindOf(err))
		logger.Error().Err(err).Str("run", id).Str("kind", string(kind)).Int("done", done).Msg("sync run failed")
		if r != nil {
			if recErr := r.FinishSyncRun(id, db.RunStatusFailed, done, err.Error(), kindName); recErr != nil {
				logger.Warn().Err(recErr).Str("run", id).Msg("failed to record sync failure")
			}
		}
		e.emit(Event{RunID: id, Run: kind, Kind: EventFailed, Done: done, Err: err})
		return
	}

	logger.Info().Str("run", id).Str("kind", string(kind)).Int("count", count).Msg("sync run completed")
	if r != nil {
		if recErr := r.FinishSyncRun(id, db.RunStatusCompleted, count, "", ""); recErr != nil {
			logger.Warn().Err(recErr).Str("run", id).Msg("failed to record sync completion")
		}
	}
	e.emit(Event{RunID: id, Run: kind, Kind: EventCompleted, Done: done, Count: count})
}

func (e *Engine) emit(ev Event) {
	e.sinkMu.RLock()
	sink := e.sink
	e.sinkMu.RUnlock()
	if sink != nil {
		sink(ev)
	}
}

func (e *Engine) getRecorder() Recorder {
	e.sinkMu.RLock()
	defer e.sinkMu.RUnlock()
	return e.recorder
}

// remoteErr keeps kinds already assigned and marks the rest as remote failures
func remoteErr(op string, err error, format string, args ...any) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.Remote(op, err, format, args...)
}

func noProgress(int, int) {}
