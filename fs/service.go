package fs

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
)

// Size of the buffered channel for change notifications
const changeNotificationBufferSize = 100

// Service owns the repository root: listings, lifecycle operations and notes
type Service struct {
	cfg   Config
	fs    afero.Fs
	clock clockwork.Clock

	listingFilter *PathFilter
	locks         *projectLock
	watcher       *watcher

	// Bumped on every mutation; readers compare it to detect staleness
	generation atomic.Uint64

	changeHandler ChangeHandler
	handlerMu     sync.RWMutex
	changeChan    chan ChangeEvent
	running       atomic.Bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewService creates a new repository service
func NewService(cfg Config) *Service {
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	s := &Service{
		cfg:           cfg,
		fs:            cfg.FS,
		clock:         cfg.Clock,
		listingFilter: NewPathFilter(ExcludeForListing),
		locks:         &projectLock{},
		stopChan:      make(chan struct{}),
		changeChan:    make(chan ChangeEvent, changeNotificationBufferSize),
	}

	if cfg.WatchEnabled {
		if _, ok := cfg.FS.(*afero.OsFs); ok {
			s.watcher = newWatcher(s)
		} else {
			log.Warn().Msg("filesystem watching requires the OS file system, disabled")
		}
	}

	return s
}

// Start begins background processes (change notifications, watching)
func (s *Service) Start() error {
	log.Info().Str("root", s.cfg.Root).Msg("starting repository service")

	if err := s.fs.MkdirAll(s.cfg.Root, 0755); err != nil {
		return err
	}

	s.running.Store(true)
	s.wg.Add(1)
	go s.changeNotificationWorker()

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			return err
		}
	}

	log.Info().Msg("repository service started")
	return nil
}

// Stop gracefully shuts down the service
func (s *Service) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	log.Info().Msg("stopping repository service")

	if s.watcher != nil {
		s.watcher.Stop()
	}
	close(s.stopChan)
	s.wg.Wait()

	s.locks.cleanup()

	log.Info().Msg("repository service stopped")
	return nil
}

// Root returns the repository root directory
func (s *Service) Root() string {
	return s.cfg.Root
}

// Fs returns the file system the repository lives on
func (s *Service) Fs() afero.Fs {
	return s.fs
}

// Clock returns the clock used for snapshot timestamps
func (s *Service) Clock() clockwork.Clock {
	return s.clock
}

// Generation returns a counter that changes whenever the repository changes
func (s *Service) Generation() uint64 {
	return s.generation.Load()
}

// ProjectDir returns the folder of a project
func (s *Service) ProjectDir(project string) string {
	return filepath.Join(s.cfg.Root, project)
}

// VersionPath returns the path of a version file
func (s *Service) VersionPath(project, version string) string {
	return filepath.Join(s.cfg.Root, project, version)
}

// SetChangeHandler registers a callback for repository changes
func (s *Service) SetChangeHandler(handler ChangeHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.changeHandler = handler
}

// changed bumps the generation and queues a notification
func (s *Service) changed(event ChangeEvent) {
	s.generation.Add(1)

	if !s.running.Load() {
		return
	}

	select {
	case s.changeChan <- event:
	default:
		log.Warn().
			Str("project", event.Project).
			Str("op", event.Op).
			Msg("change notification queue full, event dropped")
	}
}

// changeNotificationWorker delivers change events sequentially
func (s *Service) changeNotificationWorker() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.changeChan:
			s.dispatch(event)

		case <-s.stopChan:
			// Drain remaining events before exiting
			for {
				select {
				case event := <-s.changeChan:
					s.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) dispatch(event ChangeEvent) {
	s.handlerMu.RLock()
	handler := s.changeHandler
	s.handlerMu.RUnlock()

	if handler != nil {
		handler(event)
	}
}
