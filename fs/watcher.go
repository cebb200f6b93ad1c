package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
)

// watcher notices edits made outside the service (the DAW saving the
// present version, files copied in by hand) and reports them per project
type watcher struct {
	service   *Service
	watcher   *fsnotify.Watcher
	filter    *PathFilter
	debouncer *debouncer
	stopChan  chan struct{}
}

func newWatcher(service *Service) *watcher {
	w := &watcher{
		service:  service,
		filter:   NewPathFilter(ExcludeForWatch),
		stopChan: make(chan struct{}),
	}
	w.debouncer = newDebouncer(service.clock, DefaultDebounceDelay, w.projectChanged)
	return w
}

// Start begins watching the root and every project folder
func (w *watcher) Start() error {
	var err error
	w.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	root := w.service.cfg.Root
	log.Info().Str("root", root).Msg("starting filesystem watcher")

	if err := w.watcher.Add(root); err != nil {
		log.Error().Err(err).Msg("failed to watch repository root")
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && !w.filter.IsExcludedName(e.Name()) {
			w.add(filepath.Join(root, e.Name()))
		}
	}

	w.service.wg.Add(1)
	go w.eventLoop()

	log.Info().Msg("filesystem watcher started")
	return nil
}

// Stop stops the debouncer first so no event fires during shutdown
func (w *watcher) Stop() {
	w.debouncer.Stop()
	close(w.stopChan)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *watcher) add(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("failed to watch directory")
	}
}

func (w *watcher) eventLoop() {
	defer w.service.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.service.cfg.Root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	if w.filter.IsExcluded(rel) {
		return
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	project := parts[0]

	// New project folders get watched too
	if len(parts) == 1 && event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.add(event.Name)
		}
	}

	w.debouncer.Queue(project)
}

// projectChanged runs once a project's burst of events has settled
func (w *watcher) projectChanged(project string) {
	log.Debug().Str("project", project).Msg("detected external change")
	w.service.changed(ChangeEvent{Project: project, Op: "external", Trigger: "fsnotify"})
}
