package fs

import "sync"

// projectLock serializes mutations of the same project while letting
// different projects change concurrently
type projectLock struct {
	locks sync.Map // map[string]*sync.Mutex
}

// acquire returns the locked mutex for a project
func (pl *projectLock) acquire(project string) *sync.Mutex {
	muInterface, _ := pl.locks.LoadOrStore(project, &sync.Mutex{})
	mu := muInterface.(*sync.Mutex)
	mu.Lock()
	return mu
}

// cleanup drops all lock entries
func (pl *projectLock) cleanup() {
	pl.locks.Range(func(key, _ any) bool {
		pl.locks.Delete(key)
		return true
	})
}
