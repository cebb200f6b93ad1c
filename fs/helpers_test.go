package fs

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

const testRoot = "/backups"

func newTestService(t *testing.T) (*Service, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 15, 30, 0, time.Local))
	s := NewService(Config{
		Root:  testRoot,
		FS:    afero.NewMemMapFs(),
		Clock: clock,
	})
	return s, clock
}

func writeFile(t *testing.T, s *Service, path, content string) {
	t.Helper()
	if err := afero.WriteFile(s.fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, s *Service, path string) string {
	t.Helper()
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func versionNames(versions []Version) []string {
	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.Name
	}
	return names
}

func strPtr(s string) *string {
	return &s
}
