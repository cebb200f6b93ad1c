package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"FLOWTRACK_ROOT", "FLOWTRACK_DATA_DIR", "MIRROR_PROVIDER", "MIRROR_ROOT_NAME", "FLOWTRACK_WATCH", "PORT"} {
		t.Setenv(key, "")
	}

	c := load()

	if c.RepoRoot != "./backups" {
		t.Errorf("RepoRoot = %q, want ./backups", c.RepoRoot)
	}
	if c.MirrorRootName != "FLowTrack Projects" {
		t.Errorf("MirrorRootName = %q", c.MirrorRootName)
	}
	if c.MirrorProvider != "drive" {
		t.Errorf("MirrorProvider = %q, want drive", c.MirrorProvider)
	}
	if !c.WatchEnabled {
		t.Error("expected watching to be enabled by default")
	}
	if c.Port != 12345 {
		t.Errorf("Port = %d, want 12345", c.Port)
	}
	if c.DatabasePath != "data/flowtrack.sqlite" {
		t.Errorf("DatabasePath = %q", c.DatabasePath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FLOWTRACK_ROOT", "/music/backups")
	t.Setenv("MIRROR_PROVIDER", "OSS")
	t.Setenv("FLOWTRACK_WATCH", "false")
	t.Setenv("PORT", "not-a-number")

	c := load()

	if c.RepoRoot != "/music/backups" {
		t.Errorf("RepoRoot = %q", c.RepoRoot)
	}
	if c.MirrorProvider != "oss" {
		t.Errorf("MirrorProvider = %q, want oss", c.MirrorProvider)
	}
	if c.WatchEnabled {
		t.Error("expected watching to be disabled")
	}
	if c.Port != 12345 {
		t.Errorf("invalid PORT should fall back to default, got %d", c.Port)
	}
}
