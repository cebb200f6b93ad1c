package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(Config{Path: filepath.Join(t.TempDir(), "app", "flowtrack.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenAppliesMigrations(t *testing.T) {
	d := openTestDB(t)

	version, err := d.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowtrack.sqlite")

	first, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer second.Close()

	version, err := second.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestSettings(t *testing.T) {
	d := openTestDB(t)

	value, err := d.GetSetting(SettingLogLevel)
	require.NoError(t, err)
	assert.Equal(t, "info", value, "default applies before anything is stored")

	require.NoError(t, d.SetSetting(SettingEditorPath, `C:\Program Files\Image-Line\FL Studio\FL64.exe`))
	require.NoError(t, d.SetSetting(SettingEditorPath, "/Applications/FL Studio.app"))

	value, err = d.GetSetting(SettingEditorPath)
	require.NoError(t, err)
	assert.Equal(t, "/Applications/FL Studio.app", value)

	all, err := d.GetAllSettings()
	require.NoError(t, err)
	assert.Equal(t, "/Applications/FL Studio.app", all[SettingEditorPath])
	assert.Equal(t, "info", all[SettingLogLevel])

	assert.True(t, IsKnownSetting(SettingEditorPath))
	assert.False(t, IsKnownSetting("fl_studio_theme"))
}

func TestSyncRunLifecycle(t *testing.T) {
	d := openTestDB(t)

	require.NoError(t, d.InsertSyncRun(SyncRun{ID: "run-1", Kind: "export", Params: "bass,kick", Total: 4, StartedAt: 1000}))
	require.NoError(t, d.UpdateSyncRunProgress("run-1", 2, 4))

	run, err := d.GetSyncRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Equal(t, 2, run.Done)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, d.FinishSyncRun("run-1", RunStatusFailed, 3, "upload failed", "remote"))
	run, err = d.GetSyncRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, 3, run.Done)
	assert.Equal(t, "upload failed", run.Error)
	assert.Equal(t, "remote", run.ErrorKind)
	assert.NotNil(t, run.FinishedAt)

	missing, err := d.GetSyncRun("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListSyncRunsNewestFirst(t *testing.T) {
	d := openTestDB(t)

	require.NoError(t, d.InsertSyncRun(SyncRun{ID: "a", Kind: "export", StartedAt: 1000}))
	require.NoError(t, d.InsertSyncRun(SyncRun{ID: "b", Kind: "import", StartedAt: 2000}))
	require.NoError(t, d.InsertSyncRun(SyncRun{ID: "c", Kind: "scan", StartedAt: 3000}))

	runs, err := d.ListSyncRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestFailInterruptedRuns(t *testing.T) {
	d := openTestDB(t)

	require.NoError(t, d.InsertSyncRun(SyncRun{ID: "stuck", Kind: "export"}))
	require.NoError(t, d.InsertSyncRun(SyncRun{ID: "done", Kind: "export"}))
	require.NoError(t, d.FinishSyncRun("done", RunStatusCompleted, 1, "", ""))

	n, err := d.FailInterruptedRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	run, err := d.GetSyncRun("done")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Empty(t, run.Error)
}
