package reconcile

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

const testRoot = "/backups"

type fixture struct {
	repo   *fs.Service
	fsys   afero.Fs
	remote *mirror.MemoryClient
	engine *Engine
}

func newFixture(t *testing.T, client mirror.Client) *fixture {
	t.Helper()
	fsys := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 15, 30, 0, time.Local))
	repo := fs.NewService(fs.Config{Root: testRoot, FS: fsys, Clock: clock})

	remote := mirror.NewMemoryClient()
	if client == nil {
		client = remote
	}
	engine := NewEngine(Config{Clock: clock}, repo, client)
	t.Cleanup(engine.Stop)
	return &fixture{repo: repo, fsys: fsys, remote: remote, engine: engine}
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fsys, path, []byte(content), 0644))
}

func (f *fixture) read(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(f.fsys, path)
	require.NoError(t, err)
	return string(data)
}

// remoteTitles lists the file titles stored under <root>/<project>
func remoteTitles(t *testing.T, c mirror.Client, project string) []string {
	t.Helper()
	ctx := context.Background()
	root, err := c.FindFolder(ctx, DefaultRootName, "")
	require.NoError(t, err)
	require.NotNil(t, root)
	folder, err := c.FindFolder(ctx, project, root.ID)
	require.NoError(t, err)
	require.NotNil(t, folder)
	files, err := c.ListFiles(ctx, folder.ID)
	require.NoError(t, err)

	titles := make([]string, len(files))
	for i, file := range files {
		titles[i] = file.Title
	}
	sort.Strings(titles)
	return titles
}

type eventLog struct {
	mu       sync.Mutex
	events   []Event
	terminal chan Event
}

func newEventLog() *eventLog {
	return &eventLog{terminal: make(chan Event, 4)}
}

func (l *eventLog) sink(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	if ev.Kind != EventProgress {
		l.terminal <- ev
	}
}

func (l *eventLog) wait(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-l.terminal:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run to finish")
		return Event{}
	}
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	inserted []db.SyncRun
	progress int
	finished map[string]string
	errKinds map[string]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{finished: map[string]string{}, errKinds: map[string]string{}}
}

func (r *fakeRecorder) InsertSyncRun(run db.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, run)
	return nil
}

func (r *fakeRecorder) UpdateSyncRunProgress(id string, done, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
	return nil
}

func (r *fakeRecorder) FinishSyncRun(id, status string, done int, errMsg, errKind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[id] = status
	r.errKinds[id] = errKind
	return nil
}

// blockingClient holds every upload until release is closed
type blockingClient struct {
	*mirror.MemoryClient
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *blockingClient) UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*mirror.File, error) {
	c.once.Do(func() { close(c.started) })
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.MemoryClient.UploadFile(ctx, parentID, title, content)
}

// failingClient rejects uploads after the first ok ones
type failingClient struct {
	*mirror.MemoryClient
	ok    int
	calls int
}

func (c *failingClient) UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*mirror.File, error) {
	c.calls++
	if c.calls > c.ok {
		return nil, errors.New("quota exceeded")
	}
	return c.MemoryClient.UploadFile(ctx, parentID, title, content)
}

func TestExportSkipsTransientOverwrites(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/backups/bass/bass.flp", "present")
	f.write(t, "/backups/bass/bass_2024-02-28_09-00.flp", "old")
	f.write(t, "/backups/bass/bass_2024-02-28_09-00.txt", "first take")
	f.write(t, "/backups/bass/Backup 3 (overwritten at 2h15)", "autosave")
	f.write(t, "/backups/bass/Backup (overwritten at 14h05).flp", "autosave")

	count, err := f.engine.Export(context.Background(), []string{"bass"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, []string{
		"bass.flp",
		"bass_2024-02-28_09-00.flp",
		"bass_2024-02-28_09-00.txt",
	}, remoteTitles(t, f.remote, "bass"))
}

func TestExportTwiceDoublesRemoteFiles(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/backups/bass/bass.flp", "present")
	f.write(t, "/backups/bass/bass.txt", "groove")

	_, err := f.engine.Export(context.Background(), []string{"bass"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, f.remote.FileCount())

	_, err = f.engine.Export(context.Background(), []string{"bass"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, f.remote.FileCount())

	roots, err := f.remote.ListFolders(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, roots, 1, "root folder is reused")
	projects, err := f.remote.ListFolders(context.Background(), roots[0].ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1, "project folder is reused")
}

func TestExportProgressIsOrdered(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/backups/kick/kick.flp", "k")
	f.write(t, "/backups/snare/snare.flp", "s")
	f.write(t, "/backups/snare/snare.txt", "crack")

	var done []int
	var totals []int
	count, err := f.engine.Export(context.Background(), []string{"snare", "kick", "snare", " "}, func(d, total int) {
		done = append(done, d)
		totals = append(totals, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{1, 2, 3}, done)
	assert.Equal(t, []int{3, 3, 3}, totals)
}

func TestExportRequiresProjects(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.Export(context.Background(), nil, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.engine.StartExport([]string{"", "  "})
	assert.True(t, apperrors.IsValidation(err))
}

func TestExportMissingProjectUploadsNothing(t *testing.T) {
	f := newFixture(t, nil)

	count, err := f.engine.Export(context.Background(), []string{"ghost"}, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.remote.FileCount())
}

func TestStartExportEmitsEventsAndRecordsRun(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/backups/bass/bass.flp", "present")
	f.write(t, "/backups/bass/bass.txt", "groove")

	events := newEventLog()
	recorder := newFakeRecorder()
	f.engine.SetSink(events.sink)
	f.engine.SetRecorder(recorder)

	runID, err := f.engine.StartExport([]string{"bass"})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	final := events.wait(t)
	assert.Equal(t, EventCompleted, final.Kind)
	assert.Equal(t, 2, final.Count)
	assert.Equal(t, runID, final.RunID)

	all := events.snapshot()
	require.Len(t, all, 3)
	assert.Equal(t, EventProgress, all[0].Kind)
	assert.Equal(t, 1, all[0].Done)
	assert.Equal(t, 2, all[1].Done)
	assert.Equal(t, 2, all[1].Total)

	f.engine.Wait()
	assert.Nil(t, f.engine.Active())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.inserted, 1)
	assert.Equal(t, "export", recorder.inserted[0].Kind)
	assert.Equal(t, "bass", recorder.inserted[0].Params)
	assert.Equal(t, 2, recorder.progress)
	assert.Equal(t, db.RunStatusCompleted, recorder.finished[runID])
}

func TestSecondRunIsRejectedWhileActive(t *testing.T) {
	client := &blockingClient{
		MemoryClient: mirror.NewMemoryClient(),
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	f := newFixture(t, client)
	f.write(t, "/backups/bass/bass.flp", "present")

	events := newEventLog()
	f.engine.SetSink(events.sink)

	runID, err := f.engine.StartExport([]string{"bass"})
	require.NoError(t, err)
	<-client.started

	active := f.engine.Active()
	require.NotNil(t, active)
	assert.Equal(t, runID, active.ID)
	assert.Equal(t, RunExport, active.Kind)

	_, err = f.engine.StartImportRemote()
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Contains(t, err.Error(), "a sync run is already in progress")

	close(client.release)
	assert.Equal(t, EventCompleted, events.wait(t).Kind)

	_, err = f.engine.StartImportRemote()
	require.NoError(t, err)
	assert.Equal(t, EventCompleted, events.wait(t).Kind)
}

func TestFailedRunReportsOnceAndStops(t *testing.T) {
	client := &failingClient{MemoryClient: mirror.NewMemoryClient(), ok: 1}
	f := newFixture(t, client)
	f.write(t, "/backups/bass/bass.flp", "a")
	f.write(t, "/backups/bass/bass.txt", "b")
	f.write(t, "/backups/bass/bass_2024-02-28_09-00.flp", "c")

	events := newEventLog()
	recorder := newFakeRecorder()
	f.engine.SetSink(events.sink)
	f.engine.SetRecorder(recorder)

	runID, err := f.engine.StartExport([]string{"bass"})
	require.NoError(t, err)

	final := events.wait(t)
	assert.Equal(t, EventFailed, final.Kind)
	assert.True(t, apperrors.IsRemote(final.Err))
	assert.Equal(t, 1, final.Done)

	f.engine.Wait()
	assert.Equal(t, 2, client.calls, "no uploads after the first failure")
	assert.Equal(t, 1, client.FileCount(), "partial progress is not rolled back")

	var failures int
	for _, ev := range events.snapshot() {
		if ev.Kind == EventFailed {
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, db.RunStatusFailed, recorder.finished[runID])
	assert.Equal(t, "remote", recorder.errKinds[runID])
}

func seedRemote(t *testing.T, c *mirror.MemoryClient) {
	t.Helper()
	ctx := context.Background()
	root, err := c.CreateFolder(ctx, DefaultRootName, "")
	require.NoError(t, err)

	synth, err := c.CreateFolder(ctx, "synth", root.ID)
	require.NoError(t, err)
	for title, content := range map[string]string{
		"synth.flp":                  "present",
		"synth_2024-02-01_08-30.flp": "older",
		"synth_2024-02-01_08-30.txt": "pluck idea",
		"cover.png":                  "png",
		"SYNTH_OLD.FLP":              "upper",
		"readme.TXT":                 "upper",
		"../escape.flp":              "nope",
	} {
		_, err := c.UploadFile(ctx, synth.ID, title, strings.NewReader(content))
		require.NoError(t, err)
	}

	_, err = c.CreateFolder(ctx, "..", root.ID)
	require.NoError(t, err)

	// Outside the root, ignored
	_, err = c.UploadFile(ctx, "", "stray.flp", strings.NewReader("x"))
	require.NoError(t, err)
}

func TestImportRemoteDownloadsProjectFiles(t *testing.T) {
	f := newFixture(t, nil)
	seedRemote(t, f.remote)

	var done []int
	count, err := f.engine.ImportRemote(context.Background(), func(d, total int) { done = append(done, d) })
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{1, 2, 3}, done)

	assert.Equal(t, "present", f.read(t, "/backups/synth/synth.flp"))
	assert.Equal(t, "older", f.read(t, "/backups/synth/synth_2024-02-01_08-30.flp"))
	assert.Equal(t, "pluck idea", f.read(t, "/backups/synth/synth_2024-02-01_08-30.txt"))

	exists, err := afero.Exists(f.fsys, "/backups/synth/cover.png")
	require.NoError(t, err)
	assert.False(t, exists)
	for _, name := range []string{"SYNTH_OLD.FLP", "readme.TXT"} {
		exists, err = afero.Exists(f.fsys, "/backups/synth/"+name)
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
	exists, err = afero.Exists(f.fsys, "/backups/escape.flp")
	require.NoError(t, err)
	assert.False(t, exists)

	versions, err := f.repo.ListVersions("synth")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].Present)
	assert.True(t, versions[1].HasNote)
}

func TestImportRemoteWithoutRootImportsNothing(t *testing.T) {
	f := newFixture(t, nil)

	count, err := f.engine.ImportRemote(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	projects, err := f.repo.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestScanLocalCreatesSnapshotWithNote(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/incoming/lead.flp", "lead bytes")
	f.write(t, "/incoming/lead.txt", "warm supersaw lead\n\n  detune 12 cents\n")

	count, err := f.engine.ScanLocal(context.Background(), "/incoming", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	versions, err := f.repo.ListVersions("lead")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.False(t, versions[0].Present)
	assert.Equal(t, "lead_2024-03-01_10-15.flp", versions[0].Name)
	assert.False(t, f.repo.HasPresent("lead"))

	note, err := f.repo.ReadNote("lead", versions[0].Name)
	require.NoError(t, err)
	assert.Equal(t, "warm supersaw lead\n\n  detune 12 cents\n", note)
	assert.Equal(t, "lead bytes", f.read(t, "/backups/lead/lead_2024-03-01_10-15.flp"))
}

func TestScanLocalSameNameGetsDistinctSnapshots(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/incoming/a/pad.flp", "first")
	f.write(t, "/incoming/b/pad.flp", "second")
	f.write(t, "/incoming/notes.txt", "unrelated")

	count, err := f.engine.ScanLocal(context.Background(), "/incoming", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, "first", f.read(t, "/backups/pad/pad_2024-03-01_10-15.flp"))
	assert.Equal(t, "second", f.read(t, "/backups/pad/pad_2024-03-01_10-16.flp"))

	note, err := f.repo.ReadNote("pad", "pad_2024-03-01_10-16.flp")
	require.NoError(t, err)
	assert.Equal(t, fs.ScannedNote, note)
}

func TestScanLocalMatchesExtensionsExactly(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/incoming/pad.flp", "pad")
	f.write(t, "/incoming/LOUD.FLP", "loud")
	f.write(t, "/incoming/pad.TXT", "not a note")

	count, err := f.engine.ScanLocal(context.Background(), "/incoming", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	projects, err := f.repo.ListProjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"pad"}, projects)

	note, err := f.repo.ReadNote("pad", "pad_2024-03-01_10-15.flp")
	require.NoError(t, err)
	assert.Equal(t, fs.ScannedNote, note)
}

func TestScanLocalRejectsBadSource(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/incoming/lead.flp", "x")

	_, err := f.engine.StartScanLocal("/nowhere")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.engine.StartScanLocal("/incoming/lead.flp")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.engine.StartScanLocal("")
	assert.True(t, apperrors.IsValidation(err))
	assert.Nil(t, f.engine.Active())
}

func TestStartScanLocalCompletes(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "/incoming/lead.flp", "x")

	events := newEventLog()
	f.engine.SetSink(events.sink)

	_, err := f.engine.StartScanLocal("/incoming")
	require.NoError(t, err)

	final := events.wait(t)
	assert.Equal(t, EventCompleted, final.Kind)
	assert.Equal(t, RunScan, final.Run)
	assert.Equal(t, 1, final.Count)
}
