package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x5457/loca/internal/cache"
	"github.com/0x5457/loca/internal/discovery"
	"github.com/0x5457/loca/internal/fingerprint"
	"github.com/0x5457/loca/internal/indexer"
	"github.com/0x5457/loca/internal/indexer/pipeline"
	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/parser"
	"github.com/0x5457/loca/internal/parser/pyparser"
	"github.com/0x5457/loca/internal/parser/tsparser"
)

// fakeCollection records every call and keeps the resulting id set.
type fakeCollection struct {
	mu      sync.Mutex
	ids     map[string]models.Snippet
	adds    [][]models.Snippet
	deletes [][]string
	clears  int
	addErr  error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{ids: map[string]models.Snippet{}}
}

func (c *fakeCollection) Add(_ context.Context, snippets []models.Snippet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return c.addErr
	}
	c.adds = append(c.adds, snippets)
	for _, s := range snippets {
		c.ids[s.ID()] = s
	}
	return nil
}

func (c *fakeCollection) Delete(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, ids)
	for _, id := range ids {
		delete(c.ids, id)
	}
	return nil
}

func (c *fakeCollection) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	c.ids = map[string]models.Snippet{}
	return nil
}

func (c *fakeCollection) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds, c.deletes = nil, nil
}

func (c *fakeCollection) addedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, batch := range c.adds {
		for _, s := range batch {
			out = append(out, s.ID())
		}
	}
	sort.Strings(out)
	return out
}

func (c *fakeCollection) deletedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, batch := range c.deletes {
		out = append(out, batch...)
	}
	sort.Strings(out)
	return out
}

func (c *fakeCollection) storedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type fixture struct {
	root   string
	caches *cache.Store
	coll   *fakeCollection
	idx    *pipeline.Indexer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithParser(t, pyparser.New())
}

func newFixtureWithParser(t *testing.T, p parser.Parser) *fixture {
	t.Helper()
	root := t.TempDir()
	caches := cache.NewStore(filepath.Join(t.TempDir(), "cache"), nil)
	coll := newFakeCollection()
	scan := &discovery.Scanner{Match: func(rel string) bool { return strings.HasSuffix(rel, ".py") }}
	return &fixture{
		root:   root,
		caches: caches,
		coll:   coll,
		idx:    pipeline.New(p, scan, caches, coll, nil),
	}
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func (f *fixture) remove(t *testing.T, rel string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(f.root, filepath.FromSlash(rel))))
}

func (f *fixture) index(t *testing.T) *models.SyncStats {
	t.Helper()
	stats, err := f.idx.IndexProject(context.Background(), f.root)
	require.NoError(t, err)
	return stats
}

func (f *fixture) rawCaches(t *testing.T) (map[string]string, map[string]string) {
	t.Helper()
	files, err := f.caches.Load(cache.Files)
	require.NoError(t, err)
	snippets, err := f.caches.Load(cache.Snippets)
	require.NoError(t, err)
	return files, snippets
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	a := "def f(): pass\n"
	b := "import os\n"
	f.write(t, "a.py", a)
	f.write(t, "b.py", b)

	stats := f.index(t)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 0, stats.Deleted)
	assert.Equal(t, []string{"a.py:1", "b.py:1"}, f.coll.addedIDs())
	assert.Len(t, f.coll.adds, 1)
	assert.Empty(t, f.coll.deletes)

	files, snippets := f.rawCaches(t)
	assert.Equal(t, map[string]string{
		"a.py": fingerprint.String(a),
		"b.py": fingerprint.String(b),
	}, files)
	assert.Equal(t, map[string]string{
		"a.py":   fingerprint.String(a),
		"b.py":   fingerprint.String(b),
		"a.py:1": fingerprint.String("def f(): pass"),
		"b.py:1": fingerprint.String("import os"),
	}, snippets)

	f.coll.reset()
	stats = f.index(t)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 0, stats.Deleted)
	assert.Equal(t, 2, stats.Cached)
	assert.Empty(t, f.coll.adds)
	assert.Empty(t, f.coll.deletes)

	f.coll.reset()
	f.remove(t, "b.py")
	stats = f.index(t)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, []string{"b.py:1"}, f.coll.deletedIDs())
	assert.Empty(t, f.coll.adds)
	assert.Equal(t, []string{"a.py:1"}, f.coll.storedIDs())

	files, snippets = f.rawCaches(t)
	assert.Equal(t, map[string]string{"a.py": fingerprint.String(a)}, files)
	assert.Equal(t, map[string]string{
		"a.py":   fingerprint.String(a),
		"a.py:1": fingerprint.String("def f(): pass"),
	}, snippets)
}

func TestIdempotentCaches(t *testing.T) {
	f := newFixture(t)
	f.write(t, "pkg/mod.py", "import os\n\nX = 1\n\n\nclass A:\n    def m(self):\n        return X\n")
	f.write(t, "main.py", "from pkg import mod\n\n\ndef main():\n    pass\n")
	f.index(t)
	files1, snippets1 := f.rawCaches(t)

	f.coll.reset()
	stats := f.index(t)
	files2, snippets2 := f.rawCaches(t)
	assert.Equal(t, files1, files2)
	assert.Equal(t, snippets1, snippets2)
	assert.Zero(t, stats.Added)
	assert.Zero(t, stats.Deleted)
	assert.Equal(t, 6, stats.Rescued)
	assert.Empty(t, f.coll.adds)
	assert.Empty(t, f.coll.deletes)
}

func TestUnchangedFilePreservation(t *testing.T) {
	f := newFixture(t)
	f.write(t, "keep.py", "def a():\n    pass\n\n\ndef b():\n    pass\n")
	f.write(t, "edit.py", "def c():\n    pass\n")
	f.index(t)
	_, before := f.rawCaches(t)

	f.coll.reset()
	f.write(t, "edit.py", "def c():\n    return 1\n")
	stats := f.index(t)
	assert.Equal(t, 1, stats.Cached)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, []string{"edit.py:1"}, f.coll.addedIDs())
	assert.Empty(t, f.coll.deletes)

	_, after := f.rawCaches(t)
	for _, key := range []string{"keep.py", "keep.py:1", "keep.py:5"} {
		assert.Equal(t, before[key], after[key], key)
	}
	assert.NotEqual(t, before["edit.py:1"], after["edit.py:1"])
}

func TestPartialChangePrecision(t *testing.T) {
	f := newFixture(t)
	f.write(t, "m.py", "import os\n\n\ndef one():\n    return 1\n\n\ndef two():\n    return 2\n\n\nclass C:\n    pass\n")
	f.index(t)
	_, before := f.rawCaches(t)

	f.coll.reset()
	f.write(t, "m.py", "import os\n\n\ndef one():\n    return 1\n\n\ndef two():\n    return 22\n\n\nclass C:\n    pass\n")
	stats := f.index(t)
	assert.Equal(t, []string{"m.py:8"}, f.coll.addedIDs())
	assert.Empty(t, f.coll.deletes)
	assert.Equal(t, 4, stats.Extracted)

	_, after := f.rawCaches(t)
	for _, key := range []string{"m.py:1", "m.py:4", "m.py:12"} {
		assert.Equal(t, before[key], after[key], key)
	}
}

func TestMovedDefinitionIsReplaced(t *testing.T) {
	f := newFixture(t)
	f.write(t, "m.py", "def one():\n    return 1\n")
	f.index(t)

	f.coll.reset()
	f.write(t, "m.py", "\n\ndef one():\n    return 1\n")
	f.index(t)
	assert.Equal(t, []string{"m.py:3"}, f.coll.addedIDs())
	assert.Equal(t, []string{"m.py:1"}, f.coll.deletedIDs())
	assert.Equal(t, []string{"m.py:3"}, f.coll.storedIDs())
}

func TestStaleCleanupOnDeletedFile(t *testing.T) {
	f := newFixture(t)
	f.write(t, "gone.py", "import sys\n\n\ndef g():\n    pass\n\n\nclass G:\n    def m(self):\n        pass\n")
	f.write(t, "stay.py", "Y = 2\n")
	f.index(t)

	f.coll.reset()
	f.remove(t, "gone.py")
	f.index(t)
	assert.Equal(t, []string{"gone.py:1", "gone.py:4", "gone.py:8", "gone.py:9"}, f.coll.deletedIDs())
	require.Len(t, f.coll.deletes, 1)

	files, snippets := f.rawCaches(t)
	for key := range files {
		assert.NotContains(t, key, "gone.py")
	}
	for key := range snippets {
		assert.NotContains(t, key, "gone.py")
	}
	assert.Equal(t, []string{"stay.py:1"}, f.coll.storedIDs())
}

func TestCorruptedCacheRecovery(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.py", "def f(): pass\n")
	f.index(t)

	require.NoError(t, os.WriteFile(f.caches.Path(cache.Files), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(f.caches.Path(cache.Snippets), []byte("[]"), 0o644))

	f.coll.reset()
	stats := f.index(t)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, []string{"a.py:1"}, f.coll.addedIDs())

	files, snippets := f.rawCaches(t)
	assert.Len(t, files, 1)
	assert.Len(t, snippets, 2)
}

// A file cache that agrees with the file but a snippet cache that lost the
// sentinel must not trust the file: its snippets are re-extracted.
func TestFileCacheAloneDoesNotSkipExtraction(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.py", "def f(): pass\n")
	f.index(t)

	require.NoError(t, f.caches.Save(cache.Snippets, map[string]string{}))
	f.coll.reset()
	stats := f.index(t)
	assert.Equal(t, 0, stats.Cached)
	assert.Equal(t, []string{"a.py:1"}, f.coll.addedIDs())

	_, snippets := f.rawCaches(t)
	assert.Contains(t, snippets, "a.py:1")
}

func TestMultiTargetAssignmentCollapsed(t *testing.T) {
	f := newFixture(t)
	f.write(t, "g.py", "a = b = 1\n")
	stats := f.index(t)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, []string{"g.py:1"}, f.coll.addedIDs())
}

type dupParser struct{}

func (dupParser) Extensions() []string { return []string{".py"} }

func (dupParser) ParseFile(rel string, _ []byte) ([]models.Snippet, error) {
	return []models.Snippet{
		{FilePath: rel, LineStart: 1, LineEnd: 1, Code: "x = 1", Kind: models.KindGlobalVariable, Name: "x"},
		{FilePath: rel, LineStart: 1, LineEnd: 1, Code: "y = 2", Kind: models.KindGlobalVariable, Name: "y"},
	}, nil
}

func TestDuplicateSnippetRejected(t *testing.T) {
	f := newFixtureWithParser(t, dupParser{})
	f.write(t, "d.py", "whatever\n")
	_, err := f.idx.IndexProject(context.Background(), f.root)
	require.ErrorIs(t, err, indexer.ErrDuplicateSnippet)
	assert.Empty(t, f.coll.adds)
	files, _ := f.rawCaches(t)
	assert.Empty(t, files)
}

func TestSyntaxErrorAbortsRun(t *testing.T) {
	f := newFixture(t)
	f.write(t, "ok.py", "def f(): pass\n")
	f.index(t)
	_, before := f.rawCaches(t)

	f.coll.reset()
	f.write(t, "bad.py", "def broken(:\n")
	_, err := f.idx.IndexProject(context.Background(), f.root)
	var se *parser.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad.py", se.Path)
	assert.Empty(t, f.coll.adds)

	_, after := f.rawCaches(t)
	assert.Equal(t, before, after)
}

func TestCancelledRunWritesNoCache(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.py", "def f(): pass\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.idx.IndexProject(ctx, f.root)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.coll.adds)

	files, snippets := f.rawCaches(t)
	assert.Empty(t, files)
	assert.Empty(t, snippets)
}

func TestFailedAddWritesNoCache(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.py", "def f(): pass\n")
	f.coll.addErr = assert.AnError

	_, err := f.idx.IndexProject(context.Background(), f.root)
	require.ErrorIs(t, err, assert.AnError)
	files, _ := f.rawCaches(t)
	assert.Empty(t, files)

	f.coll.addErr = nil
	stats := f.index(t)
	assert.Equal(t, 1, stats.Added)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.py", "def f(): pass\n")
	f.index(t)

	require.NoError(t, f.idx.Clear(context.Background()))
	assert.Equal(t, 1, f.coll.clears)
	assert.Empty(t, f.coll.storedIDs())
	files, snippets := f.rawCaches(t)
	assert.Empty(t, files)
	assert.Empty(t, snippets)

	f.coll.reset()
	stats := f.index(t)
	assert.Equal(t, 1, stats.Added)
}

func TestIndexProjectProgress(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.py", "def f(): pass\n")
	f.write(t, "b.py", "import os\n")
	f.index(t)
	f.write(t, "b.py", "\nimport sys\n")

	progCh, errCh := f.idx.IndexProjectProgress(context.Background(), f.root)
	var events []models.IndexProgress
	for p := range progCh {
		events = append(events, p)
	}
	require.NoError(t, <-errCh)

	var stages []models.IndexStage
	for _, e := range events {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []models.IndexStage{
		models.IndexStageScan,
		models.IndexStageParse,
		models.IndexStageParse,
		models.IndexStageDelete,
		models.IndexStageEmbed,
		models.IndexStageSave,
		models.IndexStageDone,
	}, stages)

	assert.Equal(t, "a.py", events[1].CurrentFile)
	assert.True(t, events[1].Cached)
	assert.Equal(t, "b.py", events[2].CurrentFile)
	assert.False(t, events[2].Cached)
	assert.Equal(t, 1, events[2].FileSnippets)
	assert.Equal(t, 2, events[2].ParsedFiles)

	done := events[len(events)-1]
	require.NotNil(t, done.Stats)
	assert.Equal(t, 1, done.Stats.Added)
	assert.Equal(t, 1, done.Stats.Deleted)
}

// blockingCollection holds Add until released so a second run overlaps.
type blockingCollection struct {
	*fakeCollection
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCollection) Add(ctx context.Context, s []models.Snippet) error {
	close(c.entered)
	<-c.release
	return c.fakeCollection.Add(ctx, s)
}

func TestOverlappingRunsRejected(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("def f(): pass\n"), 0o644))
	coll := &blockingCollection{
		fakeCollection: newFakeCollection(),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	idx := pipeline.New(
		pyparser.New(),
		discovery.New(func(rel string) bool { return strings.HasSuffix(rel, ".py") }),
		cache.NewStore(t.TempDir(), nil),
		coll,
		nil,
	)

	progCh, errCh := idx.IndexProjectProgress(context.Background(), root)
	<-coll.entered

	_, err := idx.IndexProject(context.Background(), root)
	require.ErrorIs(t, err, indexer.ErrIndexInProgress)
	require.ErrorIs(t, idx.Clear(context.Background()), indexer.ErrIndexInProgress)

	close(coll.release)
	for range progCh {
	}
	require.NoError(t, <-errCh)

	_, err = idx.IndexProject(context.Background(), root)
	require.NoError(t, err)
}

func TestIndexLock(t *testing.T) {
	var l pipeline.IndexLock
	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire())
	l.Release()
	require.True(t, l.TryAcquire())
}

func TestMixedLanguagesWithSameLineDefinitions(t *testing.T) {
	reg := parser.NewRegistry(pyparser.New(), tsparser.New())
	root := t.TempDir()
	caches := cache.NewStore(filepath.Join(t.TempDir(), "cache"), nil)
	coll := newFakeCollection()
	f := &fixture{
		root:   root,
		caches: caches,
		coll:   coll,
		idx:    pipeline.New(reg, discovery.New(reg.Supports), caches, coll, nil),
	}
	f.write(t, "a.py", "def f(): pass\n")
	f.write(t, "other.ts", "export function other() {}\n")
	f.write(t, "point.ts", "class Point { constructor(public x: number) {} norm() { return this.x } }\n"+
		"function a() {} function b() {}\n"+
		"export const k = 1; export function g() {}\n")
	f.write(t, "types.d.ts", "declare const x: number;\n")

	stats := f.index(t)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, []string{"a.py:1", "other.ts:1", "point.ts:1", "point.ts:2", "point.ts:3"}, f.coll.storedIDs())

	f.coll.reset()
	stats = f.index(t)
	assert.Equal(t, 3, stats.Cached)
	assert.Empty(t, f.coll.adds)
	assert.Empty(t, f.coll.deletes)
}
