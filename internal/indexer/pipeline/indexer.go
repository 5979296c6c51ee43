package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/cache"
	"github.com/0x5457/loca/internal/fingerprint"
	"github.com/0x5457/loca/internal/indexer"
	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/parser"
)

// Scanner lists the project-relative source files under root.
type Scanner interface {
	Scan(root string) ([]string, error)
}

type Indexer struct {
	p      parser.Parser
	scan   Scanner
	caches *cache.Store
	coll   indexer.Collection
	logger *zap.Logger
	lock   IndexLock
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(
	p parser.Parser,
	scan Scanner,
	caches *cache.Store,
	coll indexer.Collection,
	logger *zap.Logger,
) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{p: p, scan: scan, caches: caches, coll: coll, logger: logger}
}

// IndexProject brings the collection and both caches in line with the
// files currently under root.
func (i *Indexer) IndexProject(ctx context.Context, root string) (*models.SyncStats, error) {
	if !i.lock.TryAcquire() {
		return nil, indexer.ErrIndexInProgress
	}
	defer i.lock.Release()
	return i.run(ctx, root, func(models.IndexProgress) {})
}

func (i *Indexer) IndexProjectProgress(
	ctx context.Context,
	root string,
) (<-chan models.IndexProgress, <-chan error) {
	progCh := make(chan models.IndexProgress, 64)
	errCh := make(chan error, 1)
	if !i.lock.TryAcquire() {
		errCh <- indexer.ErrIndexInProgress
		close(progCh)
		close(errCh)
		return progCh, errCh
	}
	go func() {
		defer i.lock.Release()
		defer close(errCh)
		defer close(progCh)
		emit := func(p models.IndexProgress) {
			select {
			case progCh <- p:
			case <-ctx.Done():
			}
		}
		if _, err := i.run(ctx, root, emit); err != nil {
			errCh <- err
		}
	}()
	return progCh, errCh
}

// Clear drops the whole collection and resets both caches to empty.
func (i *Indexer) Clear(ctx context.Context) error {
	if !i.lock.TryAcquire() {
		return indexer.ErrIndexInProgress
	}
	defer i.lock.Release()
	if err := i.coll.Clear(ctx); err != nil {
		return err
	}
	if err := i.caches.Save(cache.Files, map[string]string{}); err != nil {
		return err
	}
	return i.caches.Save(cache.Snippets, map[string]string{})
}

// syncState is the cache being rebuilt by one run.
type syncState struct {
	files     map[string]string
	snippets  map[models.CacheKey]string
	unchanged map[string]bool
	toEmbed   []models.Snippet
}

func (i *Indexer) run(
	ctx context.Context,
	root string,
	emit func(models.IndexProgress),
) (*models.SyncStats, error) {
	started := time.Now()
	emit(models.IndexProgress{Stage: models.IndexStageScan})
	files, err := i.scan.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	oldFiles, err := i.caches.LoadFiles()
	if err != nil {
		return nil, err
	}
	oldSnippets, err := i.caches.LoadSnippets()
	if err != nil {
		return nil, err
	}

	stats := &models.SyncStats{Files: len(files)}
	st := &syncState{
		files:     make(map[string]string, len(files)),
		snippets:  make(map[models.CacheKey]string, len(oldSnippets)),
		unchanged: make(map[string]bool),
	}
	for n, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cached, extracted, err := i.syncFile(root, f, oldFiles, oldSnippets, st)
		if err != nil {
			return nil, err
		}
		if cached {
			stats.Cached++
		} else {
			stats.Parsed++
			stats.Extracted += extracted
		}
		emit(models.IndexProgress{
			Stage:        models.IndexStageParse,
			TotalFiles:   len(files),
			ParsedFiles:  n + 1,
			CurrentFile:  f,
			Cached:       cached,
			FileSnippets: extracted,
			Pending:      len(st.toEmbed),
		})
	}

	stale, rescued := reconcile(oldSnippets, st)
	stats.Rescued = rescued
	stats.Deleted = len(stale)
	stats.Added = len(st.toEmbed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		emit(models.IndexProgress{Stage: models.IndexStageDelete, TotalFiles: len(files), Pending: len(stale)})
		if err := i.coll.Delete(ctx, stale); err != nil {
			return nil, err
		}
	}
	if len(st.toEmbed) > 0 {
		emit(models.IndexProgress{Stage: models.IndexStageEmbed, TotalFiles: len(files), Pending: len(st.toEmbed)})
		if err := i.coll.Add(ctx, st.toEmbed); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emit(models.IndexProgress{Stage: models.IndexStageSave, TotalFiles: len(files)})
	if err := i.caches.SaveFiles(st.files); err != nil {
		return nil, err
	}
	if err := i.caches.SaveSnippets(st.snippets); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(started)
	i.logger.Info("index synced",
		zap.String("root", root),
		zap.Int("files", stats.Files),
		zap.Int("cached", stats.Cached),
		zap.Int("parsed", stats.Parsed),
		zap.Int("added", stats.Added),
		zap.Int("deleted", stats.Deleted),
		zap.Int("rescued", stats.Rescued),
		zap.Duration("took", stats.Duration),
	)
	emit(models.IndexProgress{Stage: models.IndexStageDone, TotalFiles: len(files), ParsedFiles: len(files), Stats: stats})
	return stats, nil
}

// syncFile processes one file. Snippets whose code is unchanged are drained
// from old so they are not later taken for stale.
func (i *Indexer) syncFile(
	root, rel string,
	oldFiles map[string]string,
	old map[models.CacheKey]string,
	st *syncState,
) (cached bool, extracted int, err error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return false, 0, fmt.Errorf("read %s: %w", rel, err)
	}
	fileHash := fingerprint.Bytes(content)
	st.files[rel] = fileHash
	st.snippets[models.FileKey(rel)] = fileHash

	if oldFiles[rel] == fileHash && old[models.FileKey(rel)] == fileHash {
		st.unchanged[rel] = true
		i.logger.Debug("file unchanged", zap.String("file", rel))
		return true, 0, nil
	}

	snippets, err := i.p.ParseFile(rel, content)
	if err != nil {
		return false, 0, fmt.Errorf("extract %s: %w", rel, err)
	}
	seen := make(map[models.CacheKey]string, len(snippets))
	for _, s := range snippets {
		key := s.Key()
		if prev, ok := seen[key]; ok {
			if prev == s.Code {
				continue
			}
			return false, 0, fmt.Errorf("%w: %s", indexer.ErrDuplicateSnippet, key)
		}
		seen[key] = s.Code
		extracted++

		h := fingerprint.String(s.Code)
		st.snippets[key] = h
		if prevHash, ok := old[key]; ok && prevHash == h {
			delete(old, key)
			continue
		}
		st.toEmbed = append(st.toEmbed, s)
	}
	i.logger.Debug("file extracted",
		zap.String("file", rel),
		zap.Int("snippets", extracted),
	)
	return false, extracted, nil
}

// reconcile rescues the snippet keys of unchanged files into st and returns
// the sorted ids of the snippets that no longer exist.
func reconcile(old map[models.CacheKey]string, st *syncState) (stale []string, rescued int) {
	for key, h := range old {
		if _, ok := st.snippets[key]; ok {
			continue
		}
		if key.Kind == models.KeyFile {
			continue
		}
		if st.unchanged[key.Path] {
			st.snippets[key] = h
			rescued++
			continue
		}
		stale = append(stale, key.String())
	}
	sort.Strings(stale)
	return stale, rescued
}
