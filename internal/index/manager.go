package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"

	"github.com/opsmantis/mantis/internal/docs"
)

// collectionName is the chromem collection holding manual chunks.
const collectionName = "manuals"

// rebuildLockFile guards the index directory against concurrent rebuilds
// from separate processes (CLI reindex while the server is running).
const rebuildLockFile = ".rebuild.lock"

// ChunkLoader is the document-processing collaborator.
// Interface defined here, by the consumer; docs.Loader satisfies it.
type ChunkLoader interface {
	LoadDir(dir string) ([]docs.Chunk, error)
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Content    string
	Source     string
	Similarity float32
}

// Handle is a read-only view of one generation of the index.
// A Handle stays valid for its whole lifetime even if the Manager swaps in
// a newer generation; callers simply keep searching the old one.
type Handle struct {
	coll *chromem.Collection
}

// Count returns the number of indexed chunks.
func (h *Handle) Count() int {
	return h.coll.Count()
}

// Search returns up to topK chunks most similar to query, best first.
// Fewer than topK results are returned when the corpus is smaller.
func (h *Handle) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 1
	}
	// chromem rejects nResults larger than the collection; clamp.
	if n := h.coll.Count(); n < topK {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	res, err := h.coll.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	out := make([]Result, len(res))
	for i, r := range res {
		out[i] = Result{
			Content:    r.Content,
			Source:     r.Metadata["source"],
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Manager owns the index singleton for one process.
// It is safe for concurrent use; all state transitions happen under mu.
type Manager struct {
	dir        string // persisted index location
	manualsDir string
	loader     ChunkLoader
	embed      EmbeddingFunc
	logger     *slog.Logger

	mu     sync.Mutex
	handle *Handle // cached generation; nil when corpus empty or not yet built
}

// NewManager creates a Manager. Nothing is loaded until the first Get or
// Rebuild call.
func NewManager(dir, manualsDir string, loader ChunkLoader, embed EmbeddingFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:        dir,
		manualsDir: manualsDir,
		loader:     loader,
		embed:      embed,
		logger:     logger,
	}
}

// Get returns the cached index handle, loading or building it if needed.
// It returns (nil, nil) when the corpus is empty: callers must degrade to
// "knowledge base unavailable" rather than treat that as an error.
//
// Identity guarantee: two Get calls without an intervening Rebuild return
// the same *Handle.
func (m *Manager) Get(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return m.handle, nil
	}

	if h := m.loadLocked(ctx); h != nil {
		m.handle = h
		return h, nil
	}

	return m.rebuildLocked(ctx)
}

// Rebuild unconditionally regenerates the index from the current corpus,
// replacing both the persisted copy and the cached handle. Concurrent
// searches against previously obtained handles are unaffected; the swap is
// a pointer replacement under the mutex, never an in-place mutation.
func (m *Manager) Rebuild(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildLocked(ctx)
}

// loadLocked attempts to open the persisted index. Any failure (missing
// directory, corrupted contents, incompatible format) is treated as "index
// absent" and returns nil. Caller holds mu.
func (m *Manager) loadLocked(_ context.Context) *Handle {
	if _, err := os.Stat(m.dir); err != nil {
		m.logger.Debug("no persisted index", "dir", m.dir)
		return nil
	}

	db, err := chromem.NewPersistentDB(m.dir, false)
	if err != nil {
		m.logger.Warn("persisted index unreadable, will rebuild", "dir", m.dir, "error", err)
		return nil
	}

	coll := db.GetCollection(collectionName, m.embed)
	if coll == nil || coll.Count() == 0 {
		m.logger.Debug("persisted index empty or missing collection", "dir", m.dir)
		return nil
	}

	m.logger.Info("loaded persisted index", "dir", m.dir, "chunks", coll.Count())
	return &Handle{coll: coll}
}

// rebuildLocked regenerates the index from the corpus. Caller holds mu.
//
// The new index is built in a sibling temp directory and swapped into place
// only on success, so a failed rebuild leaves both the previous persisted
// copy and the cached handle untouched. Only an empty corpus clears the
// handle and the persisted copy.
func (m *Manager) rebuildLocked(ctx context.Context) (*Handle, error) {
	parent := filepath.Dir(m.dir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return nil, fmt.Errorf("creating index parent directory: %w", err)
	}

	// Cross-process exclusion: a server handling /api/reindex and a CLI
	// "mantis reindex" must not write the same directory concurrently.
	fl := flock.New(filepath.Join(parent, rebuildLockFile))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring rebuild lock: %w", err)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			m.logger.Warn("releasing rebuild lock", "error", err)
		}
	}()

	chunks, err := m.loader.LoadDir(m.manualsDir)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	if len(chunks) == 0 {
		m.logger.Warn("corpus empty, index unavailable", "manuals_dir", m.manualsDir)
		m.handle = nil
		// Discard any stale persisted copy so a later load doesn't
		// resurrect chunks that no longer exist in the corpus.
		if err := os.RemoveAll(m.dir); err != nil {
			m.logger.Warn("removing stale index", "error", err)
		}
		return nil, nil
	}

	tmpDir := m.dir + ".rebuild"
	if err := os.RemoveAll(tmpDir); err != nil {
		return nil, fmt.Errorf("clearing temp index directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(tmpDir, false)
	if err != nil {
		return nil, fmt.Errorf("creating index database: %w", err)
	}

	coll, err := db.GetOrCreateCollection(collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("creating index collection: %w", err)
	}

	cdocs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		cdocs[i] = chromem.Document{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Meta,
		}
	}
	if err := coll.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}

	if err := m.swapDirs(tmpDir); err != nil {
		return nil, err
	}

	h := &Handle{coll: coll}
	m.handle = h
	m.logger.Info("index rebuilt", "dir", m.dir, "chunks", len(chunks))
	return h, nil
}

// swapDirs replaces the persisted index directory with the freshly built
// one. Handles already referencing the old generation keep their in-memory
// data; only the on-disk copy changes owner.
func (m *Manager) swapDirs(tmpDir string) error {
	oldDir := m.dir + ".old"
	if err := os.RemoveAll(oldDir); err != nil {
		return fmt.Errorf("clearing old index directory: %w", err)
	}

	if _, err := os.Stat(m.dir); err == nil {
		if err := os.Rename(m.dir, oldDir); err != nil {
			return fmt.Errorf("moving previous index aside: %w", err)
		}
	}

	if err := os.Rename(tmpDir, m.dir); err != nil {
		// Try to restore the previous generation before bailing.
		if _, statErr := os.Stat(oldDir); statErr == nil {
			if restoreErr := os.Rename(oldDir, m.dir); restoreErr != nil {
				m.logger.Error("restoring previous index failed", "error", restoreErr)
			}
		}
		return fmt.Errorf("installing new index: %w", err)
	}

	if err := os.RemoveAll(oldDir); err != nil {
		m.logger.Warn("removing previous index", "error", err)
	}
	return nil
}
