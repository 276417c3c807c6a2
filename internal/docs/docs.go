// Package docs loads machine manuals from a directory and splits them into
// chunks sized for embedding.
//
// The loader is deliberately forgiving: a missing or empty manuals directory
// yields zero chunks and no error, so the rest of the system degrades to
// "knowledge base unavailable" instead of failing to start.
package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// supportedExtensions are the manual file types we can load.
// PDF manuals must be converted to text before indexing.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// MaxFileSize is the largest manual file the loader will read (1MB).
// Larger files are skipped with a warning.
const MaxFileSize = 1 << 20

// Chunk is one embeddable slice of a manual.
type Chunk struct {
	ID      string            // stable identifier: hash of source path + ordinal
	Content string            // chunk text
	Source  string            // manual file name the chunk came from
	Meta    map[string]string // extra metadata stored alongside the chunk
}

// Loader reads manuals from a directory and produces chunks.
type Loader struct {
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewLoader creates a Loader with the given chunking parameters.
// Non-positive values fall back to 1000/200 runes.
func NewLoader(chunkSize, chunkOverlap int, logger *slog.Logger) *Loader {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// LoadDir loads every supported manual in dir and splits it into chunks.
// A missing or empty directory returns (nil, nil): an empty corpus is a
// valid state, not an error.
func (l *Loader) LoadDir(dir string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("manuals directory not found", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading manuals directory: %w", err)
	}

	var chunks []Chunk
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !supportedExtensions[ext] {
			l.logger.Debug("skipping unsupported manual", "file", name, "ext", ext)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			l.logger.Warn("stat failed, skipping manual", "file", name, "error", err)
			continue
		}
		if info.Size() > MaxFileSize {
			l.logger.Warn("manual too large, skipping", "file", name, "size", info.Size())
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- dir comes from config, names from ReadDir
		if err != nil {
			l.logger.Warn("read failed, skipping manual", "file", name, "error", err)
			continue
		}

		pieces := Split(string(content), l.chunkSize, l.chunkOverlap)
		for i, piece := range pieces {
			chunks = append(chunks, Chunk{
				ID:      chunkID(name, i),
				Content: piece,
				Source:  name,
				Meta: map[string]string{
					"source": name,
					"ordinal": fmt.Sprintf("%d", i),
				},
			})
		}
		l.logger.Debug("loaded manual", "file", name, "chunks", len(pieces))
	}

	l.logger.Info("manuals loaded", "dir", dir, "chunks", len(chunks))
	return chunks, nil
}

// chunkID generates a stable chunk identifier from the source file name and
// chunk ordinal.
func chunkID(source string, ordinal int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, ordinal)))
	return "manual_" + hex.EncodeToString(hash[:16])
}
