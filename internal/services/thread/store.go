// Package thread persists the agent conversation between runs
package thread

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/storage/jsonfile"
)

// LatestFile is the transcript loaded at the start of the next run.
const LatestFile = "thread.json"

// Store reads and writes transcripts under one directory per market. Each
// save writes <dir>/thread.json and a dated copy <dir>/<YYYY-MM-DD>.json.
type Store struct {
	dir    string
	logger *common.Logger
	now    func() time.Time
}

// NewStore creates a transcript store rooted at dir
func NewStore(dir string, logger *common.Logger) *Store {
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Dir returns the directory transcripts are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the previous transcript. A missing or unreadable transcript is
// logged and yields an empty history so the run can start fresh.
func (s *Store) Load(_ context.Context) []*genai.Content {
	path := filepath.Join(s.dir, LatestFile)

	var history []*genai.Content
	if err := jsonfile.Read(path, &history); err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			s.logger.Warn().Str("path", path).Msg("Thread history file not found")
		} else {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to load thread history")
		}
		return []*genai.Content{}
	}

	out := history[:0]
	for _, c := range history {
		if c != nil && len(c.Parts) > 0 {
			out = append(out, c)
		}
	}

	s.logger.Info().Str("path", path).Int("items", len(out)).Msg("Loaded thread history")
	return out
}

// Save writes the transcript as the latest thread and as today's archive.
func (s *Store) Save(_ context.Context, history []*genai.Content) error {
	if history == nil {
		history = []*genai.Content{}
	}

	dated := filepath.Join(s.dir, s.now().Format("2006-01-02")+".json")
	if err := jsonfile.Write(dated, history); err != nil {
		s.logger.Error().Err(err).Str("path", dated).Msg("Failed to save thread history")
		return fmt.Errorf("failed to save thread archive: %w", err)
	}

	latest := filepath.Join(s.dir, LatestFile)
	if err := jsonfile.Write(latest, history); err != nil {
		s.logger.Error().Err(err).Str("path", latest).Msg("Failed to save thread history")
		return fmt.Errorf("failed to save thread: %w", err)
	}

	s.logger.Info().Str("path", latest).Int("items", len(history)).Msg("Saved thread history")
	return nil
}
