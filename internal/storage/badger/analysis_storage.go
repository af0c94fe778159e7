package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrNotFound is returned when no stored result matches
var ErrNotFound = errors.New("analysis result not found")

// AnalysisStorage implements interfaces.AnalysisStorage on badgerhold
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{db: db, logger: logger, now: time.Now}
}

// SaveResult upserts a result by ID, stamping AnalyzedAt when unset
func (s *AnalysisStorage) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if result.ID == "" {
		return fmt.Errorf("result ID is required")
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = s.now()
	}

	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save analysis result %s: %w", result.ID, err)
	}
	return nil
}

// GetResult loads one result by ID
func (s *AnalysisStorage) GetResult(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := s.db.Store().Get(id, &result); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return &result, nil
}

// GetLatestByCode returns the most recent result for a code
func (s *AnalysisStorage) GetLatestByCode(ctx context.Context, code string) (*models.AnalysisResult, error) {
	results, err := s.ListByCode(ctx, code, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("code %s: %w", code, ErrNotFound)
	}
	return results[0], nil
}

// ListByCode returns results for a code, newest first. limit <= 0 means all.
func (s *AnalysisStorage) ListByCode(ctx context.Context, code string, limit int) ([]*models.AnalysisResult, error) {
	query := badgerhold.Where("Code").Eq(code).SortBy("AnalyzedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	return s.find(query)
}

// ListByRun returns the results of one run ordered by analysis time
func (s *AnalysisStorage) ListByRun(ctx context.Context, runID string) ([]*models.AnalysisResult, error) {
	return s.find(badgerhold.Where("RunID").Eq(runID).SortBy("AnalyzedAt"))
}

// DeleteOlderThan removes results analyzed more than days ago
func (s *AnalysisStorage) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	cutoff := s.now().AddDate(0, 0, -days)
	query := badgerhold.Where("AnalyzedAt").Lt(cutoff)

	count, err := s.db.Store().Count(&models.AnalysisResult{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired results: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.AnalysisResult{}, badgerhold.Where("AnalyzedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to delete expired results: %w", err)
	}

	if err := s.db.RunGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Badger GC after prune failed")
	}

	s.logger.Info().Int("deleted", int(count)).Int("days", days).Msg("Expired analysis results removed")
	return int(count), nil
}

// Close closes the underlying Badger database
func (s *AnalysisStorage) Close() error {
	return s.db.Close()
}

func (s *AnalysisStorage) find(query *badgerhold.Query) ([]*models.AnalysisResult, error) {
	var stored []models.AnalysisResult
	if err := s.db.Store().Find(&stored, query); err != nil {
		return nil, fmt.Errorf("failed to query analysis results: %w", err)
	}
	results := make([]*models.AnalysisResult, len(stored))
	for i := range stored {
		results[i] = &stored[i]
	}
	return results, nil
}
