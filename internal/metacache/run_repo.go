// Package metacache is the metadata store: run records and the three
// content-level caches (transcript, content, summary), backed by GORM the
// same way the teacher's internal/repository package backs its domain
// entities — one small repo type per table, returning (nil, nil) on a clean
// miss rather than a sentinel error.
package metacache

import (
	"context"
	"fmt"

	"github.com/jmylchreest/summarize/internal/models"
	"gorm.io/gorm"
)

// RunRepository persists Run records using GORM.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create persists a new run record.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID.
func (r *RunRepository) GetByID(ctx context.Context, id models.ULID) (*models.Run, error) {
	var run models.Run
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting run by ID: %w", err)
	}
	return &run, nil
}

// UpdateStatus transitions a run to a new status, optionally recording a
// failure kind/message.
func (r *RunRepository) UpdateStatus(ctx context.Context, id models.ULID, status models.RunStatus, errKind, errMsg string) error {
	updates := map[string]any{"status": status}
	if errKind != "" {
		updates["error_kind"] = errKind
	}
	if errMsg != "" {
		updates["error_message"] = errMsg
	}
	if err := r.db.WithContext(ctx).Model(&models.Run{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("updating run status: %w", err)
	}
	return nil
}

// Complete records the final summary text and usage/cost on a run and marks
// it done. Nil pointers are written as NULL, preserving the "unknown, not
// zero" accounting rule that governs every cost figure in this system.
func (r *RunRepository) Complete(ctx context.Context, id models.ULID, summary string, promptTokens, completionTokens *int64, costUSD *float64) error {
	updates := map[string]any{
		"status":            models.RunStatusDone,
		"summary_text":      summary,
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"cost_usd":          costUSD,
	}
	if err := r.db.WithContext(ctx).Model(&models.Run{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	return nil
}

// ListRecent returns the most recently created runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	var runs []*models.Run
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing recent runs: %w", err)
	}
	return runs, nil
}
