package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) UpdateRunStage(ctx context.Context, id, stage string) error {
	return r.db.WithContext(ctx).Model(&PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": StatusRunning,
			"stage":  stage,
		}).Error
}

func (r *RunRepository) CompleteRun(ctx context.Context, id, videoURL, imageURL string) error {
	return r.db.WithContext(ctx).Model(&PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              StatusCompleted,
			"stage":               "video_ready",
			"video_url":           videoURL,
			"generated_image_url": imageURL,
			"finished_at":         time.Now(),
		}).Error
}

func (r *RunRepository) FailRun(ctx context.Context, id, errMsg string) error {
	return r.db.WithContext(ctx).Model(&PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      StatusFailed,
			"stage":       "failed",
			"error":       errMsg,
			"finished_at": time.Now(),
		}).Error
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*PipelineRun, error) {
	var run PipelineRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context, limit, offset int) ([]PipelineRun, error) {
	var runs []PipelineRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *RunRepository) AddStageEvent(ctx context.Context, ev *StageEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *RunRepository) ListStageEvents(ctx context.Context, runID string) ([]StageEvent, error) {
	var events []StageEvent
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
