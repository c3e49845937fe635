// Package database хранит историю запусков конвейера в PostgreSQL.
// Использует GORM ORM с prepared statements для защиты от SQL injection.
package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статусы PipelineRun.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PipelineRun - один запуск TWO_STAGE_PIPELINE. Запуски не возобновляются:
// упавший остается failed навсегда.
type PipelineRun struct {
	ID                string     `gorm:"type:uuid;primaryKey" json:"id"`
	ProductName       string     `gorm:"type:text;not null" json:"productName"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Stage             string     `gorm:"type:varchar(32);not null;default:'not_started'" json:"stage"`
	ImagePrompt       string     `gorm:"type:text" json:"imagePrompt"`
	VideoPrompt       string     `gorm:"type:text" json:"videoPrompt"`
	GeneratedImageURL string     `gorm:"type:text" json:"generatedImageUrl,omitempty"`
	VideoURL          string     `gorm:"type:text" json:"videoUrl,omitempty"`
	Error             string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	FinishedAt        *time.Time `json:"finishedAt,omitempty"`
}

func (r *PipelineRun) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

// StageEvent - одна смена стадии запуска (журнал для разбора отказов).
type StageEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"type:uuid;index;not null" json:"runId"`
	FromStage string    `gorm:"type:varchar(32);not null" json:"fromStage"`
	Stage     string    `gorm:"type:varchar(32);not null" json:"stage"`
	ElapsedMs int64     `gorm:"not null" json:"elapsedMs"` // время в FromStage
	Retries   int       `gorm:"not null;default:0" json:"retries"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
