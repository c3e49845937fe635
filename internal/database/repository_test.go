package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB строит SQL без подключения к серверу.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost port=5432 user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func TestCreateRunAssignsIDAndStatus(t *testing.T) {
	repo := NewRunRepository(dryRunDB(t))
	run := &PipelineRun{ProductName: "Serum"}

	require.NoError(t, repo.CreateRun(context.Background(), run))

	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusPending, run.Status)
}

func TestCreateRunKeepsGivenID(t *testing.T) {
	repo := NewRunRepository(dryRunDB(t))
	run := &PipelineRun{ID: "8f0c6a52-5d7e-4a43-9c55-0f8f5d0b8b11", ProductName: "Serum", Status: StatusRunning}

	require.NoError(t, repo.CreateRun(context.Background(), run))

	assert.Equal(t, "8f0c6a52-5d7e-4a43-9c55-0f8f5d0b8b11", run.ID)
	assert.Equal(t, StatusRunning, run.Status)
}

func TestRepositoryWritesWithoutServer(t *testing.T) {
	repo := NewRunRepository(dryRunDB(t))
	ctx := context.Background()
	id := "8f0c6a52-5d7e-4a43-9c55-0f8f5d0b8b11"

	assert.NoError(t, repo.UpdateRunStage(ctx, id, "images_uploaded"))
	assert.NoError(t, repo.AddStageEvent(ctx, &StageEvent{RunID: id, FromStage: "in_workspace", Stage: "images_uploaded", ElapsedMs: 1200}))
	assert.NoError(t, repo.CompleteRun(ctx, id, "https://cdn.example/v.mp4", "https://cdn.example/i.png"))
	assert.NoError(t, repo.FailRun(ctx, id, "image tab not found"))
}

func TestRepositoryQueries(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&PipelineRun{}).Where("id = ?", "abc").Updates(map[string]any{"status": StatusFailed, "error": "boom"})
	})
	assert.Contains(t, sql, `UPDATE "pipeline_runs"`)

	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var events []StageEvent
		return tx.Where("run_id = ?", "abc").Order("id ASC").Find(&events)
	})
	assert.Contains(t, sql, `FROM "stage_events"`)
	assert.Contains(t, sql, `ORDER BY id ASC`)
}
