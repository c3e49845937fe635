package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flowAgent/internal/config"
	"flowAgent/internal/logger"
)

func TestRunSkipsWithoutDatabase(t *testing.T) {
	cfg := &config.Cfg{Migrations: config.Migrations{Path: "file://does-not-exist"}}
	require.NoError(t, Run(cfg, logger.Nop()))
}

func TestRunFailsOnMissingSource(t *testing.T) {
	cfg := &config.Cfg{
		Database:   config.Database{Host: "127.0.0.1", Port: "1", Name: "flow", User: "agent"},
		Migrations: config.Migrations{Path: "file:///nonexistent/flow-migrations"},
	}
	require.Error(t, Run(cfg, logger.Nop()))
}
