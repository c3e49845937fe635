// Package migrations накатывает схему БД через golang-migrate перед стартом.
package migrations

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"flowAgent/internal/config"
	"flowAgent/internal/logger"
)

// Run применяет все новые миграции. Без настроенной БД ничего не делает.
func Run(cfg *config.Cfg, log *logger.Zap) error {
	if !cfg.Database.Enabled() {
		log.Info("БД не настроена, миграции пропущены")
		return nil
	}

	m, err := migrate.New(cfg.Migrations.Path, cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("Ошибка закрытия мигратора", zap.NamedError("source", srcErr), zap.NamedError("db", dbErr))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Схема БД актуальна")
			return nil
		}
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
