package persistence

import (
	"gorm.io/gorm"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
)

// Models returns every persisted model in migration order
func Models() []any {
	return []any{
		&catalog.Listing{},
		&sales.Record{},
		&sales.AdSpend{},
		&replenish.Result{},
		&pipeline.Run{},
		&pipeline.Continuation{},
		&settings.Setting{},
	}
}

// AutoMigrate creates or updates the schema for all persisted models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
