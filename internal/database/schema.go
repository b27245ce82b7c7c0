package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"marketplace/internal/config"
	"marketplace/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes select how the listing, photo, tag, trade and review tables
// are created: embedded SQL migrations, GORM AutoMigrate, or both.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus reports what ApplySchema would do and which marketplace
// tables are still missing.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	MissingTables      []string
}

type schemaPlan struct {
	mode    string
	env     string
	runSQL  bool
	runAuto bool
}

// holdsLiveListings reports whether env serves real sellers. AutoMigrate
// never runs there unless explicitly forced.
func holdsLiveListings(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	if config.IsProduction(e) {
		return true
	}
	return e == "staging" || e == "stage"
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{
		mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		env:  cfg.Env,
	}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	live := holdsLiveListings(cfg.Env)

	switch plan.mode {
	case SchemaModeSQL:
		plan.runSQL = true
	case SchemaModeHybrid:
		plan.runSQL = true
		plan.runAuto = !live
	case SchemaModeAuto:
		if live && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.runAuto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates the listings, photos, tags, listing_tags,
// trade_histories and reviews tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the marketplace tables up to date according to
// cfg.DBSchemaMode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.runAuto {
		return nil
	}

	if plan.mode == SchemaModeAuto && holdsLiveListings(plan.env) {
		middleware.Logger.Warn("AutoMigrate forced against live listing data; review schema diffs first",
			slog.String("env", plan.env))
	}
	middleware.Logger.Info("Auto-migrating marketplace models",
		slog.String("mode", plan.mode),
		slog.Int("models", len(PersistentModels())))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus describes the schema plan for cfg without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        plan.env,
		WillRunSQL:         plan.runSQL,
		WillRunAutoMigrate: plan.runAuto,
		MissingTables:      missingTables(db.WithContext(ctx)),
	}
	if !plan.runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.PendingMigrations = pendingMigrations(GetMigrations(), applied)
	return status, nil
}

func missingTables(db *gorm.DB) []string {
	var missing []string
	for _, model := range PersistentModels() {
		if db.Migrator().HasTable(model) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			missing = append(missing, fmt.Sprintf("%T", model))
			continue
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing
}
