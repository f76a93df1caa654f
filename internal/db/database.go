package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
	"github.com/Jethrr/moodlequest-sub000/internal/utils"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewService opens the database selected by DB_DRIVER: "postgres"
// (default) or "sqlite" for local development.
func NewService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DatabaseService")

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", log))

	var (
		database *gorm.DB
		err      error
	)
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "moodlequest.db", log)
		log.Info("Connecting to SQLite...", "path", path)
		database, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "moodlequest", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

		log.Info("Connecting to Postgres...")
		database, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err != nil {
			log.Error("Failed to connect to Postgres", "error", err)
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(utils.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25, log))
		sqlDB.SetMaxIdleConns(utils.GetEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5, log))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Service{db: database, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Course{},
		&types.Quest{},
		&types.QuestProgress{},
		&types.QuestEngagementEvent{},
		&types.ExperiencePoints{},
		&types.StudentProgress{},
		&types.Badge{},
		&types.UserBadge{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureIndexes(s.db); err != nil {
		s.log.Error("Index creation failed", "error", err)
		return err
	}
	return nil
}

// xpSourceUniqueIndex backs the ledger's duplicate prevention with a
// constraint: one row per (user, course, source_type, source_id) for
// the hard-block sources. Quest and grade bonus grants are guarded
// upstream and lesson views re-award on a rolling window, so they are
// excluded. Rows without a course keep lookup-based dedup (NULLs never
// collide in a unique index).
const xpSourceUniqueIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_xp_source_once
ON experience_points (user_id, course_id, source_type, source_id)
WHERE source_type NOT IN ('quest', 'grade_bonus', 'lesson_view')`

// EnsureIndexes creates the partial indexes AutoMigrate cannot express.
// The DDL is valid on both postgres and sqlite.
func EnsureIndexes(gdb *gorm.DB) error {
	if err := gdb.Exec(xpSourceUniqueIndex).Error; err != nil {
		return fmt.Errorf("create xp source unique index: %w", err)
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
