package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by the server and the test fixtures.
func GormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite", "":
		dialector = sqlite.Open(SQLiteDSN(cfg.DatabasePath))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, GormConfig(logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, nil
}

// SQLiteDSN turns a path into a DSN with foreign keys enforced. Paths that
// already carry parameters are left alone.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Event{},
		&models.Ceremony{},
		&models.Guest{},
		&models.GuestCeremonyAttendance{},
		&models.FamilyRelationship{},
		&models.RSVPHistory{},
		&models.CommunicationLog{},
	)
	if err != nil {
		return err
	}

	return installRelationshipTrigger(db)
}

// CrossEventMarker is the message raised by the relationship trigger.
const CrossEventMarker = "cross_event_relationship"

// SQLite triggers fire on a single event, so insert and update get one each.
var sqliteRelationshipTrigger = []string{
	sqliteSameEventTrigger("trg_family_relationship_same_event", "INSERT"),
	sqliteSameEventTrigger("trg_family_relationship_same_event_update", "UPDATE"),
}

func sqliteSameEventTrigger(name, op string) string {
	return `CREATE TRIGGER IF NOT EXISTS ` + name + `
BEFORE ` + op + ` ON family_relationships
FOR EACH ROW
WHEN (SELECT event_id FROM guests WHERE id = NEW.primary_guest_id) IS NOT NEW.event_id
  OR (SELECT event_id FROM guests WHERE id = NEW.related_guest_id) IS NOT NEW.event_id
BEGIN
  SELECT RAISE(ABORT, '` + CrossEventMarker + `');
END`
}

var postgresRelationshipTrigger = []string{
	`CREATE OR REPLACE FUNCTION family_relationship_same_event() RETURNS trigger AS $$
BEGIN
  IF (SELECT event_id FROM guests WHERE id = NEW.primary_guest_id) IS DISTINCT FROM NEW.event_id
     OR (SELECT event_id FROM guests WHERE id = NEW.related_guest_id) IS DISTINCT FROM NEW.event_id THEN
    RAISE EXCEPTION '` + CrossEventMarker + `';
  END IF;
  RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_family_relationship_same_event ON family_relationships`,
	`CREATE TRIGGER trg_family_relationship_same_event
BEFORE INSERT OR UPDATE ON family_relationships
FOR EACH ROW EXECUTE FUNCTION family_relationship_same_event()`,
}

func installRelationshipTrigger(db *gorm.DB) error {
	statements := sqliteRelationshipTrigger
	if db.Dialector.Name() == "postgres" {
		statements = postgresRelationshipTrigger
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("relationship trigger: %w", err)
		}
	}
	return nil
}

// IsCrossEventViolation reports whether err came from the relationship trigger.
func IsCrossEventViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), CrossEventMarker)
}

func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
