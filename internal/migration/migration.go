package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	claimdomain "github.com/smallbiznis/tutorbase/internal/claim/domain"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	paymentdomain "github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// Models lists every table owned by the insurance subsystem in dependency
// order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&insurerdomain.Insurer{},
		&policydomain.Policy{},
		&customerpolicydomain.CustomerPolicy{},
		&paymentdomain.PolicyPayment{},
		&claimdomain.Claim{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the embedded SQL
// migrations; other dialects fall back to gorm's AutoMigrate.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
