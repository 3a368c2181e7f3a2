package connectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/fx"

	"go-approvals/internal/config"
)

// ErrDirectoryDisabled is returned when no directory DSN is configured.
var ErrDirectoryDisabled = errors.New("directory connector not configured")

// DirectoryConnector reads the org chart from an external HR database. It
// backs manager and department-head resolution when the company directory
// is not mirrored into the local user collection.
type DirectoryConnector struct {
	db *sql.DB
}

// NewDirectoryConnector opens the HR directory connection. An empty DSN is
// not an error; the connector stays disabled and resolution falls back to
// the local user collection.
func NewDirectoryConnector(lc fx.Lifecycle, cfg *config.Config) (*DirectoryConnector, error) {
	if cfg.DirectoryDSN == "" {
		return &DirectoryConnector{}, nil
	}

	db, err := sql.Open(cfg.DirectoryDriver, cfg.DirectoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return db.PingContext(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return &DirectoryConnector{db: db}, nil
}

// Enabled reports whether a directory database is configured.
func (c *DirectoryConnector) Enabled() bool {
	return c.db != nil
}

// ManagerOf returns the employee id of the given employee's direct manager.
func (c *DirectoryConnector) ManagerOf(ctx context.Context, employeeID string) (string, error) {
	if c.db == nil {
		return "", ErrDirectoryDisabled
	}

	var managerID sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT manager_id FROM employees WHERE employee_id = $1`,
		employeeID,
	).Scan(&managerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("employee %s not found in directory", employeeID)
		}
		return "", fmt.Errorf("failed to query directory: %w", err)
	}
	if !managerID.Valid || managerID.String == "" {
		return "", fmt.Errorf("employee %s has no manager", employeeID)
	}
	return managerID.String, nil
}

// DepartmentHeadOf returns the employee id of the head of a department.
func (c *DirectoryConnector) DepartmentHeadOf(ctx context.Context, department string) (string, error) {
	if c.db == nil {
		return "", ErrDirectoryDisabled
	}

	var headID sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT head_id FROM departments WHERE name = $1`,
		department,
	).Scan(&headID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("department %s not found in directory", department)
		}
		return "", fmt.Errorf("failed to query directory: %w", err)
	}
	if !headID.Valid || headID.String == "" {
		return "", fmt.Errorf("department %s has no head", department)
	}
	return headID.String, nil
}

// TestConnection tests if the directory connection is valid.
func (c *DirectoryConnector) TestConnection(ctx context.Context) error {
	if c.db == nil {
		return ErrDirectoryDisabled
	}
	return c.db.PingContext(ctx)
}
