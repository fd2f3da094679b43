package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
)

const installationColumns = `
	id, tenant_id, project_id, quote_id, scheduled_date, start_time, end_time, status,
	assigned_to, completed_by, completed_at, notes, created_by, created_at, updated_at`

// InstallationRepository implements port.InstallationRepository
type InstallationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstallationRepository creates a new installation repository
func NewInstallationRepository(db *sql.DB, logger *zap.Logger) port.InstallationRepository {
	return &InstallationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an installation. The crew is stored as a JSON array.
func (r *InstallationRepository) Create(ctx context.Context, installation *entity.Installation) error {
	crew := installation.AssignedTo
	if crew == nil {
		crew = []int64{}
	}
	crewJSON, err := json.Marshal(crew)
	if err != nil {
		return fmt.Errorf("failed to marshal crew: %w", err)
	}

	now := time.Now().UTC()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO installations (
			tenant_id, project_id, quote_id, scheduled_date, start_time, end_time, status,
			assigned_to, notes, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		installation.TenantID,
		installation.ProjectID,
		nullableInt64(installation.QuoteID),
		installation.ScheduledDate,
		nullableString(installation.StartTime),
		nullableString(installation.EndTime),
		installation.Status,
		string(crewJSON),
		installation.Notes,
		installation.CreatedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create installation", zap.Int64("project_id", installation.ProjectID), zap.Error(err))
		return fmt.Errorf("failed to create installation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	installation.ID = id
	installation.AssignedTo = crew
	installation.CreatedAt = now
	installation.UpdatedAt = now
	return nil
}

// GetByID retrieves an installation by ID
func (r *InstallationRepository) GetByID(ctx context.Context, tenantID, id int64) (*entity.Installation, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+installationColumns+` FROM installations WHERE tenant_id = ? AND id = ?`, tenantID, id)

	installation, err := scanInstallation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get installation", zap.Int64("installation_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get installation: %w", err)
	}
	return installation, nil
}

// ListByProject returns a project's installations by scheduled date
func (r *InstallationRepository) ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Installation, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT `+installationColumns+` FROM installations
		WHERE tenant_id = ? AND project_id = ?
		ORDER BY scheduled_date, id`, tenantID, projectID)
	if err != nil {
		r.logger.Error("Failed to list installations", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}
	defer rows.Close()

	installations := make([]*entity.Installation, 0)
	for rows.Next() {
		installation, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installation: %w", err)
		}
		installations = append(installations, installation)
	}
	return installations, rows.Err()
}

// UpdateStatusIf moves an installation out of the from status
func (r *InstallationRepository) UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	return updateVisitStatus(ctx, sqlite.ExecutorFrom(ctx, r.db), "installations", tenantID, id, from, to)
}

func scanInstallation(row rowScanner) (*entity.Installation, error) {
	var (
		inst        entity.Installation
		quoteID     sql.NullInt64
		startTime   sql.NullString
		endTime     sql.NullString
		crewJSON    string
		completedBy sql.NullInt64
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&inst.ID,
		&inst.TenantID,
		&inst.ProjectID,
		&quoteID,
		&inst.ScheduledDate,
		&startTime,
		&endTime,
		&inst.Status,
		&crewJSON,
		&completedBy,
		&completedAt,
		&inst.Notes,
		&inst.CreatedBy,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inst.AssignedTo = []int64{}
	if crewJSON != "" {
		if err := json.Unmarshal([]byte(crewJSON), &inst.AssignedTo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal crew: %w", err)
		}
	}
	inst.QuoteID = int64Ptr(quoteID)
	inst.StartTime = stringPtr(startTime)
	inst.EndTime = stringPtr(endTime)
	inst.CompletedBy = int64Ptr(completedBy)
	inst.CompletedAt = timePtr(completedAt)
	return &inst, nil
}
