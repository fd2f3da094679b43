package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
)

const surveyColumns = `
	id, tenant_id, project_id, quote_id, scheduled_date, time_window, status,
	assigned_to, completed_by, completed_at, notes, created_by, created_at, updated_at`

// SurveyRepository implements port.SurveyRepository
type SurveyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSurveyRepository creates a new survey repository
func NewSurveyRepository(db *sql.DB, logger *zap.Logger) port.SurveyRepository {
	return &SurveyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a survey
func (r *SurveyRepository) Create(ctx context.Context, survey *entity.Survey) error {
	now := time.Now().UTC()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO surveys (
			tenant_id, project_id, quote_id, scheduled_date, time_window, status,
			assigned_to, notes, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		survey.TenantID,
		survey.ProjectID,
		nullableInt64(survey.QuoteID),
		survey.ScheduledDate,
		nullableString(survey.TimeWindow),
		survey.Status,
		nullableInt64(survey.AssignedTo),
		survey.Notes,
		survey.CreatedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create survey", zap.Int64("project_id", survey.ProjectID), zap.Error(err))
		return fmt.Errorf("failed to create survey: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	survey.ID = id
	survey.CreatedAt = now
	survey.UpdatedAt = now
	return nil
}

// GetByID retrieves a survey by ID
func (r *SurveyRepository) GetByID(ctx context.Context, tenantID, id int64) (*entity.Survey, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE tenant_id = ? AND id = ?`, tenantID, id)

	survey, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get survey", zap.Int64("survey_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return survey, nil
}

// ListByProject returns a project's surveys by scheduled date
func (r *SurveyRepository) ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Survey, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys
		WHERE tenant_id = ? AND project_id = ?
		ORDER BY scheduled_date, id`, tenantID, projectID)
	if err != nil {
		r.logger.Error("Failed to list surveys", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	defer rows.Close()

	surveys := make([]*entity.Survey, 0)
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		surveys = append(surveys, survey)
	}
	return surveys, rows.Err()
}

// UpdateStatusIf moves a survey out of the from status
func (r *SurveyRepository) UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	return updateVisitStatus(ctx, sqlite.ExecutorFrom(ctx, r.db), "surveys", tenantID, id, from, to)
}

func scanSurvey(row rowScanner) (*entity.Survey, error) {
	var (
		s           entity.Survey
		quoteID     sql.NullInt64
		timeWindow  sql.NullString
		assignedTo  sql.NullInt64
		completedBy sql.NullInt64
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.ProjectID,
		&quoteID,
		&s.ScheduledDate,
		&timeWindow,
		&s.Status,
		&assignedTo,
		&completedBy,
		&completedAt,
		&s.Notes,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.QuoteID = int64Ptr(quoteID)
	s.TimeWindow = stringPtr(timeWindow)
	s.AssignedTo = int64Ptr(assignedTo)
	s.CompletedBy = int64Ptr(completedBy)
	s.CompletedAt = timePtr(completedAt)
	return &s, nil
}

// updateVisitStatus is shared by surveys and installations. Table names
// are constants from this package.
func updateVisitStatus(ctx context.Context, exec sqlite.Executor, table string, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	result, err := exec.ExecContext(ctx, `
		UPDATE `+table+`
		SET status = ?, completed_by = ?, completed_at = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?`,
		to.Status,
		nullableInt64(to.CompletedBy),
		nullableTime(to.CompletedAt),
		time.Now().UTC(),
		tenantID,
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update %s status: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}
