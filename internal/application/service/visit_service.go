package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/domain/event"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

// VisitTransition is the result of a survey or installation status change
type VisitTransition[T any] struct {
	Visit    T
	Warnings []string
}

// VisitService reads surveys and installations and moves them through
// their own lifecycle once scheduled
type VisitService interface {
	GetSurvey(ctx context.Context, scope entity.Scope, id int64) (*entity.Survey, error)
	ListSurveys(ctx context.Context, scope entity.Scope, projectID int64) ([]*entity.Survey, error)
	TransitionSurvey(ctx context.Context, scope entity.Scope, id int64, trigger domainwf.Trigger) (*VisitTransition[*entity.Survey], error)

	GetInstallation(ctx context.Context, scope entity.Scope, id int64) (*entity.Installation, error)
	ListInstallations(ctx context.Context, scope entity.Scope, projectID int64) ([]*entity.Installation, error)
	TransitionInstallation(ctx context.Context, scope entity.Scope, id int64, trigger domainwf.Trigger) (*VisitTransition[*entity.Installation], error)
}

type visitServiceImpl struct {
	surveyRepo       port.SurveyRepository
	installationRepo port.InstallationRepository
	txManager        port.TransactionManager
	publisher        *workflow.Publisher
	logger           Logger
	now              func() time.Time
}

// NewVisitService creates a new VisitService
func NewVisitService(
	surveyRepo port.SurveyRepository,
	installationRepo port.InstallationRepository,
	txManager port.TransactionManager,
	publisher *workflow.Publisher,
	logger Logger,
) VisitService {
	return &visitServiceImpl{
		surveyRepo:       surveyRepo,
		installationRepo: installationRepo,
		txManager:        txManager,
		publisher:        publisher,
		logger:           logger,
		now:              time.Now,
	}
}

// GetSurvey returns a survey in the caller's tenant
func (s *visitServiceImpl) GetSurvey(ctx context.Context, scope entity.Scope, id int64) (*entity.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		return nil, apperror.AsPersistence("get survey", err)
	}
	if survey == nil {
		return nil, apperror.NotFound("Survey", id)
	}
	return survey, nil
}

// ListSurveys returns the surveys of a project ordered by date
func (s *visitServiceImpl) ListSurveys(ctx context.Context, scope entity.Scope, projectID int64) ([]*entity.Survey, error) {
	surveys, err := s.surveyRepo.ListByProject(ctx, scope.TenantID, projectID)
	if err != nil {
		return nil, apperror.AsPersistence("list surveys", err)
	}
	return surveys, nil
}

// GetInstallation returns an installation in the caller's tenant
func (s *visitServiceImpl) GetInstallation(ctx context.Context, scope entity.Scope, id int64) (*entity.Installation, error) {
	installation, err := s.installationRepo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		return nil, apperror.AsPersistence("get installation", err)
	}
	if installation == nil {
		return nil, apperror.NotFound("Installation", id)
	}
	return installation, nil
}

// ListInstallations returns the installations of a project ordered by date
func (s *visitServiceImpl) ListInstallations(ctx context.Context, scope entity.Scope, projectID int64) ([]*entity.Installation, error) {
	installations, err := s.installationRepo.ListByProject(ctx, scope.TenantID, projectID)
	if err != nil {
		return nil, apperror.AsPersistence("list installations", err)
	}
	return installations, nil
}

// TransitionSurvey fires start, complete or cancel on a survey
func (s *visitServiceImpl) TransitionSurvey(ctx context.Context, scope entity.Scope, id int64, trigger domainwf.Trigger) (*VisitTransition[*entity.Survey], error) {
	var (
		survey *entity.Survey
		from   entity.VisitStatus
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.GetSurvey(txCtx, scope, id)
		if err != nil {
			return err
		}
		from = current.Status

		if _, err := s.move(txCtx, scope, "Survey", id, current.Status, trigger, s.surveyRepo.UpdateStatusIf); err != nil {
			return err
		}

		survey, err = s.GetSurvey(txCtx, scope, id)
		return err
	})
	if err != nil {
		s.logger.Error("Survey transition failed", "error", err, "tenant_id", scope.TenantID, "survey_id", id, "trigger", trigger)
		return nil, apperror.AsPersistence("transition survey", err)
	}

	warnings := s.publisher.Publish(ctx, workflow.NewEvent(ctx, scope, event.TypeSurveyStatusChanged, id, map[string]interface{}{
		"survey_id":       id,
		"previous_status": from.String(),
		"new_status":      survey.Status.String(),
		"trigger":         trigger.String(),
	}))

	s.logger.Info("Survey transitioned", "tenant_id", scope.TenantID, "survey_id", id, "status", survey.Status)
	return &VisitTransition[*entity.Survey]{Visit: survey, Warnings: warnings}, nil
}

// TransitionInstallation fires start, complete or cancel on an installation
func (s *visitServiceImpl) TransitionInstallation(ctx context.Context, scope entity.Scope, id int64, trigger domainwf.Trigger) (*VisitTransition[*entity.Installation], error) {
	var (
		installation *entity.Installation
		from         entity.VisitStatus
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.GetInstallation(txCtx, scope, id)
		if err != nil {
			return err
		}
		from = current.Status

		if _, err := s.move(txCtx, scope, "Installation", id, current.Status, trigger, s.installationRepo.UpdateStatusIf); err != nil {
			return err
		}

		installation, err = s.GetInstallation(txCtx, scope, id)
		return err
	})
	if err != nil {
		s.logger.Error("Installation transition failed", "error", err, "tenant_id", scope.TenantID, "installation_id", id, "trigger", trigger)
		return nil, apperror.AsPersistence("transition installation", err)
	}

	warnings := s.publisher.Publish(ctx, workflow.NewEvent(ctx, scope, event.TypeInstallationStatusChanged, id, map[string]interface{}{
		"installation_id": id,
		"previous_status": from.String(),
		"new_status":      installation.Status.String(),
		"trigger":         trigger.String(),
	}))

	s.logger.Info("Installation transitioned", "tenant_id", scope.TenantID, "installation_id", id, "status", installation.Status)
	return &VisitTransition[*entity.Installation]{Visit: installation, Warnings: warnings}, nil
}

type visitStatusWriter func(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error)

// move validates the trigger against the visit machine and writes the new
// status with a compare-and-set on the current one
func (s *visitServiceImpl) move(
	ctx context.Context,
	scope entity.Scope,
	kind string,
	id int64,
	current entity.VisitStatus,
	trigger domainwf.Trigger,
	write visitStatusWriter,
) (entity.VisitStatus, error) {
	switch trigger {
	case domainwf.TriggerStart, domainwf.TriggerComplete, domainwf.TriggerCancel:
	default:
		return "", apperror.Validation("Unsupported visit trigger", map[string]string{"trigger": "oneof"})
	}

	machine, err := workflow.BuildVisitStateMachine(current)
	if err != nil {
		return "", err
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return "", apperror.InvalidState(kind, id, current.String(), "",
			fmt.Sprintf("Cannot %s a %s in '%s' status", trigger, strings.ToLower(kind), current))
	}

	next := entity.VisitCompletion{Status: entity.VisitStatus(machine.State())}
	if next.Status == entity.VisitStatusCompleted {
		at := s.now().UTC()
		actor := scope.ActorID
		next.CompletedAt = &at
		next.CompletedBy = &actor
	}

	changed, err := write(ctx, scope.TenantID, id, current, next)
	if err != nil {
		return "", fmt.Errorf("update %s status: %w", strings.ToLower(kind), err)
	}
	if !changed {
		return "", apperror.InvalidState(kind, id, current.String(), "",
			fmt.Sprintf("%s status changed concurrently, reload and retry", kind))
	}
	return next.Status, nil
}
