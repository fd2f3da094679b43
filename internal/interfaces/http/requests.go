package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/fieldops/internal/application/service"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/pkg/utils"
)

// SurveyRequest is the body of POST /api/surveys
type SurveyRequest struct {
	QuoteID       *int64  `json:"quoteId" validate:"omitempty,gt=0"`
	ProjectID     *int64  `json:"projectId" validate:"omitempty,gt=0"`
	ScheduledDate string  `json:"scheduledDate" validate:"required,date"`
	TimeWindow    *string `json:"timeWindow" validate:"omitempty,max=32"`
	AssignedTo    *int64  `json:"assignedTo" validate:"omitempty,gt=0"`
	Status        string  `json:"status" validate:"omitempty,oneof=scheduled in-progress"`
	Notes         string  `json:"notes" validate:"max=4000"`
}

func (r *SurveyRequest) toWorkflow() workflow.SurveyRequest {
	return workflow.SurveyRequest{
		QuoteID:       r.QuoteID,
		ProjectID:     r.ProjectID,
		ScheduledDate: r.ScheduledDate,
		TimeWindow:    r.TimeWindow,
		AssignedTo:    r.AssignedTo,
		Status:        entity.VisitStatus(r.Status),
		Notes:         r.Notes,
	}
}

// InstallationRequest is the body of POST /api/installations
type InstallationRequest struct {
	QuoteID       *int64  `json:"quoteId" validate:"omitempty,gt=0"`
	ProjectID     *int64  `json:"projectId" validate:"omitempty,gt=0"`
	ScheduledDate string  `json:"scheduledDate" validate:"required,date"`
	StartTime     *string `json:"startTime" validate:"omitempty,clock"`
	EndTime       *string `json:"endTime" validate:"omitempty,clock"`
	AssignedTo    []int64 `json:"assignedTo" validate:"omitempty,dive,gt=0"`
	Status        string  `json:"status" validate:"omitempty,oneof=scheduled in-progress"`
	Notes         string  `json:"notes" validate:"max=4000"`
}

func (r *InstallationRequest) toWorkflow() workflow.InstallationRequest {
	return workflow.InstallationRequest{
		QuoteID:       r.QuoteID,
		ProjectID:     r.ProjectID,
		ScheduledDate: r.ScheduledDate,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		AssignedTo:    r.AssignedTo,
		Status:        entity.VisitStatus(r.Status),
		Notes:         r.Notes,
	}
}

// LineRequest is one quote line. Money accepts JSON numbers or strings.
type LineRequest struct {
	Description   string          `json:"description" validate:"required,max=500"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	CatalogItemID *int64          `json:"catalogItemId" validate:"omitempty,gt=0"`
}

// QuoteRequest is the body of POST /api/quotes
type QuoteRequest struct {
	ProjectID  *int64          `json:"projectId" validate:"omitempty,gt=0"`
	CustomerID *int64          `json:"customerId" validate:"omitempty,gt=0"`
	IssueDate  string          `json:"issueDate" validate:"omitempty,date"`
	ExpiryDate *string         `json:"expiryDate" validate:"omitempty,date"`
	Tax        decimal.Decimal `json:"tax"`
	Discount   decimal.Decimal `json:"discount"`
	Notes      string          `json:"notes" validate:"max=4000"`
	Terms      string          `json:"terms" validate:"max=4000"`
	Items      []LineRequest   `json:"items" validate:"required,min=1,dive"`
}

func (r *QuoteRequest) toInput() service.QuoteInput {
	return service.QuoteInput{
		ProjectID:  r.ProjectID,
		CustomerID: r.CustomerID,
		IssueDate:  r.IssueDate,
		ExpiryDate: r.ExpiryDate,
		Tax:        r.Tax,
		Discount:   r.Discount,
		Notes:      r.Notes,
		Terms:      r.Terms,
		Items:      toLines(r.Items),
	}
}

// ItemsRequest is the body of PUT /api/quotes/:id/items
type ItemsRequest struct {
	Tax      *decimal.Decimal `json:"tax"`
	Discount *decimal.Decimal `json:"discount"`
	Items    []LineRequest    `json:"items" validate:"required,min=1,dive"`
}

func (r *ItemsRequest) toInput() service.ItemsInput {
	return service.ItemsInput{
		Tax:      r.Tax,
		Discount: r.Discount,
		Items:    toLines(r.Items),
	}
}

// TransitionRequest is the body of every .../transitions endpoint
type TransitionRequest struct {
	Trigger string `json:"trigger" validate:"required"`
}

func toLines(lines []LineRequest) []service.LineInput {
	out := make([]service.LineInput, len(lines))
	for i, l := range lines {
		out[i] = service.LineInput{
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			CatalogItemID: l.CatalogItemID,
		}
	}
	return out
}

// newRequestValidator registers the calendar rules shared with the domain
func newRequestValidator() *utils.Validator {
	v := utils.NewValidator()
	must(v.RegisterStringRule("date", func(s string) bool {
		_, err := entity.NormalizeDate(s)
		return err == nil
	}))
	must(v.RegisterStringRule("clock", entity.IsClock))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// bind decodes the JSON body into dst and validates it
func (h *Handlers) bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperror.Validation("Invalid request body", nil)
	}
	if err := h.validator.Struct(dst); err != nil {
		if fields := utils.ValidationFields(err); fields != nil {
			return apperror.Validation("Invalid request", fields)
		}
		return err
	}
	return nil
}

// pathID parses a positive int64 route parameter
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("Invalid request", map[string]string{name: "numeric"})
	}
	return id, nil
}
