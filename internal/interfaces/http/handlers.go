package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/fieldops/internal/application/service"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/domain/entity"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
	"github.com/garyjia/fieldops/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine    workflow.Engine
	quotes    service.QuoteService
	visits    service.VisitService
	invoices  service.InvoiceService
	health    HealthChecker
	validator *utils.Validator
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		engine:    deps.Engine,
		quotes:    deps.Quotes,
		visits:    deps.Visits,
		invoices:  deps.Invoices,
		health:    deps.Health,
		validator: newRequestValidator(),
		logger:    logger,
	}
}

// InvoiceResponse is an invoice with any post-commit warnings
type InvoiceResponse struct {
	*entity.Invoice
	Warnings []string `json:"warnings,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if h.health != nil {
		resp.Components = make(map[string]string)
		for name, err := range h.health.Health(c.Request.Context()) {
			if err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "unhealthy"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	c.JSON(code, resp)
}

// CreateSurvey handles POST /api/surveys
func (h *Handlers) CreateSurvey(c *gin.Context) {
	var req SurveyRequest
	if err := h.bind(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.engine.ScheduleSurvey(c.Request.Context(), scope, req.toWorkflow())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateInstallation handles POST /api/installations
func (h *Handlers) CreateInstallation(c *gin.Context) {
	var req InstallationRequest
	if err := h.bind(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.engine.ScheduleInstallation(c.Request.Context(), scope, req.toWorkflow())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ConvertQuoteToInvoice handles POST /api/quotes/:id/convert-to-invoice
func (h *Handlers) ConvertQuoteToInvoice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.engine.ConvertQuoteToInvoice(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, InvoiceResponse{Invoice: result.Invoice, Warnings: result.Warnings})
}

// CreateQuote handles POST /api/quotes
func (h *Handlers) CreateQuote(c *gin.Context) {
	var req QuoteRequest
	if err := h.bind(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	quote, err := h.quotes.CreateQuote(c.Request.Context(), scope, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

// GetQuote handles GET /api/quotes/:id
func (h *Handlers) GetQuote(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	quote, err := h.quotes.GetQuote(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ReplaceQuoteItems handles PUT /api/quotes/:id/items
func (h *Handlers) ReplaceQuoteItems(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req ItemsRequest
	if err := h.bind(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	quote, err := h.quotes.ReplaceItems(c.Request.Context(), scope, id, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// TransitionQuote handles POST /api/quotes/:id/transitions
func (h *Handlers) TransitionQuote(c *gin.Context) {
	id, req, ok := h.transitionInput(c)
	if !ok {
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.engine.TransitionQuote(c.Request.Context(), scope, id, domainwf.Trigger(req.Trigger))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListQuoteHistory handles GET /api/quotes/:id/history
func (h *Handlers) ListQuoteHistory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	changes, err := h.quotes.ListHistory(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": changes})
}

// GetSurvey handles GET /api/surveys/:id
func (h *Handlers) GetSurvey(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	survey, err := h.visits.GetSurvey(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

// TransitionSurvey handles POST /api/surveys/:id/transitions
func (h *Handlers) TransitionSurvey(c *gin.Context) {
	id, req, ok := h.transitionInput(c)
	if !ok {
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.visits.TransitionSurvey(c.Request.Context(), scope, id, domainwf.Trigger(req.Trigger))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": result.Visit, "warnings": result.Warnings})
}

// GetInstallation handles GET /api/installations/:id
func (h *Handlers) GetInstallation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	installation, err := h.visits.GetInstallation(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, installation)
}

// TransitionInstallation handles POST /api/installations/:id/transitions
func (h *Handlers) TransitionInstallation(c *gin.Context) {
	id, req, ok := h.transitionInput(c)
	if !ok {
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.visits.TransitionInstallation(c.Request.Context(), scope, id, domainwf.Trigger(req.Trigger))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installation": result.Visit, "warnings": result.Warnings})
}

// ListProjectSurveys handles GET /api/projects/:id/surveys
func (h *Handlers) ListProjectSurveys(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	surveys, err := h.visits.ListSurveys(c.Request.Context(), scope, projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

// ListProjectInstallations handles GET /api/projects/:id/installations
func (h *Handlers) ListProjectInstallations(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	installations, err := h.visits.ListInstallations(c.Request.Context(), scope, projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installations": installations})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	invoice, err := h.invoices.GetInvoice(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// TransitionInvoice handles POST /api/invoices/:id/transitions
func (h *Handlers) TransitionInvoice(c *gin.Context) {
	id, req, ok := h.transitionInput(c)
	if !ok {
		return
	}

	scope, _ := scopeFrom(c)
	result, err := h.invoices.TransitionInvoice(c.Request.Context(), scope, id, domainwf.Trigger(req.Trigger))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetInvoiceDocument handles GET /api/invoices/:id/document
func (h *Handlers) GetInvoiceDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, _ := scopeFrom(c)
	doc, err := h.invoices.RenderDocument(c.Request.Context(), scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// transitionInput parses the id and trigger shared by the transition
// endpoints. It writes the error response itself.
func (h *Handlers) transitionInput(c *gin.Context) (int64, TransitionRequest, bool) {
	var req TransitionRequest

	id, err := pathID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return 0, req, false
	}
	if err := h.bind(c, &req); err != nil {
		h.respondError(c, err)
		return 0, req, false
	}
	return id, req, true
}
