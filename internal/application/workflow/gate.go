package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

// gate describes one precondition-gated transition of a quote. The quote
// is read, checked, transitioned and re-read inside the caller's
// transaction; Build performs the dependent writes in between.
type gate[T any] struct {
	operation string
	trigger   domainwf.Trigger

	// required is the exact status the quote must be in. Empty leaves the
	// decision to the state machine.
	required entity.QuoteStatus

	// rejection formats the InvalidStateError message for a quote in current
	rejection func(current entity.QuoteStatus) string

	// verify checks the loaded quote before anything is written
	verify func(quote *entity.Quote) error

	// build writes the dependent rows
	build func(ctx context.Context, quote *entity.Quote) (T, error)
}

type gateOutcome[T any] struct {
	target T
	quote  *entity.Quote
	from   entity.QuoteStatus
}

// runGated must be called with a transactional context
func runGated[T any](ctx context.Context, e *engineImpl, scope entity.Scope, quoteID int64, g gate[T]) (*gateOutcome[T], error) {
	quote, err := e.quotes.GetByID(ctx, scope.TenantID, quoteID)
	if err != nil {
		return nil, apperror.AsPersistence("load quote", err)
	}
	if quote == nil {
		return nil, apperror.NotFound("Quote", quoteID)
	}

	if g.required != "" && quote.Status != g.required {
		return nil, g.reject(quote.ID, quote.Status)
	}

	machine, err := BuildQuoteStateMachine(quote.Status)
	if err != nil {
		return nil, apperror.AsPersistence("load quote", err)
	}
	if err := machine.Fire(ctx, g.trigger); err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) || errors.Is(err, domainwf.ErrGuardFailed) {
			return nil, g.reject(quote.ID, quote.Status)
		}
		return nil, err
	}
	next := entity.QuoteStatus(machine.State())

	if g.verify != nil {
		if err := g.verify(quote); err != nil {
			return nil, err
		}
	}

	var target T
	if g.build != nil {
		target, err = g.build(ctx, quote)
		if err != nil {
			return nil, apperror.AsPersistence(g.operation, err)
		}
	}

	changed, err := e.quotes.UpdateStatusIf(ctx, scope.TenantID, quote.ID, quote.Status, next)
	if err != nil {
		return nil, apperror.AsPersistence("update quote status", err)
	}
	if !changed {
		return nil, e.lostRace(ctx, scope, quote.ID, g.reject)
	}

	change := &entity.QuoteStatusChange{
		TenantID:   scope.TenantID,
		QuoteID:    quote.ID,
		FromStatus: quote.Status,
		ToStatus:   next,
		Trigger:    g.trigger.String(),
		ActorID:    scope.ActorID,
		CreatedAt:  e.now(),
	}
	if err := e.history.Create(ctx, change); err != nil {
		return nil, apperror.AsPersistence("record quote history", err)
	}

	refreshed, err := e.quotes.GetByID(ctx, scope.TenantID, quote.ID)
	if err != nil {
		return nil, apperror.AsPersistence("reload quote", err)
	}
	if refreshed == nil {
		return nil, apperror.NotFound("Quote", quote.ID)
	}

	return &gateOutcome[T]{target: target, quote: refreshed, from: quote.Status}, nil
}

// lostRace reports the status another transaction moved the quote to
func (e *engineImpl) lostRace(ctx context.Context, scope entity.Scope, quoteID int64, reject func(int64, entity.QuoteStatus) error) error {
	current, err := e.quotes.GetByID(ctx, scope.TenantID, quoteID)
	if err != nil {
		return apperror.AsPersistence("reload quote", err)
	}
	if current == nil {
		return apperror.NotFound("Quote", quoteID)
	}
	return reject(quoteID, current.Status)
}

func (g gate[T]) reject(quoteID int64, current entity.QuoteStatus) error {
	msg := fmt.Sprintf("Cannot %s a quote in '%s' status", g.trigger, current)
	if g.rejection != nil {
		msg = g.rejection(current)
	}
	return apperror.InvalidState("Quote", quoteID, current.String(), g.required.String(), msg)
}
