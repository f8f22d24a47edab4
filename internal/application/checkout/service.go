// Package checkout runs the booking session lifecycle at the cash desk:
// reserving articles into a session, taking them out again, completing the
// sale and cancelling the session. Every operation changes the session and
// its articles in one unit of work.
package checkout

import (
	"context"
	"errors"

	"github.com/bazaar/backend/internal/application/validation"
	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/bazaar/backend/internal/infrastructure/config"
	"github.com/bazaar/backend/internal/infrastructure/logger"
	"github.com/bazaar/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Policy holds the configurable booking rules
type Policy struct {
	// AllowManualReopen lets a manual booking reopen a completed session
	AllowManualReopen bool
}

// PolicyFrom reads the policy from configuration
func PolicyFrom(cfg config.CheckoutConfig) Policy {
	return Policy{AllowManualReopen: cfg.AllowManualReopen}
}

// Service orchestrates booking sessions
type Service struct {
	repos  bazaar.Repositories
	scope  bazaar.TransactionScope
	policy Policy
	logger *zap.Logger
}

// NewService creates a Service. repos serves reads outside a unit of work.
func NewService(repos bazaar.Repositories, scope bazaar.TransactionScope, policy Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repos: repos, scope: scope, policy: policy, logger: logger}
}

// Open creates an empty in-progress session
func (s *Service) Open(ctx context.Context, cmd OpenCommand) (*bazaar.Checkout, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "open", telemetry.AttrEventID, cmd.EventID)
	defer span.End()
	ctx = withActor(ctx, cmd.EventID, cmd.UserID)

	if err := validation.Struct(cmd); err != nil {
		return nil, s.fail(ctx, span, err)
	}
	c, err := bazaar.NewCheckout(cmd.EventID, cmd.UserID)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	if _, err := s.repos.Checkouts().Create(ctx, c); err != nil {
		return nil, s.fail(ctx, span, err)
	}
	telemetry.SetAttributes(span, telemetry.AttrCheckoutID, c.ID)
	return c, nil
}

// Reserve books an article into a session
func (s *Service) Reserve(ctx context.Context, cmd ReserveCommand) (*bazaar.Checkout, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "reserve",
		telemetry.AttrCheckoutID, cmd.CheckoutID, telemetry.AttrArticleID, cmd.ArticleID, "manual", cmd.Manual)
	defer span.End()
	ctx = withActor(ctx, cmd.EventID, cmd.UserID)

	if err := validation.Struct(cmd); err != nil {
		return nil, s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, cmd.ArticleID)...)
	}

	var result *bazaar.Checkout
	err := s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
		c, err := s.loadOwned(ctx, repos, cmd.CheckoutID, cmd.EventID, cmd.UserID)
		if err != nil {
			return err
		}
		article, err := repos.Articles().Find(ctx, cmd.ArticleID)
		if err != nil {
			return err
		}
		seller, err := repos.Sellers().Find(ctx, article.SellerID)
		if err != nil {
			return err
		}
		if seller.EventID != cmd.EventID {
			return shared.ErrInvalidInput.WithMessage("Article belongs to another event")
		}

		reopen := cmd.Manual && s.policy.AllowManualReopen
		wasCompleted := c.IsCompleted()
		if err := c.AddArticle(article, reopen); err != nil {
			return err
		}
		if wasCompleted {
			logger.WithLogger(ctx, s.logger).Info("Completed checkout reopened by manual booking",
				zap.String("checkout_id", c.ID.String()),
				zap.String("article_id", article.ID.String()),
			)
		}
		if err := repos.Articles().Update(ctx, article); err != nil {
			return err
		}
		if err := repos.Checkouts().Update(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, cmd.ArticleID)...)
	}
	telemetry.SetAttributes(span, "articles", len(result.ArticleIDs))
	return result, nil
}

// Unreserve takes an article out of a session and releases it. A completed
// session goes back to in progress.
func (s *Service) Unreserve(ctx context.Context, cmd UnreserveCommand) (*bazaar.Checkout, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "unreserve",
		telemetry.AttrCheckoutID, cmd.CheckoutID, telemetry.AttrArticleID, cmd.ArticleID)
	defer span.End()
	ctx = withActor(ctx, cmd.EventID, cmd.UserID)

	if err := validation.Struct(cmd); err != nil {
		return nil, s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, cmd.ArticleID)...)
	}

	var result *bazaar.Checkout
	err := s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
		c, err := s.loadOwned(ctx, repos, cmd.CheckoutID, cmd.EventID, cmd.UserID)
		if err != nil {
			return err
		}
		article, err := repos.Articles().Find(ctx, cmd.ArticleID)
		if err != nil {
			return err
		}
		if err := c.RemoveArticle(article); err != nil {
			return err
		}
		if err := repos.Articles().Update(ctx, article); err != nil {
			return err
		}
		if err := repos.Checkouts().Update(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, cmd.ArticleID)...)
	}
	return result, nil
}

// Complete sells every article of the session and closes it
func (s *Service) Complete(ctx context.Context, cmd SessionCommand) (*bazaar.Checkout, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "complete", telemetry.AttrCheckoutID, cmd.CheckoutID)
	defer span.End()
	ctx = withActor(ctx, cmd.EventID, cmd.UserID)

	if err := validation.Struct(cmd); err != nil {
		return nil, s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, uuid.Nil)...)
	}

	var result *bazaar.Checkout
	err := s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
		c, err := s.loadOwned(ctx, repos, cmd.CheckoutID, cmd.EventID, cmd.UserID)
		if err != nil {
			return err
		}
		articles, err := repos.Articles().FindMany(ctx, c.ArticleIDs)
		if err != nil {
			return err
		}
		if err := c.Complete(articles); err != nil {
			return err
		}
		if err := repos.Articles().BulkUpdate(ctx, articles); err != nil {
			return err
		}
		if err := repos.Checkouts().Update(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, uuid.Nil)...)
	}
	telemetry.SetAttributes(span, "articles", len(result.ArticleIDs), "total", result.Total.String())
	return result, nil
}

// Cancel releases every article of an in-progress session and deletes it
func (s *Service) Cancel(ctx context.Context, cmd SessionCommand) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "cancel", telemetry.AttrCheckoutID, cmd.CheckoutID)
	defer span.End()
	ctx = withActor(ctx, cmd.EventID, cmd.UserID)

	if err := validation.Struct(cmd); err != nil {
		return s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, uuid.Nil)...)
	}

	err := s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
		c, err := s.loadOwned(ctx, repos, cmd.CheckoutID, cmd.EventID, cmd.UserID)
		if err != nil {
			return err
		}
		articles, err := repos.Articles().QueryByField(ctx, bazaar.ColumnCheckoutID, c.ID)
		if err != nil {
			return err
		}
		if err := c.Cancel(articles); err != nil {
			return err
		}
		if err := repos.Articles().BulkUpdate(ctx, articles); err != nil {
			return err
		}
		// a Reserve committed since c was loaded bumps its version
		return repos.Checkouts().DeleteVersioned(ctx, c)
	})
	if err != nil {
		return s.fail(ctx, span, err, checkoutFields(cmd.CheckoutID, uuid.Nil)...)
	}
	return nil
}

// Get returns a session with its articles in booking order
func (s *Service) Get(ctx context.Context, checkoutID uuid.UUID) (*Session, error) {
	c, err := s.repos.Checkouts().Find(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	articles, err := s.repos.Articles().FindMany(ctx, c.ArticleIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*bazaar.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}
	ordered := make([]*bazaar.Article, 0, len(c.ArticleIDs))
	for _, id := range c.ArticleIDs {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return &Session{Checkout: c, Articles: ordered}, nil
}

func (s *Service) loadOwned(ctx context.Context, repos bazaar.Repositories, checkoutID, eventID, userID uuid.UUID) (*bazaar.Checkout, error) {
	c, err := repos.Checkouts().Find(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if !c.BelongsTo(eventID, userID) {
		return nil, shared.ErrInvalidInput.WithMessage("Checkout belongs to another user or event")
	}
	return c, nil
}

// fail records err on the span and maps it to what callers see. Rule
// violations, lookups and version conflicts pass through; anything else is
// an infrastructure failure reported as shared.ErrSaveFailed.
func (s *Service) fail(ctx context.Context, span trace.Span, err error, fields ...zap.Field) error {
	err = classify(err)
	telemetry.RecordError(span, err)
	if errors.Is(err, shared.ErrSaveFailed) {
		logger.WithLogger(ctx, s.logger).Error("Checkout changes could not be saved",
			append(fields, zap.Error(err))...)
	}
	return err
}

// withActor tags ctx with the event and cashier so every log line of the
// operation carries them
func withActor(ctx context.Context, eventID, userID uuid.UUID) context.Context {
	return logger.WithUserID(logger.WithEventID(ctx, eventID.String()), userID.String())
}

func checkoutFields(checkoutID, articleID uuid.UUID) []zap.Field {
	fields := []zap.Field{zap.String("checkout_id", checkoutID.String())}
	if articleID != uuid.Nil {
		fields = append(fields, zap.String("article_id", articleID.String()))
	}
	return fields
}

var passThrough = []error{
	bazaar.ErrAlreadyBooked,
	bazaar.ErrEmpty,
	bazaar.ErrStatusCompleted,
	shared.ErrNotFound,
	shared.ErrInvalidInput,
	shared.ErrInvalidState,
	shared.ErrConcurrencyConflict,
	shared.ErrSaveFailed,
	context.Canceled,
	context.DeadlineExceeded,
}

func classify(err error) error {
	for _, target := range passThrough {
		if errors.Is(err, target) {
			return err
		}
	}
	return shared.ErrSaveFailed.Wrap(err)
}
