// Package bazaar registers sellers and lists their articles, allocating
// seller numbers and label numbers on the way.
package bazaar

import (
	"context"
	"sort"

	"github.com/bazaar/backend/internal/application/numbering"
	"github.com/bazaar/backend/internal/application/validation"
	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/bazaar/backend/internal/infrastructure/logger"
	"github.com/bazaar/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles seller and article operations
type Service struct {
	repos         bazaar.Repositories
	scope         bazaar.TransactionScope
	sellerNumbers *numbering.Allocator[*bazaar.Seller]
	labelNumbers  *numbering.Allocator[*bazaar.Article]
	logger        *zap.Logger
}

// NewService creates a Service. repos serves reads outside a unit of work;
// writes go through scope. Allocation waits are bounded by opts.
func NewService(repos bazaar.Repositories, scope bazaar.TransactionScope, locks shared.LockManager, logger *zap.Logger, opts ...numbering.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append(opts, numbering.WithLogger(logger))
	return &Service{
		repos:         repos,
		scope:         scope,
		sellerNumbers: numbering.New[*bazaar.Seller](numbering.SellerNumber, locks, opts...),
		labelNumbers:  numbering.New[*bazaar.Article](numbering.LabelNumber, locks, opts...),
		logger:        logger,
	}
}

// RegisterSeller creates a seller with the requested or the next free
// seller number. A second registration of the same user for the same event
// fails with shared.ErrConstraintViolation.
func (s *Service) RegisterSeller(ctx context.Context, cmd RegisterSellerCommand) (*bazaar.Seller, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bazaar", "register_seller", telemetry.AttrEventID, cmd.EventID)
	defer span.End()
	ctx = logger.WithUserID(logger.WithEventID(ctx, cmd.EventID.String()), cmd.UserID.String())

	if err := validation.Struct(cmd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	seller, err := bazaar.NewSeller(cmd.EventID, cmd.UserID, cmd.Role, cmd.MaxArticleCount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.sellerNumbers.WithLock(ctx, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
			if cmd.SellerNumber != nil {
				if err := s.sellerNumbers.Claim(ctx, repos.Sellers(), seller, *cmd.SellerNumber); err != nil {
					return err
				}
			} else if _, err := s.sellerNumbers.Next(ctx, repos.Sellers(), seller); err != nil {
				return err
			}
			_, err := repos.Sellers().Create(ctx, seller)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.AttrSellerID, seller.ID, "seller_number", seller.SellerNumber)
	logger.WithLogger(ctx, s.logger).Info("Seller registered",
		zap.String("seller_id", seller.ID.String()),
		zap.Int("seller_number", seller.SellerNumber),
	)
	return seller, nil
}

// RenumberSeller gives a seller the number desired. A seller already
// holding it moves above the event's highest number.
func (s *Service) RenumberSeller(ctx context.Context, sellerID uuid.UUID, desired int) (*bazaar.Seller, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bazaar", "renumber_seller", telemetry.AttrSellerID, sellerID)
	defer span.End()

	var seller *bazaar.Seller
	err := s.sellerNumbers.WithLock(ctx, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
			var err error
			seller, err = repos.Sellers().Find(ctx, sellerID)
			if err != nil {
				return err
			}
			if seller.SellerNumber == desired {
				return nil
			}
			if err := s.sellerNumbers.Claim(ctx, repos.Sellers(), seller, desired); err != nil {
				return err
			}
			return repos.Sellers().Update(ctx, seller)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return seller, nil
}

// DeleteSeller removes a seller and all of its articles. It is refused
// with shared.ErrInvalidState while any article is booked or sold.
func (s *Service) DeleteSeller(ctx context.Context, sellerID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "bazaar", "delete_seller", telemetry.AttrSellerID, sellerID)
	defer span.End()

	deleted := 0
	err := s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
		seller, err := repos.Sellers().Find(ctx, sellerID)
		if err != nil {
			return err
		}
		articles, err := repos.Articles().QueryByField(ctx, bazaar.ColumnSellerID, sellerID)
		if err != nil {
			return err
		}
		for _, a := range articles {
			if a.IsBooked() || a.Status != bazaar.ArticleStatusCreated {
				return shared.ErrInvalidState.WithMessage("Seller has booked or sold articles")
			}
		}
		// an article booked after the scan fails its version check
		for _, a := range articles {
			if err := repos.Articles().DeleteVersioned(ctx, a); err != nil {
				return err
			}
		}
		deleted = len(articles)
		return repos.Sellers().DeleteVersioned(ctx, seller)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("Seller deleted",
		zap.String("seller_id", sellerID.String()),
		zap.Int("articles_deleted", deleted),
	)
	return nil
}

// ListHelpers returns the helpers of an event ordered by seller number
func (s *Service) ListHelpers(ctx context.Context, eventID uuid.UUID) ([]*bazaar.Seller, error) {
	helpers, err := s.repos.Sellers().QueryScopedByPayloadField(ctx,
		bazaar.ColumnEventID, eventID, bazaar.FieldRole, bazaar.SellerRoleHelper)
	if err != nil {
		return nil, err
	}
	sort.Slice(helpers, func(i, j int) bool { return helpers[i].SellerNumber < helpers[j].SellerNumber })
	return helpers, nil
}

// AddArticle lists an article under the next free label number of its
// seller. Fails with bazaar.ErrMaxExceeded when the seller is full.
func (s *Service) AddArticle(ctx context.Context, cmd AddArticleCommand) (*bazaar.Article, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bazaar", "add_article", telemetry.AttrSellerID, cmd.SellerID)
	defer span.End()

	if err := validation.Struct(cmd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	article, err := bazaar.NewArticle(cmd.SellerID, cmd.Name, cmd.Size, cmd.Price)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.labelNumbers.WithLock(ctx, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
			seller, err := repos.Sellers().Find(ctx, cmd.SellerID)
			if err != nil {
				return err
			}
			count, err := repos.Articles().CountByField(ctx, bazaar.ColumnSellerID, seller.ID)
			if err != nil {
				return err
			}
			if err := seller.EnsureCapacity(int(count), 1); err != nil {
				return err
			}
			if _, err := s.labelNumbers.Next(ctx, repos.Articles(), article); err != nil {
				return err
			}
			_, err = repos.Articles().Create(ctx, article)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrArticleID, article.ID, "label_number", article.LabelNumber)
	return article, nil
}

// TakeOverArticles moves every unbooked article of one seller to another
// seller of the same event. Moved articles are relabelled contiguously
// after the target's highest label, keeping their previous order.
func (s *Service) TakeOverArticles(ctx context.Context, fromSellerID, toSellerID uuid.UUID) ([]*bazaar.Article, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bazaar", "take_over_articles",
		"from_seller_id", fromSellerID, "to_seller_id", toSellerID)
	defer span.End()

	if fromSellerID == toSellerID {
		err := shared.ErrInvalidInput.WithMessage("Source and target seller must differ")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var moved []*bazaar.Article
	err := s.labelNumbers.WithLock(ctx, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(repos bazaar.Repositories) error {
			from, err := repos.Sellers().Find(ctx, fromSellerID)
			if err != nil {
				return err
			}
			to, err := repos.Sellers().Find(ctx, toSellerID)
			if err != nil {
				return err
			}
			if from.EventID != to.EventID {
				return shared.ErrInvalidInput.WithMessage("Sellers belong to different events")
			}

			articles, err := repos.Articles().QueryByField(ctx, bazaar.ColumnSellerID, from.ID)
			if err != nil {
				return err
			}
			for _, a := range articles {
				if a.Status == bazaar.ArticleStatusCreated && !a.IsBooked() {
					moved = append(moved, a)
				}
			}
			if len(moved) == 0 {
				return nil
			}
			sort.Slice(moved, func(i, j int) bool { return moved[i].LabelNumber < moved[j].LabelNumber })

			current, err := repos.Articles().CountByField(ctx, bazaar.ColumnSellerID, to.ID)
			if err != nil {
				return err
			}
			if err := to.EnsureCapacity(int(current), len(moved)); err != nil {
				return err
			}
			for _, a := range moved {
				if err := a.MoveTo(to.ID); err != nil {
					return err
				}
			}
			if err := s.labelNumbers.AssignRun(ctx, repos.Articles(), to.ID, moved); err != nil {
				return err
			}
			return repos.Articles().BulkUpdate(ctx, moved)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Articles taken over",
		zap.String("from_seller_id", fromSellerID.String()),
		zap.String("to_seller_id", toSellerID.String()),
		zap.Int("count", len(moved)),
	)
	return moved, nil
}
