package persistence

import (
	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SellerSchema maps sellers onto the sellers table
var SellerSchema = Schema[*bazaar.Seller]{
	Table: "sellers",
	New:   func() *bazaar.Seller { return &bazaar.Seller{} },
	Columns: func(s *bazaar.Seller) map[string]any {
		return map[string]any{
			bazaar.ColumnEventID:      s.EventID,
			bazaar.ColumnUserID:       s.UserID,
			bazaar.ColumnSellerNumber: s.SellerNumber,
		}
	},
	Queryable: []string{bazaar.ColumnEventID, bazaar.ColumnUserID, bazaar.ColumnSellerNumber},
}

// ArticleSchema maps articles onto the articles table
var ArticleSchema = Schema[*bazaar.Article]{
	Table: "articles",
	New:   func() *bazaar.Article { return &bazaar.Article{} },
	Columns: func(a *bazaar.Article) map[string]any {
		return map[string]any{
			bazaar.ColumnSellerID:    a.SellerID,
			bazaar.ColumnLabelNumber: a.LabelNumber,
			bazaar.ColumnStatus:      a.Status,
			bazaar.ColumnCheckoutID:  nullableID(a.CheckoutID),
		}
	},
	Queryable: []string{bazaar.ColumnSellerID, bazaar.ColumnLabelNumber, bazaar.ColumnStatus, bazaar.ColumnCheckoutID},
}

// CheckoutSchema maps booking sessions onto the checkouts table
var CheckoutSchema = Schema[*bazaar.Checkout]{
	Table: "checkouts",
	New:   func() *bazaar.Checkout { return &bazaar.Checkout{} },
	Columns: func(c *bazaar.Checkout) map[string]any {
		return map[string]any{
			bazaar.ColumnEventID: c.EventID,
			bazaar.ColumnUserID:  c.UserID,
			bazaar.ColumnStatus:  c.Status,
		}
	},
	Queryable: []string{bazaar.ColumnEventID, bazaar.ColumnUserID, bazaar.ColumnStatus},
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// NewSellerStore creates the seller store
func NewSellerStore(db *gorm.DB, opts ...StoreOption) *EntityStore[*bazaar.Seller] {
	return NewEntityStore(db, SellerSchema, opts...)
}

// NewArticleStore creates the article store
func NewArticleStore(db *gorm.DB, opts ...StoreOption) *EntityStore[*bazaar.Article] {
	return NewEntityStore(db, ArticleSchema, opts...)
}

// NewCheckoutStore creates the checkout store
func NewCheckoutStore(db *gorm.DB, opts ...StoreOption) *EntityStore[*bazaar.Checkout] {
	return NewEntityStore(db, CheckoutSchema, opts...)
}

// GormRepositories bundles the bazaar stores on one database session
type GormRepositories struct {
	sellers   *EntityStore[*bazaar.Seller]
	articles  *EntityStore[*bazaar.Article]
	checkouts *EntityStore[*bazaar.Checkout]
}

// NewRepositories creates all bazaar stores on db
func NewRepositories(db *gorm.DB, opts ...StoreOption) *GormRepositories {
	return &GormRepositories{
		sellers:   NewSellerStore(db, opts...),
		articles:  NewArticleStore(db, opts...),
		checkouts: NewCheckoutStore(db, opts...),
	}
}

// Sellers returns the seller store
func (r *GormRepositories) Sellers() bazaar.SellerRepository { return r.sellers }

// Articles returns the article store
func (r *GormRepositories) Articles() bazaar.ArticleRepository { return r.articles }

// Checkouts returns the checkout store
func (r *GormRepositories) Checkouts() bazaar.CheckoutRepository { return r.checkouts }

// withDB rebinds every store to db
func (r *GormRepositories) withDB(db *gorm.DB) *GormRepositories {
	return &GormRepositories{
		sellers:   r.sellers.WithDB(db),
		articles:  r.articles.WithDB(db),
		checkouts: r.checkouts.WithDB(db),
	}
}

var _ bazaar.Repositories = (*GormRepositories)(nil)
