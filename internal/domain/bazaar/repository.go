package bazaar

import (
	"context"

	"github.com/bazaar/backend/internal/domain/shared"
)

// Promoted column names usable with QueryByField, CountByField and MaxByField
const (
	ColumnEventID      = "event_id"
	ColumnUserID       = "user_id"
	ColumnSellerID     = "seller_id"
	ColumnSellerNumber = "seller_number"
	ColumnLabelNumber  = "label_number"
	ColumnStatus       = "status"
	ColumnCheckoutID   = "checkout_id"
)

// Payload field names usable with QueryByPayloadField
const (
	FieldRole = "role"
	FieldSize = "size"
)

// SellerRepository persists sellers
type SellerRepository = shared.Store[*Seller]

// ArticleRepository persists articles
type ArticleRepository = shared.Store[*Article]

// CheckoutRepository persists booking sessions
type CheckoutRepository = shared.Store[*Checkout]

// Repositories gives access to all bazaar stores bound to the same database
// session
type Repositories interface {
	Sellers() SellerRepository
	Articles() ArticleRepository
	Checkouts() CheckoutRepository
}

// TransactionScope runs fn inside one unit of work. If fn returns an error
// or ctx is cancelled before commit, nothing fn wrote is kept.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// NoOpTransactionScope runs fn against the given repositories without a
// transaction. Useful for tests of callers.
type NoOpTransactionScope struct {
	Repos Repositories
}

// Execute calls fn directly
func (s NoOpTransactionScope) Execute(ctx context.Context, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.Repos)
}
