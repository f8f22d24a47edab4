package checkout

import (
	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/google/uuid"
)

// OpenCommand opens a booking session for a cashier
type OpenCommand struct {
	EventID uuid.UUID `json:"event_id" validate:"required"`
	UserID  uuid.UUID `json:"user_id" validate:"required"`
}

// ReserveCommand books an article into a session
type ReserveCommand struct {
	CheckoutID uuid.UUID `json:"checkout_id" validate:"required"`
	ArticleID  uuid.UUID `json:"article_id" validate:"required"`
	EventID    uuid.UUID `json:"event_id" validate:"required"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
	// Manual marks a booking typed in by hand rather than scanned
	Manual bool `json:"manual"`
}

// UnreserveCommand takes an article out of a session
type UnreserveCommand struct {
	CheckoutID uuid.UUID `json:"checkout_id" validate:"required"`
	ArticleID  uuid.UUID `json:"article_id" validate:"required"`
	EventID    uuid.UUID `json:"event_id" validate:"required"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
}

// SessionCommand addresses a whole session (complete, cancel)
type SessionCommand struct {
	CheckoutID uuid.UUID `json:"checkout_id" validate:"required"`
	EventID    uuid.UUID `json:"event_id" validate:"required"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
}

// Session is a booking session with its articles in booking order
type Session struct {
	Checkout *bazaar.Checkout
	Articles []*bazaar.Article
}
