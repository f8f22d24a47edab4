package bazaar

import (
	"github.com/bazaar/backend/internal/domain/bazaar"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterSellerCommand registers a user as seller at an event
type RegisterSellerCommand struct {
	EventID uuid.UUID         `json:"event_id" validate:"required"`
	UserID  uuid.UUID         `json:"user_id" validate:"required"`
	Role    bazaar.SellerRole `json:"role" validate:"omitempty,oneof=STANDARD HELPER ORGANIZER"`
	// SellerNumber requests a specific number; nil takes the next free one
	SellerNumber    *int `json:"seller_number" validate:"omitempty,min=1"`
	MaxArticleCount int  `json:"max_article_count" validate:"min=0"`
}

// AddArticleCommand lists a new article for a seller
type AddArticleCommand struct {
	SellerID uuid.UUID       `json:"seller_id" validate:"required"`
	Name     string          `json:"name" validate:"required,max=200"`
	Size     string          `json:"size" validate:"max=50"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}
