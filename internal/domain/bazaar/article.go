package bazaar

import (
	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ArticleStatus represents the booking state of an article
type ArticleStatus string

const (
	ArticleStatusCreated ArticleStatus = "CREATED"
	ArticleStatusBooked  ArticleStatus = "BOOKED"
	ArticleStatusSold    ArticleStatus = "SOLD"
)

// IsValid checks if the status is a valid ArticleStatus
func (s ArticleStatus) IsValid() bool {
	switch s {
	case ArticleStatusCreated, ArticleStatusBooked, ArticleStatusSold:
		return true
	}
	return false
}

// String returns the string representation of ArticleStatus
func (s ArticleStatus) String() string {
	return string(s)
}

// Article is an item a seller brings to the event, identified by its label
type Article struct {
	shared.Record
	SellerID    uuid.UUID       `json:"seller_id"`
	LabelNumber int             `json:"label_number"`
	Name        string          `json:"name"`
	Size        string          `json:"size,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Status      ArticleStatus   `json:"status"`
	CheckoutID  *uuid.UUID      `json:"checkout_id,omitempty"`
}

// NewArticle creates an unlabelled article in CREATED state
func NewArticle(sellerID uuid.UUID, name, size string, price decimal.Decimal) (*Article, error) {
	if sellerID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Seller ID cannot be empty")
	}
	if name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Article name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("Price cannot be negative")
	}
	return &Article{
		SellerID: sellerID,
		Name:     name,
		Size:     size,
		Price:    price,
		Status:   ArticleStatusCreated,
	}, nil
}

// IsBooked reports whether a checkout references the article
func (a *Article) IsBooked() bool {
	return a.CheckoutID != nil
}

// Book attaches the article to a checkout
func (a *Article) Book(checkoutID uuid.UUID) error {
	if a.IsBooked() || a.Status != ArticleStatusCreated {
		return ErrAlreadyBooked
	}
	a.CheckoutID = &checkoutID
	a.Status = ArticleStatusBooked
	return nil
}

// Release detaches the article from its checkout
func (a *Article) Release() {
	a.CheckoutID = nil
	a.Status = ArticleStatusCreated
}

// MarkSold moves a booked article to SOLD
func (a *Article) MarkSold() error {
	if !a.IsBooked() {
		return shared.ErrInvalidState.WithMessage("Only booked articles can be sold")
	}
	a.Status = ArticleStatusSold
	return nil
}

// MoveTo hands the article over to another seller. The label number is
// reset and must be allocated again in the new seller's scope.
func (a *Article) MoveTo(sellerID uuid.UUID) error {
	if a.Status != ArticleStatusCreated {
		return shared.ErrInvalidState.WithMessage("Only unbooked articles can change seller")
	}
	a.SellerID = sellerID
	a.LabelNumber = 0
	return nil
}

// SequenceNumber returns the label number
func (a *Article) SequenceNumber() int { return a.LabelNumber }

// SetSequenceNumber sets the label number
func (a *Article) SetSequenceNumber(n int) { a.LabelNumber = n }

// SequenceScope returns the seller the label is unique within
func (a *Article) SequenceScope() uuid.UUID { return a.SellerID }
