package bazaar

import (
	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SellerRole represents what a seller does at an event
type SellerRole string

const (
	SellerRoleStandard  SellerRole = "STANDARD"
	SellerRoleHelper    SellerRole = "HELPER"
	SellerRoleOrganizer SellerRole = "ORGANIZER"
)

// IsValid checks if the role is a valid SellerRole
func (r SellerRole) IsValid() bool {
	switch r {
	case SellerRoleStandard, SellerRoleHelper, SellerRoleOrganizer:
		return true
	}
	return false
}

// String returns the string representation of SellerRole
func (r SellerRole) String() string {
	return string(r)
}

// Seller is a user registered to sell at one event
type Seller struct {
	shared.Record
	EventID         uuid.UUID  `json:"event_id"`
	UserID          uuid.UUID  `json:"user_id"`
	SellerNumber    int        `json:"seller_number"`
	Role            SellerRole `json:"role"`
	MaxArticleCount int        `json:"max_article_count"`
}

// NewSeller creates an unnumbered seller
func NewSeller(eventID, userID uuid.UUID, role SellerRole, maxArticleCount int) (*Seller, error) {
	if eventID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Event ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("User ID cannot be empty")
	}
	if role == "" {
		role = SellerRoleStandard
	}
	if !role.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid seller role")
	}
	if maxArticleCount < 0 {
		return nil, shared.ErrInvalidInput.WithMessage("Max article count cannot be negative")
	}
	return &Seller{
		EventID:         eventID,
		UserID:          userID,
		Role:            role,
		MaxArticleCount: maxArticleCount,
	}, nil
}

// EnsureCapacity fails with ErrMaxExceeded if adding more articles to the
// current count would pass the seller's maximum. A maximum of 0 means unlimited.
func (s *Seller) EnsureCapacity(current, more int) error {
	if s.MaxArticleCount == 0 {
		return nil
	}
	if current+more > s.MaxArticleCount {
		return ErrMaxExceeded
	}
	return nil
}

// SequenceNumber returns the seller number
func (s *Seller) SequenceNumber() int { return s.SellerNumber }

// SetSequenceNumber sets the seller number
func (s *Seller) SetSequenceNumber(n int) { s.SellerNumber = n }

// SequenceScope returns the event the number is unique within
func (s *Seller) SequenceScope() uuid.UUID { return s.EventID }
