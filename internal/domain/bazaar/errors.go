package bazaar

import "github.com/bazaar/backend/internal/domain/shared"

// Booking and listing rule violations
var (
	ErrAlreadyBooked   = shared.NewDomainError("ALREADY_BOOKED", "Article is already booked")
	ErrEmpty           = shared.NewDomainError("CHECKOUT_EMPTY", "Checkout has no articles")
	ErrStatusCompleted = shared.NewDomainError("CHECKOUT_COMPLETED", "Checkout is already completed")
	ErrMaxExceeded     = shared.NewDomainError("MAX_ARTICLES_EXCEEDED", "Seller reached the maximum article count")
)
