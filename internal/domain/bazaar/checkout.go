package bazaar

import (
	"slices"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutStatus represents the state of a booking session
type CheckoutStatus string

const (
	CheckoutStatusInProgress CheckoutStatus = "IN_PROGRESS"
	CheckoutStatusCompleted  CheckoutStatus = "COMPLETED"
)

// String returns the string representation of CheckoutStatus
func (s CheckoutStatus) String() string {
	return string(s)
}

// Checkout is a booking session at the cash desk.
// Total always equals the sum of the prices of the articles in ArticleIDs.
type Checkout struct {
	shared.Record
	EventID    uuid.UUID       `json:"event_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Status     CheckoutStatus  `json:"status"`
	Total      decimal.Decimal `json:"total"`
	ArticleIDs []uuid.UUID     `json:"article_ids"`
}

// NewCheckout opens an empty session for a cashier at an event
func NewCheckout(eventID, userID uuid.UUID) (*Checkout, error) {
	if eventID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Event ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("User ID cannot be empty")
	}
	return &Checkout{
		EventID:    eventID,
		UserID:     userID,
		Status:     CheckoutStatusInProgress,
		Total:      decimal.Zero,
		ArticleIDs: []uuid.UUID{},
	}, nil
}

// BelongsTo reports whether the session was opened by user for event
func (c *Checkout) BelongsTo(eventID, userID uuid.UUID) bool {
	return c.EventID == eventID && c.UserID == userID
}

// Contains reports whether the article is part of the session
func (c *Checkout) Contains(articleID uuid.UUID) bool {
	return slices.Contains(c.ArticleIDs, articleID)
}

// IsCompleted reports whether the session has been completed
func (c *Checkout) IsCompleted() bool {
	return c.Status == CheckoutStatusCompleted
}

// AddArticle books the article into the session. A completed session only
// accepts articles when reopen is set, in which case it goes back to
// IN_PROGRESS.
func (c *Checkout) AddArticle(a *Article, reopen bool) error {
	if a.IsBooked() {
		return ErrAlreadyBooked
	}
	if c.IsCompleted() && !reopen {
		return ErrStatusCompleted
	}
	if err := a.Book(c.ID); err != nil {
		return err
	}
	c.Status = CheckoutStatusInProgress
	c.ArticleIDs = append(c.ArticleIDs, a.ID)
	c.Total = c.Total.Add(a.Price)
	return nil
}

// RemoveArticle takes the article out of the session and releases it.
// Removing from a completed session reopens it.
func (c *Checkout) RemoveArticle(a *Article) error {
	idx := slices.Index(c.ArticleIDs, a.ID)
	if idx < 0 {
		return shared.ErrInvalidInput.WithMessage("Article is not part of this checkout")
	}
	c.ArticleIDs = slices.Delete(c.ArticleIDs, idx, idx+1)
	c.Total = c.Total.Sub(a.Price)
	c.Status = CheckoutStatusInProgress
	a.Release()
	return nil
}

// Complete marks every article sold and closes the session.
// articles must be exactly the session's articles.
func (c *Checkout) Complete(articles []*Article) error {
	if len(c.ArticleIDs) == 0 {
		return ErrEmpty
	}
	if c.IsCompleted() {
		return ErrStatusCompleted
	}
	if err := c.ensureMembers(articles); err != nil {
		return err
	}
	total := decimal.Zero
	for _, a := range articles {
		if err := a.MarkSold(); err != nil {
			return err
		}
		total = total.Add(a.Price)
	}
	c.Total = total
	c.Status = CheckoutStatusCompleted
	return nil
}

// Cancel releases every article of an in-progress session.
// The caller deletes the session afterwards.
func (c *Checkout) Cancel(articles []*Article) error {
	if c.IsCompleted() {
		return ErrStatusCompleted
	}
	for _, a := range articles {
		if a.CheckoutID != nil && *a.CheckoutID == c.ID {
			a.Release()
		}
	}
	c.ArticleIDs = []uuid.UUID{}
	c.Total = decimal.Zero
	return nil
}

func (c *Checkout) ensureMembers(articles []*Article) error {
	if len(articles) != len(c.ArticleIDs) {
		return shared.ErrInvalidState.WithMessage("Checkout articles are out of sync")
	}
	for _, a := range articles {
		if !c.Contains(a.ID) || a.CheckoutID == nil || *a.CheckoutID != c.ID {
			return shared.ErrInvalidState.WithMessage("Checkout articles are out of sync")
		}
	}
	return nil
}
