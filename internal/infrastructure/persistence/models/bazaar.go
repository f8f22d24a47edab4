package models

import "github.com/google/uuid"

// SellerModel is the sellers table
type SellerModel struct {
	RecordModel
	EventID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_sellers_event_user,priority:1;uniqueIndex:uq_sellers_event_number,priority:1"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_sellers_event_user,priority:2"`
	SellerNumber int       `gorm:"not null;uniqueIndex:uq_sellers_event_number,priority:2"`
}

// TableName returns the table name for GORM
func (SellerModel) TableName() string {
	return "sellers"
}

// ArticleModel is the articles table
type ArticleModel struct {
	RecordModel
	SellerID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_articles_seller_label,priority:1"`
	LabelNumber int        `gorm:"not null;uniqueIndex:uq_articles_seller_label,priority:2"`
	Status      string     `gorm:"type:varchar(20);not null;index"`
	CheckoutID  *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ArticleModel) TableName() string {
	return "articles"
}

// CheckoutModel is the checkouts table
type CheckoutModel struct {
	RecordModel
	EventID uuid.UUID `gorm:"type:uuid;not null;index:idx_checkouts_event_user,priority:1"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_checkouts_event_user,priority:2"`
	Status  string    `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (CheckoutModel) TableName() string {
	return "checkouts"
}

// All returns every model, in creation order
func All() []any {
	return []any{&SellerModel{}, &ArticleModel{}, &CheckoutModel{}}
}
