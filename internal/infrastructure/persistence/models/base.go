package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecordModel provides the columns shared by every entity table.
type RecordModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt *time.Time     `gorm:"autoUpdateTime:false"`
	Version   int            `gorm:"not null;default:1"`
	Payload   datatypes.JSON `gorm:"not null"`
}
