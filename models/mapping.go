package models

import (
	"time"
)

// Mapping binds a short code to the URL it redirects to. Rows are never
// updated or deleted once created.
type Mapping struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ShortCode   string `gorm:"size:15;not null;uniqueIndex" json:"short_code"`
	OriginalURL string `gorm:"size:2000;not null;index;uniqueIndex:idx_mappings_generated_url,where:generated" json:"original_url"`
	// Generated marks codes picked by the generator. At most one generated
	// mapping may exist per URL.
	Generated bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
