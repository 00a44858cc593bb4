package models

import "time"

// Like records that a user liked a prompt.
// At most one row exists per (prompt, user).
type Like struct {
	PromptID  uint      `gorm:"primaryKey;autoIncrement:false" json:"prompt_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the table name aligned with the favourites table
func (Like) TableName() string {
	return "prompt_likes"
}

// Favourite records that a user saved a prompt to their collection
type Favourite struct {
	PromptID  uint      `gorm:"primaryKey;autoIncrement:false" json:"prompt_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the favourites table name
func (Favourite) TableName() string {
	return "prompt_favourites"
}
