package models

import (
	"time"
)

// PromptType classifies the AI modality a prompt targets
type PromptType string

const (
	PromptTypeImage PromptType = "image"
	PromptTypeText  PromptType = "text"
	PromptTypeVideo PromptType = "video"
	PromptTypeCode  PromptType = "code"
)

// Valid reports whether t is a known prompt type
func (t PromptType) Valid() bool {
	switch t {
	case PromptTypeImage, PromptTypeText, PromptTypeVideo, PromptTypeCode:
		return true
	}
	return false
}

// PromptStatus is the publication state of a prompt
type PromptStatus string

const (
	PromptStatusDraft     PromptStatus = "draft"
	PromptStatusPublished PromptStatus = "published"
	PromptStatusArchived  PromptStatus = "archived"
)

// Valid reports whether s is a known status
func (s PromptStatus) Valid() bool {
	switch s {
	case PromptStatusDraft, PromptStatusPublished, PromptStatusArchived:
		return true
	}
	return false
}

// Visibility controls who can see a prompt in public listings
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Prompt is a stored instruction text for an AI tool.
// Prompts are hard-deleted together with their tags, likes and favourites.
type Prompt struct {
	ID               uint         `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	Title            string       `gorm:"not null" json:"title"`
	Description      *string      `json:"description"`
	PromptText       string       `gorm:"not null" json:"prompt_text"`
	Type             PromptType   `gorm:"type:varchar(10);not null;index" json:"type"`
	Status           PromptStatus `gorm:"type:varchar(10);default:'draft';index" json:"status"`
	Visibility       Visibility   `gorm:"type:varchar(10);default:'public';index" json:"visibility"`
	CategoryID       *uint        `gorm:"index" json:"category_id"`
	ToolID           *uint        `gorm:"index" json:"tool_id"`
	PreviewImagePath *string      `json:"preview_image_path"`
	CreatedByID      uint         `gorm:"not null;index" json:"created_by"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tool     *Tool     `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
	Tags     []Tag     `gorm:"many2many:prompt_tags;" json:"tags"`
	Likes    []Like    `gorm:"foreignKey:PromptID" json:"likes,omitempty"`
}

// PromptWithRelations is the read view of a prompt joined with its
// category, tool, tags and the user ids of everyone who liked it.
type PromptWithRelations struct {
	Prompt
	LikedBy   []uint `json:"liked_by"`
	LikeCount int    `json:"like_count"`
}

// NewPromptWithRelations normalizes a preloaded Prompt row into the read view
func NewPromptWithRelations(p Prompt) PromptWithRelations {
	likedBy := make([]uint, len(p.Likes))
	for i, l := range p.Likes {
		likedBy[i] = l.UserID
	}
	if p.Tags == nil {
		p.Tags = []Tag{}
	}
	p.Likes = nil
	return PromptWithRelations{
		Prompt:    p,
		LikedBy:   likedBy,
		LikeCount: len(likedBy),
	}
}

// IsLikedBy reports whether userID appears among the prompt's likes
func (p PromptWithRelations) IsLikedBy(userID uint) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// PromptTag joins prompts to tags
type PromptTag struct {
	PromptID uint `gorm:"primaryKey" json:"prompt_id"`
	TagID    uint `gorm:"primaryKey" json:"tag_id"`
}
