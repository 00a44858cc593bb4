package models

import (
	"regexp"
	"strings"
	"time"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lowercases name and replaces each run of whitespace with a hyphen
func Slugify(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

// ToolType is the modality a tool produces
type ToolType string

const (
	ToolTypeImage ToolType = "image"
	ToolTypeText  ToolType = "text"
	ToolTypeVideo ToolType = "video"
)

func (t ToolType) Valid() bool {
	switch t {
	case ToolTypeImage, ToolTypeText, ToolTypeVideo:
		return true
	}
	return false
}

// Category groups prompts by subject (e.g. "Architecture", "Portrait")
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
}

// Tool is the AI product a prompt is written for (e.g. "Midjourney")
type Tool struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Type      ToolType  `gorm:"type:varchar(10);default:'text'" json:"type"`
}

// Tag represents a free-form label that can be applied to prompts
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
}
