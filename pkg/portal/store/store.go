// Package store is the relational back end of the portal. It exposes the
// query and mutation primitives the catalog layer builds on and enforces the
// row-level write policy (only a prompt's creator or an admin may change it).
package store

import (
	"context"

	"github.com/mikepea/promptportal/pkg/portal/models"
)

// Actor identifies the user performing a write
type Actor struct {
	UserID uint
	Role   models.Role
}

// CanModify reports whether the actor may update or delete a prompt
func (a Actor) CanModify(p *models.Prompt) bool {
	return a.Role == models.RoleAdmin || (a.UserID != 0 && p.CreatedByID == a.UserID)
}

// PromptInput carries the fields for a new prompt
type PromptInput struct {
	Title            string
	Description      *string
	PromptText       string
	Type             models.PromptType
	Status           models.PromptStatus
	Visibility       models.Visibility
	CategoryID       *uint
	ToolID           *uint
	PreviewImagePath *string
}

// PromptUpdate carries the fields to change on an existing prompt. Nil
// pointers are left untouched. A CategoryID or ToolID pointing at 0 clears
// the reference, and an empty Description or PreviewImagePath clears it.
type PromptUpdate struct {
	Title            *string
	Description      *string
	PromptText       *string
	Type             *models.PromptType
	Status           *models.PromptStatus
	Visibility       *models.Visibility
	CategoryID       *uint
	ToolID           *uint
	PreviewImagePath *string
}

// Store is the request/response API over the portal schema
type Store interface {
	ListPrompts(ctx context.Context, filters models.PromptFilters) ([]models.PromptWithRelations, error)
	ListUserPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error)
	// GetPrompt returns nil without error when the prompt does not exist
	GetPrompt(ctx context.Context, id uint) (*models.PromptWithRelations, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTools(ctx context.Context) ([]models.Tool, error)
	ListTags(ctx context.Context) ([]models.Tag, error)

	HasLiked(ctx context.Context, promptID, userID uint) (bool, error)
	HasFavourited(ctx context.Context, promptID, userID uint) (bool, error)
	CountLikes(ctx context.Context, promptID uint) (int, error)
	ListLikedPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error)
	ListFavouritedPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error)

	CreatePrompt(ctx context.Context, actor Actor, in PromptInput, tagIDs []uint) (*models.Prompt, error)
	// UpdatePrompt replaces the prompt's tag set when tagIDs is non-nil
	UpdatePrompt(ctx context.Context, actor Actor, id uint, upd PromptUpdate, tagIDs []uint) error
	DeletePrompt(ctx context.Context, actor Actor, id uint) error

	InsertLike(ctx context.Context, promptID, userID uint) error
	DeleteLike(ctx context.Context, promptID, userID uint) error
	InsertFavourite(ctx context.Context, promptID, userID uint) error
	DeleteFavourite(ctx context.Context, promptID, userID uint) error

	CreateTag(ctx context.Context, name, slug string) (*models.Tag, error)
	CreateCategory(ctx context.Context, name, slug string) (*models.Category, error)
	CreateTool(ctx context.Context, name, slug string, toolType models.ToolType) (*models.Tool, error)
}
