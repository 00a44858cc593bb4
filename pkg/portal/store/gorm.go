package store

import (
	"context"
	"errors"
	"strings"

	"github.com/mikepea/promptportal/pkg/portal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on top of a gorm connection
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

// withRelations preloads everything PromptWithRelations needs
func (s *GormStore) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Category").
		Preload("Tool").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Likes")
}

func toViews(prompts []models.Prompt) []models.PromptWithRelations {
	views := make([]models.PromptWithRelations, len(prompts))
	for i, p := range prompts {
		views[i] = models.NewPromptWithRelations(p)
	}
	return views
}

// likeEscaper makes LIKE wildcards in search text match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListPrompts returns published public prompts, newest first
func (s *GormStore) ListPrompts(ctx context.Context, filters models.PromptFilters) ([]models.PromptWithRelations, error) {
	query := s.withRelations(ctx).
		Where("status = ? AND visibility = ?", models.PromptStatusPublished, models.VisibilityPublic).
		Order("created_at DESC").Order("id DESC")

	if filters.CategoryID != 0 {
		query = query.Where("category_id = ?", filters.CategoryID)
	}
	if filters.ToolID != 0 {
		query = query.Where("tool_id = ?", filters.ToolID)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Search != "" {
		term := "%" + likeEscaper.Replace(strings.ToLower(filters.Search)) + "%"
		query = query.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`, term, term)
	}

	var prompts []models.Prompt
	if err := query.Find(&prompts).Error; err != nil {
		return nil, wrap("list prompts", err)
	}
	return toViews(prompts), nil
}

// ListUserPrompts returns every prompt the user created regardless of status
func (s *GormStore) ListUserPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error) {
	var prompts []models.Prompt
	err := s.withRelations(ctx).
		Where("created_by_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&prompts).Error
	if err != nil {
		return nil, wrap("list user prompts", err)
	}
	return toViews(prompts), nil
}

// GetPrompt returns a single prompt or nil when it does not exist
func (s *GormStore) GetPrompt(ctx context.Context, id uint) (*models.PromptWithRelations, error) {
	var prompt models.Prompt
	err := s.withRelations(ctx).Where("id = ?", id).Take(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get prompt", err)
	}
	view := models.NewPromptWithRelations(prompt)
	return &view, nil
}

// ListCategories returns all categories ordered by name
func (s *GormStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, wrap("list categories", err)
	}
	return categories, nil
}

// ListTools returns all tools ordered by name
func (s *GormStore) ListTools(ctx context.Context) ([]models.Tool, error) {
	tools := []models.Tool{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tools).Error; err != nil {
		return nil, wrap("list tools", err)
	}
	return tools, nil
}

// ListTags returns all tags ordered by name
func (s *GormStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, wrap("list tags", err)
	}
	return tags, nil
}

// HasLiked reports whether the (prompt, user) like row exists
func (s *GormStore) HasLiked(ctx context.Context, promptID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("prompt_id = ? AND user_id = ?", promptID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrap("has liked", err)
	}
	return count > 0, nil
}

// HasFavourited reports whether the (prompt, user) favourite row exists
func (s *GormStore) HasFavourited(ctx context.Context, promptID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Favourite{}).
		Where("prompt_id = ? AND user_id = ?", promptID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrap("has favourited", err)
	}
	return count > 0, nil
}

// CountLikes returns the number of likes on a prompt
func (s *GormStore) CountLikes(ctx context.Context, promptID uint) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("prompt_id = ?", promptID).
		Count(&count).Error
	if err != nil {
		return 0, wrap("count likes", err)
	}
	return int(count), nil
}

// ListLikedPrompts resolves the user's likes to prompts, most recent like first
func (s *GormStore) ListLikedPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("prompt_id", &ids).Error
	if err != nil {
		return nil, wrap("list liked prompts", err)
	}
	return s.resolve(ctx, "list liked prompts", userID, ids)
}

// ListFavouritedPrompts resolves the user's favourites to prompts
func (s *GormStore) ListFavouritedPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Favourite{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("prompt_id", &ids).Error
	if err != nil {
		return nil, wrap("list favourited prompts", err)
	}
	return s.resolve(ctx, "list favourited prompts", userID, ids)
}

// resolve loads the prompts for ids in the given order. References to
// prompts that no longer exist, or that the viewer can no longer read, are
// dropped.
func (s *GormStore) resolve(ctx context.Context, op string, viewerID uint, ids []uint) ([]models.PromptWithRelations, error) {
	if len(ids) == 0 {
		return []models.PromptWithRelations{}, nil
	}

	var prompts []models.Prompt
	err := s.withRelations(ctx).
		Where("id IN ?", ids).
		Where("(status = ? AND visibility = ?) OR created_by_id = ?",
			models.PromptStatusPublished, models.VisibilityPublic, viewerID).
		Find(&prompts).Error
	if err != nil {
		return nil, wrap(op, err)
	}

	byID := make(map[uint]models.Prompt, len(prompts))
	for _, p := range prompts {
		byID[p.ID] = p
	}
	views := make([]models.PromptWithRelations, 0, len(prompts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			views = append(views, models.NewPromptWithRelations(p))
		}
	}
	return views, nil
}

func tagRows(promptID uint, tagIDs []uint) []models.PromptTag {
	seen := make(map[uint]bool, len(tagIDs))
	rows := make([]models.PromptTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, models.PromptTag{PromptID: promptID, TagID: id})
	}
	return rows
}

// CreatePrompt inserts a prompt and its tag memberships in one transaction
func (s *GormStore) CreatePrompt(ctx context.Context, actor Actor, in PromptInput, tagIDs []uint) (*models.Prompt, error) {
	if actor.UserID == 0 {
		return nil, newError("create prompt", ErrForbidden)
	}

	prompt := models.Prompt{
		Title:            in.Title,
		Description:      in.Description,
		PromptText:       in.PromptText,
		Type:             in.Type,
		Status:           in.Status,
		Visibility:       in.Visibility,
		CategoryID:       in.CategoryID,
		ToolID:           in.ToolID,
		PreviewImagePath: in.PreviewImagePath,
		CreatedByID:      actor.UserID,
	}
	if prompt.Status == "" {
		prompt.Status = models.PromptStatusDraft
	}
	if prompt.Visibility == "" {
		prompt.Visibility = models.VisibilityPublic
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Likes", "Category", "Tool").Create(&prompt).Error; err != nil {
			return err
		}
		if rows := tagRows(prompt.ID, tagIDs); len(rows) > 0 {
			return tx.Create(&rows).Error
		}
		return nil
	})
	if err != nil {
		return nil, wrap("create prompt", err)
	}
	return &prompt, nil
}

// loadForWrite fetches a prompt and checks the actor may modify it
func loadForWrite(tx *gorm.DB, op string, actor Actor, id uint) (*models.Prompt, error) {
	var prompt models.Prompt
	if err := tx.Where("id = ?", id).Take(&prompt).Error; err != nil {
		return nil, wrap(op, err)
	}
	if !actor.CanModify(&prompt) {
		return nil, newError(op, ErrForbidden)
	}
	return &prompt, nil
}

// UpdatePrompt applies upd and, when tagIDs is non-nil, replaces the tag set
func (s *GormStore) UpdatePrompt(ctx context.Context, actor Actor, id uint, upd PromptUpdate, tagIDs []uint) error {
	const op = "update prompt"

	changes := map[string]interface{}{}
	if upd.Title != nil {
		changes["title"] = *upd.Title
	}
	if upd.Description != nil {
		changes["description"] = nullableString(*upd.Description)
	}
	if upd.PromptText != nil {
		changes["prompt_text"] = *upd.PromptText
	}
	if upd.Type != nil {
		changes["type"] = *upd.Type
	}
	if upd.Status != nil {
		changes["status"] = *upd.Status
	}
	if upd.Visibility != nil {
		changes["visibility"] = *upd.Visibility
	}
	if upd.CategoryID != nil {
		changes["category_id"] = nullableID(*upd.CategoryID)
	}
	if upd.ToolID != nil {
		changes["tool_id"] = nullableID(*upd.ToolID)
	}
	if upd.PreviewImagePath != nil {
		changes["preview_image_path"] = nullableString(*upd.PreviewImagePath)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prompt, err := loadForWrite(tx, op, actor, id)
		if err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := tx.Model(prompt).Updates(changes).Error; err != nil {
				return err
			}
		}
		if tagIDs == nil {
			return nil
		}
		if err := tx.Where("prompt_id = ?", id).Delete(&models.PromptTag{}).Error; err != nil {
			return err
		}
		if rows := tagRows(id, tagIDs); len(rows) > 0 {
			return tx.Create(&rows).Error
		}
		return nil
	})
	return wrap(op, err)
}

// DeletePrompt removes a prompt along with its tags, likes and favourites
func (s *GormStore) DeletePrompt(ctx context.Context, actor Actor, id uint) error {
	const op = "delete prompt"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prompt, err := loadForWrite(tx, op, actor, id)
		if err != nil {
			return err
		}
		for _, dep := range []interface{}{&models.PromptTag{}, &models.Like{}, &models.Favourite{}} {
			if err := tx.Where("prompt_id = ?", id).Delete(dep).Error; err != nil {
				return err
			}
		}
		return tx.Delete(prompt).Error
	})
	return wrap(op, err)
}

// InsertLike adds the (prompt, user) like row. A duplicate yields ErrConflict.
func (s *GormStore) InsertLike(ctx context.Context, promptID, userID uint) error {
	like := models.Like{PromptID: promptID, UserID: userID}
	return wrap("insert like", s.db.WithContext(ctx).Create(&like).Error)
}

// DeleteLike removes the (prompt, user) like row. Deleting a missing row is a no-op.
func (s *GormStore) DeleteLike(ctx context.Context, promptID, userID uint) error {
	err := s.db.WithContext(ctx).
		Where("prompt_id = ? AND user_id = ?", promptID, userID).
		Delete(&models.Like{}).Error
	return wrap("delete like", err)
}

// InsertFavourite adds the (prompt, user) favourite row
func (s *GormStore) InsertFavourite(ctx context.Context, promptID, userID uint) error {
	fav := models.Favourite{PromptID: promptID, UserID: userID}
	return wrap("insert favourite", s.db.WithContext(ctx).Create(&fav).Error)
}

// DeleteFavourite removes the (prompt, user) favourite row if present
func (s *GormStore) DeleteFavourite(ctx context.Context, promptID, userID uint) error {
	err := s.db.WithContext(ctx).
		Where("prompt_id = ? AND user_id = ?", promptID, userID).
		Delete(&models.Favourite{}).Error
	return wrap("delete favourite", err)
}

// CreateTag inserts a tag
func (s *GormStore) CreateTag(ctx context.Context, name, slug string) (*models.Tag, error) {
	tag := models.Tag{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, wrap("create tag", err)
	}
	return &tag, nil
}

// CreateCategory inserts a category
func (s *GormStore) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	category := models.Category{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, wrap("create category", err)
	}
	return &category, nil
}

// CreateTool inserts a tool
func (s *GormStore) CreateTool(ctx context.Context, name, slug string, toolType models.ToolType) (*models.Tool, error) {
	tool := models.Tool{Name: name, Slug: slug, Type: toolType}
	if err := s.db.WithContext(ctx).Create(&tool).Error; err != nil {
		return nil, wrap("create tool", err)
	}
	return &tool, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id uint) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
