package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"go.uber.org/zap"
)

// NewPrompt is the input to CreatePrompt
type NewPrompt struct {
	store.PromptInput
	TagIDs []uint
}

func validatePrompt(in store.PromptInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if strings.TrimSpace(in.PromptText) == "" {
		return &ValidationError{Field: "prompt_text", Message: "must not be empty"}
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown prompt type %q", in.Type)}
	}
	if in.Status != "" && !in.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)}
	}
	if in.Visibility != "" && !in.Visibility.Valid() {
		return &ValidationError{Field: "visibility", Message: fmt.Sprintf("unknown visibility %q", in.Visibility)}
	}
	return nil
}

func validateUpdate(upd store.PromptUpdate) error {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if upd.PromptText != nil && strings.TrimSpace(*upd.PromptText) == "" {
		return &ValidationError{Field: "prompt_text", Message: "must not be empty"}
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown prompt type %q", *upd.Type)}
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *upd.Status)}
	}
	if upd.Visibility != nil && !upd.Visibility.Valid() {
		return &ValidationError{Field: "visibility", Message: fmt.Sprintf("unknown visibility %q", *upd.Visibility)}
	}
	return nil
}

// invalidate runs after a confirmed write
func (c *Client) invalidate(op string, match func(querycache.Key) bool) {
	keys := c.cache.Invalidate(match)
	c.log.Debug("invalidated cache", zap.String("op", op), zap.Int("keys", len(keys)))
}

// CreatePrompt stores a new prompt owned by the session user, with one tag
// membership per tag id
func (c *Client) CreatePrompt(ctx context.Context, sess Session, in NewPrompt) (*models.Prompt, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := validatePrompt(in.PromptInput); err != nil {
		return nil, err
	}

	prompt, err := c.store.CreatePrompt(ctx, sess.actor(), in.PromptInput, in.TagIDs)
	if err != nil {
		return nil, err
	}

	c.log.Info("prompt created", zap.Uint("prompt_id", prompt.ID), zap.Uint("user_id", sess.UserID))
	c.invalidate("create prompt", anyOf(
		[]querycache.Kind{KindPrompts, KindUserPrompts},
		aboutPrompt(prompt.ID, KindPrompt),
	))
	return prompt, nil
}

// UpdatePrompt changes the given fields. A non-nil tagIDs (even empty)
// replaces the prompt's whole tag set.
func (c *Client) UpdatePrompt(ctx context.Context, sess Session, id uint, upd store.PromptUpdate, tagIDs []uint) error {
	if !sess.Authenticated() {
		return ErrUnauthorized
	}
	if err := validateUpdate(upd); err != nil {
		return err
	}

	if err := c.store.UpdatePrompt(ctx, sess.actor(), id, upd, tagIDs); err != nil {
		return err
	}

	c.log.Info("prompt updated", zap.Uint("prompt_id", id), zap.Uint("user_id", sess.UserID))
	c.invalidate("update prompt", anyOf(
		[]querycache.Kind{KindPrompts, KindUserPrompts, KindLikedPrompts, KindFavouritedPrompts},
		aboutPrompt(id, KindPrompt),
	))
	return nil
}

// DeletePrompt removes a prompt together with its tags, likes and favourites
func (c *Client) DeletePrompt(ctx context.Context, sess Session, id uint) error {
	if !sess.Authenticated() {
		return ErrUnauthorized
	}

	if err := c.store.DeletePrompt(ctx, sess.actor(), id); err != nil {
		return err
	}

	c.log.Info("prompt deleted", zap.Uint("prompt_id", id), zap.Uint("user_id", sess.UserID))
	c.invalidate("delete prompt", anyOf(
		[]querycache.Kind{KindPrompts, KindUserPrompts, KindLikedPrompts, KindFavouritedPrompts},
		aboutPrompt(id, KindPrompt, KindHasLiked, KindHasFavourited, KindLikeCount),
	))
	return nil
}

// ToggleLike likes the prompt when isLiked is false and unlikes it
// otherwise. isLiked is the caller's view and may be stale: unliking a
// prompt that is not liked succeeds as a no-op, while liking one that is
// already liked fails with store.ErrConflict.
func (c *Client) ToggleLike(ctx context.Context, sess Session, promptID uint, isLiked bool) error {
	if !sess.Authenticated() {
		return ErrUnauthorized
	}

	var err error
	if isLiked {
		err = c.store.DeleteLike(ctx, promptID, sess.UserID)
	} else {
		err = c.store.InsertLike(ctx, promptID, sess.UserID)
	}
	if err != nil {
		return err
	}

	c.invalidate("toggle like", anyOf(
		[]querycache.Kind{KindPrompts, KindUserPrompts, KindLikedPrompts},
		aboutPrompt(promptID, KindHasLiked, KindLikeCount, KindPrompt),
	))
	return nil
}

// ToggleFavourite is the favourite counterpart of ToggleLike
func (c *Client) ToggleFavourite(ctx context.Context, sess Session, promptID uint, isFavourited bool) error {
	if !sess.Authenticated() {
		return ErrUnauthorized
	}

	var err error
	if isFavourited {
		err = c.store.DeleteFavourite(ctx, promptID, sess.UserID)
	} else {
		err = c.store.InsertFavourite(ctx, promptID, sess.UserID)
	}
	if err != nil {
		return err
	}

	c.invalidate("toggle favourite", anyOf(
		[]querycache.Kind{KindFavouritedPrompts},
		aboutPrompt(promptID, KindHasFavourited),
	))
	return nil
}

// CreateTag stores a tag whose slug is derived from its name
func (c *Client) CreateTag(ctx context.Context, sess Session, name string) (*models.Tag, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	tag, err := c.store.CreateTag(ctx, name, models.Slugify(name))
	if err != nil {
		return nil, err
	}

	c.invalidate("create tag", anyOf([]querycache.Kind{KindTags}))
	return tag, nil
}

func requireAdmin(sess Session) error {
	if !sess.Authenticated() {
		return ErrUnauthorized
	}
	if sess.Role != models.RoleAdmin {
		return &store.Error{Op: "manage taxonomy", Kind: store.ErrForbidden}
	}
	return nil
}

// CreateCategory stores a category. Only admins may manage categories.
func (c *Client) CreateCategory(ctx context.Context, sess Session, name string) (*models.Category, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	category, err := c.store.CreateCategory(ctx, name, models.Slugify(name))
	if err != nil {
		return nil, err
	}

	c.invalidate("create category", anyOf([]querycache.Kind{KindCategories}))
	return category, nil
}

// CreateTool stores a tool. Only admins may manage tools.
func (c *Client) CreateTool(ctx context.Context, sess Session, name string, toolType models.ToolType) (*models.Tool, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if toolType == "" {
		toolType = models.ToolTypeText
	}
	if !toolType.Valid() {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown tool type %q", toolType)}
	}

	tool, err := c.store.CreateTool(ctx, name, models.Slugify(name), toolType)
	if err != nil {
		return nil, err
	}

	c.invalidate("create tool", anyOf([]querycache.Kind{KindTools}))
	return tool, nil
}
