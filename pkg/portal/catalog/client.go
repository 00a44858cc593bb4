// Package catalog is the read/write API of the portal. Reads go through a
// shared querycache.Cache keyed by operation and parameters; writes go to
// the store and, only once they succeed, invalidate every cached read whose
// result they may have changed.
//
// Returned slices and pointers may be shared with other callers through the
// cache and must be treated as read-only.
package catalog

import (
	"context"

	"github.com/mikepea/promptportal/pkg/portal/filter"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"go.uber.org/zap"
)

// Session is the acting user. The zero value is an anonymous visitor.
type Session struct {
	UserID uint
	Role   models.Role
}

// Authenticated reports whether a user is signed in
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

func (s Session) actor() store.Actor {
	return store.Actor{UserID: s.UserID, Role: s.Role}
}

// Client exposes cached reads and invalidating writes
type Client struct {
	store    store.Store
	cache    *querycache.Cache
	log      *zap.Logger
	composer filter.Composer
}

// NewClient creates a catalog client. A nil logger disables logging.
func NewClient(s store.Store, cache *querycache.Cache, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{store: s, cache: cache, log: log.Named("catalog")}
}

// Cache returns the underlying cache, e.g. to subscribe to events
func (c *Client) Cache() *querycache.Cache {
	return c.cache
}

// Prompts lists published public prompts matching filters, newest first
func (c *Client) Prompts(ctx context.Context, filters models.PromptFilters) ([]models.PromptWithRelations, error) {
	return querycache.Fetch(ctx, c.cache, PromptsKey{Filters: filters}, func(ctx context.Context) ([]models.PromptWithRelations, error) {
		return c.store.ListPrompts(ctx, filters)
	})
}

// UserPrompts lists all of a user's prompts. No request is made for userID 0.
func (c *Client) UserPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error) {
	if userID == 0 {
		return []models.PromptWithRelations{}, nil
	}
	return querycache.Fetch(ctx, c.cache, UserPromptsKey{UserID: userID}, func(ctx context.Context) ([]models.PromptWithRelations, error) {
		return c.store.ListUserPrompts(ctx, userID)
	})
}

// Prompt returns one prompt, or nil when it does not exist or id is 0
func (c *Client) Prompt(ctx context.Context, id uint) (*models.PromptWithRelations, error) {
	if id == 0 {
		return nil, nil
	}
	return querycache.Fetch(ctx, c.cache, PromptKey{ID: id}, func(ctx context.Context) (*models.PromptWithRelations, error) {
		return c.store.GetPrompt(ctx, id)
	})
}

// Categories lists all categories by name
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	return querycache.Fetch(ctx, c.cache, CategoriesKey{}, c.store.ListCategories)
}

// Tools lists all tools by name
func (c *Client) Tools(ctx context.Context) ([]models.Tool, error) {
	return querycache.Fetch(ctx, c.cache, ToolsKey{}, c.store.ListTools)
}

// Tags lists all tags by name
func (c *Client) Tags(ctx context.Context) ([]models.Tag, error) {
	return querycache.Fetch(ctx, c.cache, TagsKey{}, c.store.ListTags)
}

// HasLiked reports whether the session user liked the prompt. Anonymous
// sessions always get false without a request.
func (c *Client) HasLiked(ctx context.Context, sess Session, promptID uint) (bool, error) {
	if !sess.Authenticated() || promptID == 0 {
		return false, nil
	}
	key := HasLikedKey{PromptID: promptID, UserID: sess.UserID}
	return querycache.Fetch(ctx, c.cache, key, func(ctx context.Context) (bool, error) {
		return c.store.HasLiked(ctx, promptID, sess.UserID)
	})
}

// HasFavourited reports whether the session user favourited the prompt
func (c *Client) HasFavourited(ctx context.Context, sess Session, promptID uint) (bool, error) {
	if !sess.Authenticated() || promptID == 0 {
		return false, nil
	}
	key := HasFavouritedKey{PromptID: promptID, UserID: sess.UserID}
	return querycache.Fetch(ctx, c.cache, key, func(ctx context.Context) (bool, error) {
		return c.store.HasFavourited(ctx, promptID, sess.UserID)
	})
}

// LikeCount returns the number of likes on a prompt
func (c *Client) LikeCount(ctx context.Context, promptID uint) (int, error) {
	if promptID == 0 {
		return 0, nil
	}
	return querycache.Fetch(ctx, c.cache, LikeCountKey{PromptID: promptID}, func(ctx context.Context) (int, error) {
		return c.store.CountLikes(ctx, promptID)
	})
}

// LikedPrompts lists the prompts a user liked
func (c *Client) LikedPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error) {
	if userID == 0 {
		return []models.PromptWithRelations{}, nil
	}
	return querycache.Fetch(ctx, c.cache, LikedPromptsKey{UserID: userID}, func(ctx context.Context) ([]models.PromptWithRelations, error) {
		return c.store.ListLikedPrompts(ctx, userID)
	})
}

// FavouritedPrompts lists the prompts a user favourited
func (c *Client) FavouritedPrompts(ctx context.Context, userID uint) ([]models.PromptWithRelations, error) {
	if userID == 0 {
		return []models.PromptWithRelations{}, nil
	}
	return querycache.Fetch(ctx, c.cache, FavouritedPromptsKey{UserID: userID}, func(ctx context.Context) ([]models.PromptWithRelations, error) {
		return c.store.ListFavouritedPrompts(ctx, userID)
	})
}
