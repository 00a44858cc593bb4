package catalog

import (
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
)

const (
	KindPrompts           querycache.Kind = "prompts"
	KindUserPrompts       querycache.Kind = "user-prompts"
	KindPrompt            querycache.Kind = "prompt"
	KindCategories        querycache.Kind = "categories"
	KindTools             querycache.Kind = "tools"
	KindTags              querycache.Kind = "tags"
	KindHasLiked          querycache.Kind = "has-liked"
	KindHasFavourited     querycache.Kind = "has-favourited"
	KindLikeCount         querycache.Kind = "like-count"
	KindLikedPrompts      querycache.Kind = "liked-prompts"
	KindFavouritedPrompts querycache.Kind = "favourite-prompts"
)

type PromptsKey struct{ Filters models.PromptFilters }

func (PromptsKey) Kind() querycache.Kind { return KindPrompts }

type UserPromptsKey struct{ UserID uint }

func (UserPromptsKey) Kind() querycache.Kind { return KindUserPrompts }

type PromptKey struct{ ID uint }

func (PromptKey) Kind() querycache.Kind { return KindPrompt }

type CategoriesKey struct{}

func (CategoriesKey) Kind() querycache.Kind { return KindCategories }

type ToolsKey struct{}

func (ToolsKey) Kind() querycache.Kind { return KindTools }

type TagsKey struct{}

func (TagsKey) Kind() querycache.Kind { return KindTags }

type HasLikedKey struct{ PromptID, UserID uint }

func (HasLikedKey) Kind() querycache.Kind { return KindHasLiked }

type HasFavouritedKey struct{ PromptID, UserID uint }

func (HasFavouritedKey) Kind() querycache.Kind { return KindHasFavourited }

type LikeCountKey struct{ PromptID uint }

func (LikeCountKey) Kind() querycache.Kind { return KindLikeCount }

type LikedPromptsKey struct{ UserID uint }

func (LikedPromptsKey) Kind() querycache.Kind { return KindLikedPrompts }

type FavouritedPromptsKey struct{ UserID uint }

func (FavouritedPromptsKey) Kind() querycache.Kind { return KindFavouritedPrompts }

// aboutPrompt matches every per-prompt key that refers to promptID, across
// all users
func aboutPrompt(promptID uint, kinds ...querycache.Kind) func(querycache.Key) bool {
	return func(k querycache.Key) bool {
		var id uint
		switch k := k.(type) {
		case PromptKey:
			id = k.ID
		case HasLikedKey:
			id = k.PromptID
		case HasFavouritedKey:
			id = k.PromptID
		case LikeCountKey:
			id = k.PromptID
		default:
			return false
		}
		if id != promptID {
			return false
		}
		for _, kind := range kinds {
			if k.Kind() == kind {
				return true
			}
		}
		return false
	}
}

// anyOf combines kind-wide invalidation with targeted matchers
func anyOf(kinds []querycache.Kind, matchers ...func(querycache.Key) bool) func(querycache.Key) bool {
	return func(k querycache.Key) bool {
		for _, kind := range kinds {
			if k.Kind() == kind {
				return true
			}
		}
		for _, m := range matchers {
			if m(k) {
				return true
			}
		}
		return false
	}
}
