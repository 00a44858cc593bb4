package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mikepea/promptportal/pkg/portal/filter"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// countingStore counts every call that reaches the backing store
type countingStore struct {
	store.Store
	reads  atomic.Int32
	writes atomic.Int32
}

func (s *countingStore) ListPrompts(ctx context.Context, f models.PromptFilters) ([]models.PromptWithRelations, error) {
	s.reads.Add(1)
	return s.Store.ListPrompts(ctx, f)
}

func (s *countingStore) CountLikes(ctx context.Context, promptID uint) (int, error) {
	s.reads.Add(1)
	return s.Store.CountLikes(ctx, promptID)
}

func (s *countingStore) CreatePrompt(ctx context.Context, a store.Actor, in store.PromptInput, tagIDs []uint) (*models.Prompt, error) {
	s.writes.Add(1)
	return s.Store.CreatePrompt(ctx, a, in, tagIDs)
}

func (s *countingStore) InsertLike(ctx context.Context, promptID, userID uint) error {
	s.writes.Add(1)
	return s.Store.InsertLike(ctx, promptID, userID)
}

func (s *countingStore) DeleteLike(ctx context.Context, promptID, userID uint) error {
	s.writes.Add(1)
	return s.Store.DeleteLike(ctx, promptID, userID)
}

func (s *countingStore) DeletePrompt(ctx context.Context, a store.Actor, id uint) error {
	s.writes.Add(1)
	return s.Store.DeletePrompt(ctx, a, id)
}

type fixture struct {
	client *Client
	store  *countingStore
	db     *gorm.DB
	owner  Session
	other  Session
	admin  Session
}

func setupTestClient(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	users := make([]models.User, 3)
	for i, u := range []struct {
		email string
		role  models.Role
	}{
		{"owner@example.com", models.RoleEditor},
		{"other@example.com", models.RoleEditor},
		{"admin@example.com", models.RoleAdmin},
	} {
		users[i] = models.User{Email: u.email, Name: "Test User", Role: u.role}
		require.NoError(t, db.Create(&users[i]).Error)
	}

	cs := &countingStore{Store: store.NewGormStore(db)}
	return &fixture{
		client: NewClient(cs, querycache.New(), nil),
		store:  cs,
		db:     db,
		owner:  Session{UserID: users[0].ID, Role: users[0].Role},
		other:  Session{UserID: users[1].ID, Role: users[1].Role},
		admin:  Session{UserID: users[2].ID, Role: users[2].Role},
	}
}

func newPrompt(title string) NewPrompt {
	return NewPrompt{PromptInput: store.PromptInput{
		Title:      title,
		PromptText: "body of " + title,
		Type:       models.PromptTypeImage,
		Status:     models.PromptStatusPublished,
		Visibility: models.VisibilityPublic,
	}}
}

func titles(prompts []models.PromptWithRelations) []string {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		out[i] = p.Title
	}
	return out
}

func TestCreatePromptScenario(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	before, err := f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)
	assert.Empty(t, before)

	in := newPrompt("T")
	in.PromptText = "P"
	in.TagIDs = []uint{}
	created, err := f.client.CreatePrompt(ctx, f.owner, in)
	require.NoError(t, err)
	assert.Equal(t, f.owner.UserID, created.CreatedByID)

	after, err := f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "T", after[0].Title)
	assert.Equal(t, "P", after[0].PromptText)
	assert.Empty(t, after[0].Tags)
	assert.Equal(t, 0, after[0].LikeCount)

	mine, err := f.client.UserPrompts(ctx, f.owner.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCreateReplacesCachedNotFound(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	first, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("first"))
	require.NoError(t, err)

	missing, err := f.client.Prompt(ctx, first.ID+1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("second"))
	require.NoError(t, err)
	require.Equal(t, first.ID+1, created.ID)

	got, err := f.client.Prompt(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)
}

func TestSearchEntriesReleasedByWrite(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		_, err := f.client.Prompts(ctx, models.PromptFilters{Search: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
	}
	require.Equal(t, 500, f.client.Cache().Len())

	_, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("T"))
	require.NoError(t, err)
	assert.Zero(t, f.client.Cache().Len())
}

func TestFilterKeysAreIndependent(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	image := newPrompt("sunset")
	_, err := f.client.CreatePrompt(ctx, f.owner, image)
	require.NoError(t, err)
	text := newPrompt("essay")
	text.Type = models.PromptTypeText
	_, err = f.client.CreatePrompt(ctx, f.owner, text)
	require.NoError(t, err)

	all, err := f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)
	images, err := f.client.Prompts(ctx, models.PromptFilters{Type: models.PromptTypeImage})
	require.NoError(t, err)
	search, err := f.client.Prompts(ctx, models.PromptFilters{Search: "ESS"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"sunset", "essay"}, titles(all))
	assert.Equal(t, []string{"sunset"}, titles(images))
	assert.Equal(t, []string{"essay"}, titles(search))

	reads := f.store.reads.Load()
	_, err = f.client.Prompts(ctx, models.PromptFilters{Type: models.PromptTypeImage})
	require.NoError(t, err)
	assert.Equal(t, reads, f.store.reads.Load(), "repeated filters are served from cache")
}

func TestToggleLikeRoundTrip(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	p, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("likeable"))
	require.NoError(t, err)

	liked, err := f.client.HasLiked(ctx, f.other, p.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	count, err := f.client.LikeCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, f.client.ToggleLike(ctx, f.other, p.ID, false))

	liked, err = f.client.HasLiked(ctx, f.other, p.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	count, err = f.client.LikeCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	prompt, err := f.client.Prompt(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, prompt)
	assert.True(t, prompt.IsLikedBy(f.other.UserID))

	likedList, err := f.client.LikedPrompts(ctx, f.other.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"likeable"}, titles(likedList))

	require.NoError(t, f.client.ToggleLike(ctx, f.other, p.ID, true))

	liked, err = f.client.HasLiked(ctx, f.other, p.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	count, err = f.client.LikeCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	likedList, err = f.client.LikedPrompts(ctx, f.other.UserID)
	require.NoError(t, err)
	assert.Empty(t, likedList)
}

func TestToggleFavourite(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	p, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("keeper"))
	require.NoError(t, err)

	fav, err := f.client.HasFavourited(ctx, f.other, p.ID)
	require.NoError(t, err)
	assert.False(t, fav)

	require.NoError(t, f.client.ToggleFavourite(ctx, f.other, p.ID, false))

	fav, err = f.client.HasFavourited(ctx, f.other, p.ID)
	require.NoError(t, err)
	assert.True(t, fav)
	list, err := f.client.FavouritedPrompts(ctx, f.other.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keeper"}, titles(list))

	require.NoError(t, f.client.ToggleFavourite(ctx, f.other, p.ID, true))
	list, err = f.client.FavouritedPrompts(ctx, f.other.UserID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConcurrentLikesStoreOneRow(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	p, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("popular"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.client.ToggleLike(ctx, f.other, p.ID, false)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	var rows int64
	require.NoError(t, f.db.Model(&models.Like{}).Where("prompt_id = ?", p.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	count, err := f.client.LikeCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnauthorizedWritesTouchNothing(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	p, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("guarded"))
	require.NoError(t, err)
	_, err = f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)

	var events atomic.Int32
	unsubscribe := f.client.Cache().Subscribe(func(querycache.Event) { events.Add(1) })
	defer unsubscribe()
	writes := f.store.writes.Load()

	anon := Session{}
	_, err = f.client.CreatePrompt(ctx, anon, newPrompt("nope"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, f.client.ToggleLike(ctx, anon, p.ID, false), ErrUnauthorized)
	assert.ErrorIs(t, f.client.ToggleFavourite(ctx, anon, p.ID, false), ErrUnauthorized)
	assert.ErrorIs(t, f.client.DeletePrompt(ctx, anon, p.ID), ErrUnauthorized)
	_, err = f.client.CreateTag(ctx, anon, "tag")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, writes, f.store.writes.Load())
	assert.Zero(t, events.Load())
	assert.Equal(t, querycache.StatusSuccess, f.client.Cache().Peek(PromptsKey{}).Status)
}

func TestFailedWriteDoesNotInvalidate(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	p, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("mine"))
	require.NoError(t, err)
	_, err = f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)

	var events atomic.Int32
	unsubscribe := f.client.Cache().Subscribe(func(ev querycache.Event) {
		if ev.Type == querycache.EventInvalidated {
			events.Add(1)
		}
	})
	defer unsubscribe()

	err = f.client.DeletePrompt(ctx, f.other, p.ID)
	assert.ErrorIs(t, err, store.ErrForbidden)

	bad := newPrompt("")
	_, err = f.client.CreatePrompt(ctx, f.owner, bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	assert.Zero(t, events.Load())
	assert.Equal(t, querycache.StatusSuccess, f.client.Cache().Peek(PromptsKey{}).Status)
}

func TestUpdateAndDeleteInvalidate(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	p, err := f.client.CreatePrompt(ctx, f.owner, newPrompt("draft title"))
	require.NoError(t, err)
	require.NoError(t, f.client.ToggleLike(ctx, f.other, p.ID, false))

	_, err = f.client.Prompt(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)

	title := "final title"
	require.NoError(t, f.client.UpdatePrompt(ctx, f.owner, p.ID, store.PromptUpdate{Title: &title}, nil))

	got, err := f.client.Prompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "final title", got.Title)
	list, err := f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"final title"}, titles(list))

	_, err = f.client.LikeCount(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.client.LikedPrompts(ctx, f.other.UserID)
	require.NoError(t, err)

	require.NoError(t, f.client.DeletePrompt(ctx, f.admin, p.ID))

	got, err = f.client.Prompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	count, err := f.client.LikeCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	liked, err := f.client.LikedPrompts(ctx, f.other.UserID)
	require.NoError(t, err)
	assert.Empty(t, liked)
	list, err = f.client.Prompts(ctx, models.PromptFilters{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTaxonomyWrites(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	tags, err := f.client.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	tag, err := f.client.CreateTag(ctx, f.owner, "  Dark Fantasy ")
	require.NoError(t, err)
	assert.Equal(t, "Dark Fantasy", tag.Name)
	assert.Equal(t, "dark-fantasy", tag.Slug)

	tags, err = f.client.Tags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	_, err = f.client.CreateCategory(ctx, f.owner, "Art")
	assert.ErrorIs(t, err, store.ErrForbidden)

	cat, err := f.client.CreateCategory(ctx, f.admin, "Art")
	require.NoError(t, err)
	assert.Equal(t, "art", cat.Slug)

	tool, err := f.client.CreateTool(ctx, f.admin, "Midjourney", "")
	require.NoError(t, err)
	assert.Equal(t, models.ToolTypeText, tool.Type)

	_, err = f.client.CreateTool(ctx, f.admin, "Midjourney", models.ToolTypeImage)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestGallery(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	art, err := f.client.CreateCategory(ctx, f.admin, "Art")
	require.NoError(t, err)
	_, err = f.client.CreateTool(ctx, f.admin, "Midjourney", models.ToolTypeImage)
	require.NoError(t, err)

	inArt := newPrompt("castle")
	inArt.CategoryID = &art.ID
	_, err = f.client.CreatePrompt(ctx, f.owner, inArt)
	require.NoError(t, err)
	_, err = f.client.CreatePrompt(ctx, f.owner, newPrompt("uncategorised"))
	require.NoError(t, err)

	view, err := f.client.Gallery(ctx, filter.Selection{Category: "Art", Tool: filter.All, Type: filter.All})
	require.NoError(t, err)
	assert.Len(t, view.Categories, 1)
	assert.Len(t, view.Tools, 1)
	assert.Equal(t, art.ID, view.Filters.CategoryID)
	assert.Equal(t, []string{"castle"}, titles(view.Prompts))

	view, err = f.client.Gallery(ctx, filter.Selection{Category: "Unknown"})
	require.NoError(t, err)
	assert.True(t, view.Filters.IsZero())
	assert.Len(t, view.Prompts, 2)
}

func TestAnonymousReadsSkipStore(t *testing.T) {
	f := setupTestClient(t)
	ctx := context.Background()

	liked, err := f.client.HasLiked(ctx, Session{}, 1)
	require.NoError(t, err)
	assert.False(t, liked)

	prompt, err := f.client.Prompt(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, prompt)

	mine, err := f.client.UserPrompts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Zero(t, f.client.Cache().Len())
}
