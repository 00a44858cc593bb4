package reactions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/prompts"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"go.uber.org/zap"
)

// Handler handles likes and favourites
type Handler struct {
	client *catalog.Client
	log    *zap.Logger
}

// NewHandler creates a new reactions handler
func NewHandler(client *catalog.Client, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{client: client, log: log.Named("reactions")}
}

// ToggleLikeRequest carries the caller's current view of the like
type ToggleLikeRequest struct {
	IsLiked bool `json:"is_liked"`
}

// ToggleFavouriteRequest carries the caller's current view of the favourite
type ToggleFavouriteRequest struct {
	IsFavourited bool `json:"is_favourited"`
}

// LikeResponse is the like state of a prompt for the current user
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// FavouriteResponse is the favourite state of a prompt for the current user
type FavouriteResponse struct {
	Favourited bool `json:"favourited"`
}

// visiblePrompt loads the prompt and writes a 404 when sess may not see it
func (h *Handler) visiblePrompt(c *gin.Context, id uint) bool {
	prompt, err := h.client.Prompt(c.Request.Context(), id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch prompt")
		return false
	}
	if prompt == nil || !prompts.Readable(&prompt.Prompt, auth.Session(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prompt not found"})
		return false
	}
	return true
}

func (h *Handler) likeState(c *gin.Context, id uint) (LikeResponse, error) {
	ctx := c.Request.Context()
	liked, err := h.client.HasLiked(ctx, auth.Session(c), id)
	if err != nil {
		return LikeResponse{}, err
	}
	count, err := h.client.LikeCount(ctx, id)
	if err != nil {
		return LikeResponse{}, err
	}
	return LikeResponse{Liked: liked, LikeCount: count}, nil
}

// GetLike returns whether the current user liked a prompt and its like count
// @Summary Like state
// @Tags reactions
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} LikeResponse
// @Failure 404 {object} map[string]string
// @Router /prompts/{id}/like [get]
func (h *Handler) GetLike(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok || !h.visiblePrompt(c, id) {
		return
	}

	state, err := h.likeState(c, id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch like state")
		return
	}
	c.JSON(http.StatusOK, state)
}

// ToggleLike likes or unlikes a prompt. A like that already exists is
// reported as 409 together with the current state.
// @Summary Toggle like
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path int true "Prompt ID"
// @Param request body ToggleLikeRequest true "Current like state as seen by the client"
// @Success 200 {object} LikeResponse
// @Failure 401 {object} map[string]string
// @Failure 409 {object} LikeResponse
// @Security BearerAuth
// @Router /prompts/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok {
		return
	}
	var req ToggleLikeRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}
	if !h.visiblePrompt(c, id) {
		return
	}

	status := http.StatusOK
	if err := h.client.ToggleLike(c.Request.Context(), auth.Session(c), id, req.IsLiked); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			httpapi.Error(c, h.log, err, "Failed to update like")
			return
		}
		status = http.StatusConflict
	}

	state, err := h.likeState(c, id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch like state")
		return
	}
	c.JSON(status, state)
}

// GetFavourite returns whether the current user favourited a prompt
// @Summary Favourite state
// @Tags reactions
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} FavouriteResponse
// @Router /prompts/{id}/favourite [get]
func (h *Handler) GetFavourite(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok || !h.visiblePrompt(c, id) {
		return
	}

	fav, err := h.client.HasFavourited(c.Request.Context(), auth.Session(c), id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch favourite state")
		return
	}
	c.JSON(http.StatusOK, FavouriteResponse{Favourited: fav})
}

// ToggleFavourite adds or removes a prompt from the current user's favourites
// @Summary Toggle favourite
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path int true "Prompt ID"
// @Param request body ToggleFavouriteRequest true "Current favourite state as seen by the client"
// @Success 200 {object} FavouriteResponse
// @Failure 409 {object} FavouriteResponse
// @Security BearerAuth
// @Router /prompts/{id}/favourite [post]
func (h *Handler) ToggleFavourite(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok {
		return
	}
	var req ToggleFavouriteRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}
	if !h.visiblePrompt(c, id) {
		return
	}

	sess := auth.Session(c)
	status := http.StatusOK
	if err := h.client.ToggleFavourite(c.Request.Context(), sess, id, req.IsFavourited); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			httpapi.Error(c, h.log, err, "Failed to update favourite")
			return
		}
		status = http.StatusConflict
	}

	fav, err := h.client.HasFavourited(c.Request.Context(), sess, id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch favourite state")
		return
	}
	c.JSON(status, FavouriteResponse{Favourited: fav})
}

// Liked lists the prompts the current user liked
// @Summary Liked prompts
// @Tags reactions
// @Produce json
// @Success 200 {array} models.PromptWithRelations
// @Security BearerAuth
// @Router /me/liked [get]
func (h *Handler) Liked(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	list, err := h.client.LikedPrompts(c.Request.Context(), userID)
	h.respondList(c, list, err)
}

// Favourites lists the prompts the current user favourited
// @Summary Favourite prompts
// @Tags reactions
// @Produce json
// @Success 200 {array} models.PromptWithRelations
// @Security BearerAuth
// @Router /me/favourites [get]
func (h *Handler) Favourites(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	list, err := h.client.FavouritedPrompts(c.Request.Context(), userID)
	h.respondList(c, list, err)
}

func (h *Handler) respondList(c *gin.Context, list []models.PromptWithRelations, err error) {
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch prompts")
		return
	}
	c.JSON(http.StatusOK, list)
}

// RegisterRoutes registers reaction routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/prompts/:id/like", auth.OptionalAuth(), h.GetLike)
	rg.POST("/prompts/:id/like", auth.AuthMiddleware(), h.ToggleLike)
	rg.GET("/prompts/:id/favourite", auth.OptionalAuth(), h.GetFavourite)
	rg.POST("/prompts/:id/favourite", auth.AuthMiddleware(), h.ToggleFavourite)
	rg.GET("/me/liked", auth.AuthMiddleware(), h.Liked)
	rg.GET("/me/favourites", auth.AuthMiddleware(), h.Favourites)
}
