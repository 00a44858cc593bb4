package prompts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/filter"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/imagekit"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"go.uber.org/zap"
)

// Handler handles prompt-related requests
type Handler struct {
	client   *catalog.Client
	endpoint string
	log      *zap.Logger
}

// NewHandler creates a new prompts handler. endpoint is the media URL
// endpoint used to resolve preview image paths.
func NewHandler(client *catalog.Client, endpoint string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{client: client, endpoint: endpoint, log: log.Named("prompts")}
}

// CreatePromptRequest represents the request to create a prompt
type CreatePromptRequest struct {
	Title            string              `json:"title" binding:"required,max=200"`
	Description      *string             `json:"description"`
	PromptText       string              `json:"prompt_text" binding:"required"`
	Type             models.PromptType   `json:"type" binding:"required,prompt_type"`
	Status           models.PromptStatus `json:"status" binding:"omitempty,prompt_status"`
	Visibility       models.Visibility   `json:"visibility" binding:"omitempty,visibility"`
	CategoryID       *uint               `json:"category_id"`
	ToolID           *uint               `json:"tool_id"`
	PreviewImagePath *string             `json:"preview_image_path"`
	TagIDs           []uint              `json:"tag_ids"`
}

// UpdatePromptRequest represents the request to update a prompt. Omitted
// fields are left unchanged; tag_ids, when present, replaces all tags.
type UpdatePromptRequest struct {
	Title            *string              `json:"title" binding:"omitempty,max=200"`
	Description      *string              `json:"description"`
	PromptText       *string              `json:"prompt_text"`
	Type             *models.PromptType   `json:"type" binding:"omitempty,prompt_type"`
	Status           *models.PromptStatus `json:"status" binding:"omitempty,prompt_status"`
	Visibility       *models.Visibility   `json:"visibility" binding:"omitempty,visibility"`
	CategoryID       *uint                `json:"category_id"`
	ToolID           *uint                `json:"tool_id"`
	PreviewImagePath *string              `json:"preview_image_path"`
	TagIDs           []uint               `json:"tag_ids"`
}

// PromptResponse is a prompt with its relations and resolved preview URL
type PromptResponse struct {
	models.PromptWithRelations
	PreviewURL string `json:"preview_url"`
}

// GalleryResponse is the gallery page payload
type GalleryResponse struct {
	Categories []models.Category    `json:"categories"`
	Tools      []models.Tool        `json:"tools"`
	Filters    models.PromptFilters `json:"filters"`
	Prompts    []PromptResponse     `json:"prompts"`
}

func (h *Handler) toResponse(p *models.PromptWithRelations) PromptResponse {
	path := ""
	if p.PreviewImagePath != nil {
		path = *p.PreviewImagePath
	}
	return PromptResponse{PromptWithRelations: *p, PreviewURL: imagekit.URL(h.endpoint, path)}
}

func (h *Handler) toResponses(prompts []models.PromptWithRelations) []PromptResponse {
	out := make([]PromptResponse, len(prompts))
	for i := range prompts {
		out[i] = h.toResponse(&prompts[i])
	}
	return out
}

// Readable reports whether sess may see p. Published public prompts are
// visible to everyone; others only to their creator and admins.
func Readable(p *models.Prompt, sess catalog.Session) bool {
	if p.Status == models.PromptStatusPublished && p.Visibility == models.VisibilityPublic {
		return true
	}
	return sess.Authenticated() && (p.CreatedByID == sess.UserID || sess.Role == models.RoleAdmin)
}

// List returns published public prompts
// @Summary List prompts
// @Description List published public prompts, newest first
// @Tags prompts
// @Produce json
// @Param category_id query int false "Filter by category ID"
// @Param tool_id query int false "Filter by tool ID"
// @Param type query string false "Filter by prompt type"
// @Param search query string false "Case-insensitive search in title and description"
// @Success 200 {array} PromptResponse
// @Failure 400 {object} map[string]string
// @Router /prompts [get]
func (h *Handler) List(c *gin.Context) {
	var filters models.PromptFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filters.Type != "" && !filters.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prompt type"})
		return
	}

	prompts, err := h.client.Prompts(c.Request.Context(), filters)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch prompts")
		return
	}
	c.JSON(http.StatusOK, h.toResponses(prompts))
}

// Gallery resolves a selection made by name and returns the page data
// @Summary Gallery
// @Description Categories, tools and the prompts matching a selection by name ("All" disables a filter)
// @Tags prompts
// @Produce json
// @Param category query string false "Category name"
// @Param tool query string false "Tool name"
// @Param type query string false "Prompt type"
// @Param search query string false "Search text"
// @Success 200 {object} GalleryResponse
// @Router /gallery [get]
func (h *Handler) Gallery(c *gin.Context) {
	var sel filter.Selection
	if err := c.ShouldBindQuery(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.client.Gallery(c.Request.Context(), sel)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to load gallery")
		return
	}

	c.JSON(http.StatusOK, GalleryResponse{
		Categories: view.Categories,
		Tools:      view.Tools,
		Filters:    view.Filters,
		Prompts:    h.toResponses(view.Prompts),
	})
}

// Get returns a single prompt
// @Summary Get prompt
// @Description Get a prompt by ID. Drafts and private prompts are only visible to their creator.
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} PromptResponse
// @Failure 404 {object} map[string]string
// @Router /prompts/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok {
		return
	}

	prompt, err := h.client.Prompt(c.Request.Context(), id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch prompt")
		return
	}
	if prompt == nil || !Readable(&prompt.Prompt, auth.Session(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prompt not found"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(prompt))
}

// Mine returns all prompts created by the current user
// @Summary My prompts
// @Tags prompts
// @Produce json
// @Success 200 {array} PromptResponse
// @Security BearerAuth
// @Router /me/prompts [get]
func (h *Handler) Mine(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	prompts, err := h.client.UserPrompts(c.Request.Context(), userID)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch prompts")
		return
	}
	c.JSON(http.StatusOK, h.toResponses(prompts))
}

// Create creates a new prompt owned by the current user
// @Summary Create prompt
// @Tags prompts
// @Accept json
// @Produce json
// @Param request body CreatePromptRequest true "Prompt details"
// @Success 201 {object} PromptResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /prompts [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreatePromptRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	created, err := h.client.CreatePrompt(c.Request.Context(), auth.Session(c), catalog.NewPrompt{
		PromptInput: store.PromptInput{
			Title:            req.Title,
			Description:      req.Description,
			PromptText:       req.PromptText,
			Type:             req.Type,
			Status:           req.Status,
			Visibility:       req.Visibility,
			CategoryID:       req.CategoryID,
			ToolID:           req.ToolID,
			PreviewImagePath: req.PreviewImagePath,
		},
		TagIDs: req.TagIDs,
	})
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to create prompt")
		return
	}

	h.respondWithPrompt(c, http.StatusCreated, created.ID)
}

// Update changes a prompt
// @Summary Update prompt
// @Tags prompts
// @Accept json
// @Produce json
// @Param id path int true "Prompt ID"
// @Param request body UpdatePromptRequest true "Fields to change"
// @Success 200 {object} PromptResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /prompts/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok {
		return
	}

	var req UpdatePromptRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	upd := store.PromptUpdate{
		Title:            req.Title,
		Description:      req.Description,
		PromptText:       req.PromptText,
		Type:             req.Type,
		Status:           req.Status,
		Visibility:       req.Visibility,
		CategoryID:       req.CategoryID,
		ToolID:           req.ToolID,
		PreviewImagePath: req.PreviewImagePath,
	}
	if err := h.client.UpdatePrompt(c.Request.Context(), auth.Session(c), id, upd, req.TagIDs); err != nil {
		httpapi.Error(c, h.log, err, "Failed to update prompt")
		return
	}

	h.respondWithPrompt(c, http.StatusOK, id)
}

// Delete removes a prompt
// @Summary Delete prompt
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /prompts/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok {
		return
	}

	if err := h.client.DeletePrompt(c.Request.Context(), auth.Session(c), id); err != nil {
		httpapi.Error(c, h.log, err, "Failed to delete prompt")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prompt deleted successfully"})
}

// respondWithPrompt re-reads a prompt after a write so the response carries
// its relations
func (h *Handler) respondWithPrompt(c *gin.Context, status int, id uint) {
	prompt, err := h.client.Prompt(c.Request.Context(), id)
	if err != nil || prompt == nil {
		if err == nil {
			err = &store.Error{Op: "get prompt", Kind: store.ErrNotFound}
		}
		httpapi.Error(c, h.log, err, "Failed to fetch prompt")
		return
	}
	c.JSON(status, h.toResponse(prompt))
}

// RegisterRoutes registers prompt routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/prompts", h.List)
	rg.GET("/gallery", h.Gallery)
	rg.GET("/prompts/:id", auth.OptionalAuth(), h.Get)
	rg.POST("/prompts", auth.AuthMiddleware(), h.Create)
	rg.PUT("/prompts/:id", auth.AuthMiddleware(), h.Update)
	rg.DELETE("/prompts/:id", auth.AuthMiddleware(), h.Delete)
	rg.GET("/me/prompts", auth.AuthMiddleware(), h.Mine)
}
