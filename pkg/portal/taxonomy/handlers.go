package taxonomy

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"go.uber.org/zap"
)

// Handler handles categories, tools and tags
type Handler struct {
	client *catalog.Client
	log    *zap.Logger
}

// NewHandler creates a new taxonomy handler
func NewHandler(client *catalog.Client, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{client: client, log: log.Named("taxonomy")}
}

// CreateTagRequest represents the request to create a tag
type CreateTagRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// CreateCategoryRequest represents the request to create a category
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateToolRequest represents the request to create a tool
type CreateToolRequest struct {
	Name string          `json:"name" binding:"required,max=100"`
	Type models.ToolType `json:"type" binding:"omitempty,tool_type"`
}

// ListCategories returns all categories
// @Summary List categories
// @Tags taxonomy
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.client.Categories(c.Request.Context())
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// ListTools returns all tools
// @Summary List tools
// @Tags taxonomy
// @Produce json
// @Success 200 {array} models.Tool
// @Router /tools [get]
func (h *Handler) ListTools(c *gin.Context) {
	tools, err := h.client.Tools(c.Request.Context())
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch tools")
		return
	}
	c.JSON(http.StatusOK, tools)
}

// ListTags returns all tags
// @Summary List tags
// @Tags taxonomy
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.client.Tags(c.Request.Context())
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// CreateTag creates a tag; its slug is derived from the name
// @Summary Create tag
// @Tags taxonomy
// @Accept json
// @Produce json
// @Param request body CreateTagRequest true "Tag name"
// @Success 201 {object} models.Tag
// @Failure 409 {object} map[string]string "Tag already exists"
// @Security BearerAuth
// @Router /tags [post]
func (h *Handler) CreateTag(c *gin.Context) {
	var req CreateTagRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	tag, err := h.client.CreateTag(c.Request.Context(), auth.Session(c), req.Name)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to create tag")
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// CreateCategory creates a category (admin only)
// @Summary Create category
// @Tags taxonomy
// @Accept json
// @Produce json
// @Param request body CreateCategoryRequest true "Category name"
// @Success 201 {object} models.Category
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	category, err := h.client.CreateCategory(c.Request.Context(), auth.Session(c), req.Name)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

// CreateTool creates a tool (admin only)
// @Summary Create tool
// @Tags taxonomy
// @Accept json
// @Produce json
// @Param request body CreateToolRequest true "Tool name and type"
// @Success 201 {object} models.Tool
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/tools [post]
func (h *Handler) CreateTool(c *gin.Context) {
	var req CreateToolRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	tool, err := h.client.CreateTool(c.Request.Context(), auth.Session(c), req.Name, req.Type)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to create tool")
		return
	}
	c.JSON(http.StatusCreated, tool)
}

// RegisterRoutes registers the public listings and tag creation
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.ListCategories)
	rg.GET("/tools", h.ListTools)
	rg.GET("/tags", h.ListTags)
	rg.POST("/tags", auth.AuthMiddleware(), h.CreateTag)
}

// RegisterAdminRoutes registers category and tool management on a group
// that already requires an admin
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/categories", h.CreateCategory)
	rg.POST("/tools", h.CreateTool)
}
