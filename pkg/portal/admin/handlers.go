package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db     *gorm.DB
	client *catalog.Client
	log    *zap.Logger
}

// NewHandler creates a new admin handler. Prompt and reaction cleanup goes
// through client so cached reads are invalidated.
func NewHandler(db *gorm.DB, client *catalog.Client, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{db: db, client: client, log: log.Named("admin")}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at"`
	PromptCount int64  `json:"prompt_count"`
	LikeCount   int64  `json:"like_count"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	Name *string      `json:"name" binding:"omitempty,min=1"`
	Role *models.Role `json:"role" binding:"omitempty,role"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers      int64 `json:"total_users"`
	AdminUsers      int64 `json:"admin_users"`
	TotalPrompts    int64 `json:"total_prompts"`
	PublishedPublic int64 `json:"published_public_prompts"`
	DraftPrompts    int64 `json:"draft_prompts"`
	PrivatePrompts  int64 `json:"private_prompts"`
	TotalLikes      int64 `json:"total_likes"`
	TotalFavourites int64 `json:"total_favourites"`
	TotalCategories int64 `json:"total_categories"`
	TotalTools      int64 `json:"total_tools"`
	TotalTags       int64 `json:"total_tags"`
}

func (h *Handler) toResponse(user *models.User) UserResponse {
	var promptCount, likeCount int64
	h.db.Model(&models.Prompt{}).Where("created_by_id = ?", user.ID).Count(&promptCount)
	h.db.Model(&models.Like{}).Where("user_id = ?", user.ID).Count(&likeCount)

	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        string(user.Role),
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		PromptCount: promptCount,
		LikeCount:   likeCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Search by email or name"
// @Param role query string false "Filter by role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = h.toResponse(&users[i])
	}
	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "user")
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, h.toResponse(&user))
}

// UpdateUser changes a user's name or role (admin only)
// @Summary Update user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "user")
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	// Prevent admin from demoting themselves
	currentUserID, _ := auth.GetUserID(c)
	if id == currentUserID && req.Role != nil && *req.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			h.log.Error("failed to update user", zap.Uint("user_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		h.log.Info("user updated", zap.Uint("user_id", id), zap.Uint("by", currentUserID))
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, h.toResponse(&user))
}

// DeleteUser removes a user together with their prompts, likes and
// favourites (admin only)
// @Summary Delete user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "user")
	if !ok {
		return
	}

	// Prevent admin from deleting themselves
	currentUserID, _ := auth.GetUserID(c)
	if id == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.removeContent(c, &user); err != nil {
		httpapi.Error(c, h.log, err, "Failed to delete user content")
		return
	}

	if err := h.db.Delete(&user).Error; err != nil {
		h.log.Error("failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	h.log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("by", currentUserID))
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// removeContent deletes the user's prompts and reactions through the
// catalog so every affected cached read is invalidated
func (h *Handler) removeContent(c *gin.Context, user *models.User) error {
	ctx := c.Request.Context()
	admin := auth.Session(c)
	owner := catalog.Session{UserID: user.ID, Role: user.Role}

	var promptIDs []uint
	if err := h.db.Model(&models.Prompt{}).Where("created_by_id = ?", user.ID).Pluck("id", &promptIDs).Error; err != nil {
		return err
	}
	for _, pid := range promptIDs {
		if err := h.client.DeletePrompt(ctx, admin, pid); err != nil {
			return err
		}
	}

	var liked, favourited []uint
	if err := h.db.Model(&models.Like{}).Where("user_id = ?", user.ID).Pluck("prompt_id", &liked).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Favourite{}).Where("user_id = ?", user.ID).Pluck("prompt_id", &favourited).Error; err != nil {
		return err
	}
	for _, pid := range liked {
		if err := h.client.ToggleLike(ctx, owner, pid, true); err != nil {
			return err
		}
	}
	for _, pid := range favourited {
		if err := h.client.ToggleFavourite(ctx, owner, pid, true); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns system-wide statistics (admin only)
// @Summary System statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&stats.AdminUsers)
	h.db.Model(&models.Prompt{}).Count(&stats.TotalPrompts)
	h.db.Model(&models.Prompt{}).
		Where("status = ? AND visibility = ?", models.PromptStatusPublished, models.VisibilityPublic).
		Count(&stats.PublishedPublic)
	h.db.Model(&models.Prompt{}).Where("status = ?", models.PromptStatusDraft).Count(&stats.DraftPrompts)
	h.db.Model(&models.Prompt{}).Where("visibility = ?", models.VisibilityPrivate).Count(&stats.PrivatePrompts)
	h.db.Model(&models.Like{}).Count(&stats.TotalLikes)
	h.db.Model(&models.Favourite{}).Count(&stats.TotalFavourites)
	h.db.Model(&models.Category{}).Count(&stats.TotalCategories)
	h.db.Model(&models.Tool{}).Count(&stats.TotalTools)
	h.db.Model(&models.Tag{}).Count(&stats.TotalTags)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on a group that already requires an admin
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)
}
