package preview

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/imagekit"
	"github.com/mikepea/promptportal/pkg/portal/prompts"
	"go.uber.org/zap"
)

// Handler handles preview image redirects
type Handler struct {
	client   *catalog.Client
	endpoint string
	log      *zap.Logger
}

// NewHandler creates a new preview handler
func NewHandler(client *catalog.Client, endpoint string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{client: client, endpoint: endpoint, log: log.Named("preview")}
}

// Redirect sends the browser to the prompt's preview image, or to the
// default image when it has none
func (h *Handler) Redirect(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id", "prompt")
	if !ok {
		return
	}

	prompt, err := h.client.Prompt(c.Request.Context(), id)
	if err != nil {
		httpapi.Error(c, h.log, err, "Failed to fetch prompt")
		return
	}
	if prompt == nil || !prompts.Readable(&prompt.Prompt, auth.Session(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prompt not found"})
		return
	}

	path := ""
	if prompt.PreviewImagePath != nil {
		path = *prompt.PreviewImagePath
	}
	c.Redirect(http.StatusFound, imagekit.URL(h.endpoint, path))
}

// RegisterRoutes registers preview routes on the root router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/p/:id/preview", auth.OptionalAuth(), h.Redirect)
}
