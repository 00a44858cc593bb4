package imagekit

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves upload credentials to browsers
type Handler struct {
	signer *Signer
	log    *zap.Logger
}

// NewHandler creates a new imagekit handler
func NewHandler(signer *Signer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{signer: signer, log: log.Named("imagekit")}
}

// corsMiddleware answers browser preflights from any origin
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
	})
}

// Auth returns a fresh {token, expire, signature} triple
// @Summary Issue an ImageKit upload credential
// @Tags imagekit
// @Produce json
// @Success 200 {object} Credential
// @Failure 500 {object} map[string]string
// @Router /imagekit-auth [get]
func (h *Handler) Auth(c *gin.Context) {
	cred, err := h.signer.Sign(c.Request.Context())
	if errors.Is(err, ErrNotConfigured) {
		h.log.Error("IMAGEKIT_PRIVATE_KEY is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrNotConfigured.Error()})
		return
	}
	if err != nil {
		h.log.Error("failed to sign upload credential", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication parameters"})
		return
	}

	h.log.Debug("issued upload credential", zap.Int64("expire", cred.Expire))
	c.JSON(http.StatusOK, cred)
}

// RegisterRoutes registers the credential endpoint
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	ik := rg.Group("/imagekit-auth", corsMiddleware())
	ik.GET("", h.Auth)
	ik.POST("", h.Auth)
	ik.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}
