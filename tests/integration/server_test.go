package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/admin"
	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/httpapi"
	"github.com/mikepea/promptportal/pkg/portal/imagekit"
	"github.com/mikepea/promptportal/pkg/portal/middleware"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/preview"
	"github.com/mikepea/promptportal/pkg/portal/prompts"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
	"github.com/mikepea/promptportal/pkg/portal/reactions"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"github.com/mikepea/promptportal/pkg/portal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testEndpoint = "https://ik.imagekit.io/test"

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// setupFullServer creates a Gin engine with all routes registered.
// This mirrors newRouter in cmd/portal-server.
func setupFullServer(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	httpapi.RegisterValidators()
	log := zaptest.NewLogger(t)

	client := catalog.NewClient(store.NewGormStore(db), querycache.New(), log)
	signer := imagekit.NewSigner("private_test")

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "promptportal"})
		})

		auth.NewHandler(db, log).RegisterRoutes(api.Group("/auth"))
		prompts.NewHandler(client, testEndpoint, log).RegisterRoutes(api)
		reactions.NewHandler(client, log).RegisterRoutes(api)

		taxonomyHandler := taxonomy.NewHandler(client, log)
		taxonomyHandler.RegisterRoutes(api)

		imagekit.NewHandler(signer, log).RegisterRoutes(api)

		adminGroup := api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin())
		admin.NewHandler(db, client, log).RegisterRoutes(adminGroup)
		taxonomyHandler.RegisterAdminRoutes(adminGroup)
	}

	preview.NewHandler(client, testEndpoint, log).RegisterRoutes(r)
	return r
}

func doRequest(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func register(t *testing.T, router *gin.Engine, email string) string {
	resp := doRequest(router, "POST", "/api/auth/register", gin.H{
		"email": email, "password": "password123", "name": "Tester",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var out auth.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Token
}

// TestServerStartup verifies that all routes can be registered without conflicts
func TestServerStartup(t *testing.T) {
	db := setupTestDB(t)

	// This will panic if there are route conflicts
	router := setupFullServer(t, db)

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestProtectedEndpointsRequireAuth verifies that protected endpoints return 401 without auth
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/prompts"},
		{"PUT", "/api/prompts/1"},
		{"DELETE", "/api/prompts/1"},
		{"GET", "/api/me/prompts"},
		{"POST", "/api/prompts/1/like"},
		{"POST", "/api/prompts/1/favourite"},
		{"GET", "/api/me/liked"},
		{"GET", "/api/me/favourites"},
		{"POST", "/api/tags"},
		{"GET", "/api/auth/me"},
		{"GET", "/api/admin/stats"},
		{"POST", "/api/admin/categories"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := doRequest(router, endpoint.method, endpoint.path, nil, "")
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPublicEndpointsNoAuth verifies that public endpoints don't require auth
func TestPublicEndpointsNoAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/api/prompts", http.StatusOK},
		{"GET", "/api/gallery", http.StatusOK},
		{"GET", "/api/categories", http.StatusOK},
		{"GET", "/api/tools", http.StatusOK},
		{"GET", "/api/tags", http.StatusOK},
		{"GET", "/api/imagekit-auth", http.StatusOK},
		{"POST", "/api/auth/register", http.StatusBadRequest},
		{"POST", "/api/auth/login", http.StatusBadRequest},
		{"GET", "/api/prompts/9999", http.StatusNotFound},
		{"GET", "/p/9999/preview", http.StatusNotFound},
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := doRequest(router, endpoint.method, endpoint.path, nil, "")
			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPromptLifecycle walks a prompt from creation through likes,
// favourites and the gallery, checking cached reads stay fresh
func TestPromptLifecycle(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)
	author := register(t, router, "author@example.com")
	fan := register(t, router, "fan@example.com")

	// Warm the cached lists before writing
	resp := doRequest(router, "GET", "/api/prompts", nil, "")
	require.Equal(t, "[]", resp.Body.String())

	resp = doRequest(router, "POST", "/api/tags", gin.H{"name": "Noir"}, author)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var tag models.Tag
	json.Unmarshal(resp.Body.Bytes(), &tag)

	resp = doRequest(router, "POST", "/api/prompts", gin.H{
		"title":              "Rain-soaked alley",
		"prompt_text":        "a rain-soaked alley at night, neon reflections",
		"type":               "image",
		"status":             "published",
		"preview_image_path": "alley.png",
		"tag_ids":            []uint{tag.ID},
	}, author)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created prompts.PromptResponse
	json.Unmarshal(resp.Body.Bytes(), &created)
	assert.Equal(t, testEndpoint+"/alley.png", created.PreviewURL)

	resp = doRequest(router, "GET", "/api/prompts?type=image", nil, "")
	var listed []prompts.PromptResponse
	json.Unmarshal(resp.Body.Bytes(), &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Rain-soaked alley", listed[0].Title)

	likePath := fmt.Sprintf("/api/prompts/%d/like", created.ID)
	resp = doRequest(router, "GET", likePath, nil, fan)
	var like reactions.LikeResponse
	json.Unmarshal(resp.Body.Bytes(), &like)
	assert.False(t, like.Liked)
	assert.Equal(t, 0, like.LikeCount)

	resp = doRequest(router, "POST", likePath, reactions.ToggleLikeRequest{IsLiked: false}, fan)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	json.Unmarshal(resp.Body.Bytes(), &like)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikeCount)

	resp = doRequest(router, "GET", "/api/me/liked", nil, fan)
	var liked []prompts.PromptResponse
	json.Unmarshal(resp.Body.Bytes(), &liked)
	require.Len(t, liked, 1)
	assert.Equal(t, created.ID, liked[0].ID)

	resp = doRequest(router, "POST", fmt.Sprintf("/api/prompts/%d/favourite", created.ID), reactions.ToggleFavouriteRequest{IsFavourited: false}, fan)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = doRequest(router, "GET", "/api/me/favourites", nil, fan)
	assert.True(t, strings.Contains(resp.Body.String(), "Rain-soaked alley"))

	resp = doRequest(router, "GET", "/api/gallery?type=image", nil, "")
	var gallery prompts.GalleryResponse
	json.Unmarshal(resp.Body.Bytes(), &gallery)
	require.Len(t, gallery.Prompts, 1)
	assert.Equal(t, 1, gallery.Prompts[0].LikeCount)

	resp = doRequest(router, "GET", fmt.Sprintf("/p/%d/preview", created.ID), nil, "")
	assert.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, testEndpoint+"/alley.png", resp.Header().Get("Location"))

	// Hiding the prompt removes it from other users' lists
	resp = doRequest(router, "PUT", fmt.Sprintf("/api/prompts/%d", created.ID), gin.H{"visibility": "private"}, author)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doRequest(router, "GET", "/api/prompts", nil, "")
	assert.Equal(t, "[]", resp.Body.String())
	resp = doRequest(router, "GET", "/api/me/liked", nil, fan)
	assert.Equal(t, "[]", resp.Body.String())

	resp = doRequest(router, "DELETE", fmt.Sprintf("/api/prompts/%d", created.ID), nil, fan)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = doRequest(router, "DELETE", fmt.Sprintf("/api/prompts/%d", created.ID), nil, author)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = doRequest(router, "GET", "/api/me/prompts", nil, author)
	assert.Equal(t, "[]", resp.Body.String())
}

// TestImageKitAuthEndpoint verifies the upload credentials verify against the key
func TestImageKitAuthEndpoint(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	req, _ := http.NewRequest("POST", "/api/imagekit-auth", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var cred imagekit.Credential
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cred))
	assert.Equal(t, imagekit.Signature("private_test", cred.Token, cred.Expire), cred.Signature)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

// TestLogoutWithoutRevocationStore verifies logout succeeds when no
// revocation store is configured
func TestLogoutWithoutRevocationStore(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)
	token := register(t, router, "user@example.com")

	resp := doRequest(router, "POST", "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusOK, resp.Code)
}
