package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracktime-io/tracktime/internal/jira"
	"github.com/tracktime-io/tracktime/internal/models"
	"github.com/tracktime-io/tracktime/internal/repository"
	"github.com/tracktime-io/tracktime/internal/version"
)

// Handler wires the sync core into the HTTP surface.
type Handler struct {
	integration   *jira.IntegrationService
	auth          *jira.AuthService
	entries       repository.EntryRepository
	ticketSystems repository.TicketSystemRepository
	users         repository.UserRepository
	tokens        repository.TokenRepository
}

func NewHandler(
	integration *jira.IntegrationService,
	auth *jira.AuthService,
	entries repository.EntryRepository,
	ticketSystems repository.TicketSystemRepository,
	users repository.UserRepository,
	tokens repository.TokenRepository,
) *Handler {
	return &Handler{
		integration:   integration,
		auth:          auth,
		entries:       entries,
		ticketSystems: ticketSystems,
		users:         users,
		tokens:        tokens,
	}
}

// RegisterRoutes mounts all sync and OAuth endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine, metricsPath string) {
	router.Use(requestID())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "tracktime",
			"version": version.String(),
		})
	})

	router.GET("/jiraoauth/authorize", h.handleOAuthAuthorize)
	router.GET("/jiraoauthcallback", h.handleOAuthCallback)

	api := router.Group("/api")
	{
		api.POST("/worklog/:entryID/sync", h.handleSaveWorklog)
		api.DELETE("/worklog/:entryID/sync", h.handleDeleteWorklog)
		api.POST("/sync", h.handleBulkSync)
		api.GET("/entries/:entryID/needs-sync", h.handleNeedsSync)
		api.GET("/tokens", h.handleListTokens)
	}

	if metricsPath != "" {
		router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// currentUser resolves the acting user. The real authentication layer lives
// in the surrounding application; here the user id arrives as a header.
func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	raw := c.GetHeader("X-User-ID")
	userID, err := strconv.Atoi(raw)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return nil, false
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return nil, false
	}

	return user, true
}

func (h *Handler) entryParam(c *gin.Context) (*models.Entry, bool) {
	entryID, err := strconv.Atoi(c.Param("entryID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return nil, false
	}

	entry, err := h.entries.GetByID(entryID)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		} else {
			log.Printf("failed to load entry %d: %v", entryID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entry"})
		}
		return nil, false
	}

	return entry, true
}

// writeSyncError maps the jira error taxonomy onto HTTP responses: an
// authorization failure carries the OAuth redirect URL for the client.
func writeSyncError(c *gin.Context, err error) {
	var unauthorized *jira.UnauthorizedError
	if errors.As(err, &unauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":        "jira authorization required",
			"redirect_url": unauthorized.RedirectURL,
		})
		return
	}

	if jira.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
