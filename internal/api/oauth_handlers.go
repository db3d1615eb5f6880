package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tracktime-io/tracktime/internal/repository"
)

// handleOAuthAuthorize starts the OAuth dance: fetch a request token and
// redirect the user to the ticket system's authorize page.
func (h *Handler) handleOAuthAuthorize(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	ticketSystemID, err := strconv.Atoi(c.Query("ticket_system_id"))
	if err != nil || ticketSystemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket_system_id"})
		return
	}

	ts, err := h.ticketSystems.GetByID(ticketSystemID)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown ticket system"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket system"})
		}
		return
	}

	requestToken, err := h.auth.FetchRequestToken(c.Request.Context(), ts, user)
	if err != nil {
		log.Printf("request token fetch failed for user %d on ticket system %d: %v", user.ID, ts.ID, err)
		writeSyncError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.auth.AuthorizeURL(ts, requestToken))
}

// handleOAuthCallback completes the dance. A "denied" verifier is the user
// refusing authorization: the placeholder token is dropped.
func (h *Handler) handleOAuthCallback(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	ticketSystemID, err := strconv.Atoi(c.Query("ticket_system_id"))
	if err != nil || ticketSystemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket_system_id"})
		return
	}

	ts, err := h.ticketSystems.GetByID(ticketSystemID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ticket system"})
		return
	}

	requestToken := c.Query("oauth_token")
	verifier := c.Query("oauth_verifier")

	if verifier == "" || verifier == "denied" {
		if err := h.auth.DeleteTokens(user, ts); err != nil {
			log.Printf("failed to delete tokens for user %d on ticket system %d: %v", user.ID, ts.ID, err)
		}
		c.JSON(http.StatusOK, gin.H{"authorized": false})
		return
	}

	if err := h.auth.FetchAccessToken(c.Request.Context(), ts, user, requestToken, verifier); err != nil {
		log.Printf("access token exchange failed for user %d on ticket system %d: %v", user.ID, ts.ID, err)
		writeSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorized": true})
}
