package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tracktime-io/tracktime/internal/models"
	"github.com/tracktime-io/tracktime/internal/repository"
)

// handleSaveWorklog pushes one entry's worklog to its ticket system.
func (h *Handler) handleSaveWorklog(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	entry, ok := h.entryParam(c)
	if !ok {
		return
	}
	if entry.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "entry belongs to another user"})
		return
	}
	entry.User = user

	override, ok := h.overrideParam(c)
	if !ok {
		return
	}

	if err := h.integration.SaveWorklog(c.Request.Context(), entry, override); err != nil {
		writeSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry_id":   entry.ID,
		"worklog_id": entry.WorklogID,
		"synced":     entry.SyncedToTicketsystem,
	})
}

// handleDeleteWorklog removes one entry's remote worklog.
func (h *Handler) handleDeleteWorklog(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	entry, ok := h.entryParam(c)
	if !ok {
		return
	}
	if entry.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "entry belongs to another user"})
		return
	}
	entry.User = user

	override, ok := h.overrideParam(c)
	if !ok {
		return
	}

	if err := h.integration.DeleteWorklog(c.Request.Context(), entry, override); err != nil {
		writeSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry_id": entry.ID,
		"synced":   entry.SyncedToTicketsystem,
	})
}

type bulkSyncRequest struct {
	EntryIDs       []int `json:"entry_ids" binding:"required"`
	TicketSystemID *int  `json:"ticket_system_id,omitempty"`
}

// handleBulkSync syncs a batch of the user's entries, reporting per-entry results.
func (h *Handler) handleBulkSync(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req bulkSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var override *models.TicketSystem
	if req.TicketSystemID != nil {
		ts, err := h.ticketSystems.GetByID(*req.TicketSystemID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown ticket system"})
			return
		}
		override = ts
	}

	entries := make([]*models.Entry, 0, len(req.EntryIDs))
	results := make(map[int]models.SyncResult)
	for _, id := range req.EntryIDs {
		entry, err := h.entries.GetByID(id)
		if err != nil {
			results[id] = models.SyncResult{Success: false, Message: "entry not found"}
			continue
		}
		if entry.UserID != user.ID {
			results[id] = models.SyncResult{Success: false, Message: "entry belongs to another user"}
			continue
		}
		entry.User = user
		entries = append(entries, entry)
	}

	for id, result := range h.integration.BulkSyncEntries(c.Request.Context(), entries, override) {
		results[id] = result
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// handleNeedsSync reports whether an entry still has to be pushed remotely.
func (h *Handler) handleNeedsSync(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	entry, ok := h.entryParam(c)
	if !ok {
		return
	}
	entry.User = user

	response := gin.H{"entry_id": entry.ID, "needs_sync": h.integration.NeedsSync(entry)}

	if ts := h.integration.ResolveTicketSystem(entry, nil); ts != nil {
		if link := ts.TicketLink(entry.Ticket); link != "" {
			response["ticket_url"] = link
		}
	}

	c.JSON(http.StatusOK, response)
}

// handleListTokens lists the user's stored tokens with masked values.
func (h *Handler) handleListTokens(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	tokens, err := h.tokens.ListByUser(user.ID)
	if err != nil {
		log.Printf("failed to list tokens for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tokens"})
		return
	}

	type tokenStatus struct {
		TicketSystemID  int  `json:"ticket_system_id"`
		Authorized      bool `json:"authorized"`
		AvoidConnection bool `json:"avoid_connection"`
	}

	statuses := make([]tokenStatus, 0, len(tokens))
	for _, token := range tokens {
		statuses = append(statuses, tokenStatus{
			TicketSystemID:  token.TicketSystemID,
			Authorized:      !token.AvoidConnection,
			AvoidConnection: token.AvoidConnection,
		})
	}

	c.JSON(http.StatusOK, gin.H{"tokens": statuses})
}

// overrideParam reads an optional ticket_system_id query override.
func (h *Handler) overrideParam(c *gin.Context) (*models.TicketSystem, bool) {
	raw := c.Query("ticket_system_id")
	if raw == "" {
		return nil, true
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket_system_id"})
		return nil, false
	}

	ts, err := h.ticketSystems.GetByID(id)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown ticket system"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket system"})
		}
		return nil, false
	}

	return ts, true
}
