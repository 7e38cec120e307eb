package controllers

import (
	"net/http"
	"strings"

	"ringback/automation"

	"github.com/gin-gonic/gin"
)

func services(c *gin.Context) (*automation.Services, bool) {
	svc := automation.FromContext(c)
	if svc == nil {
		RespondError(c, "automation services not configured", http.StatusInternalServerError)
		return nil, false
	}
	return svc, true
}

// GetAutomationStatus is the read model for the companion dashboard.
// GET /api/automation/status
func GetAutomationStatus(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	cfg := svc.Sync.Snapshot()
	RespondSuccess(c, gin.H{
		"is_enabled":            cfg.IsEnabled,
		"message":               cfg.Message,
		"filter_known_contacts": cfg.FilterKnownContacts,
		"sent_count":            cfg.SentCount,
		"last_sent_time":        cfg.LastSentTime,
		"processed_calls_count": svc.Ledger.Count(),
		"conversation_url":      svc.Tokens.CurrentURL(),
	})
}

// ToggleEnabled flips the automation on or off.
// POST /api/automation/toggle
func ToggleEnabled(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	enabled := !svc.Sync.Snapshot().IsEnabled
	if err := svc.Sync.SetEnabled(enabled); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"is_enabled": enabled})
}

type UpdateMessageRequest struct {
	Message string `json:"message" form:"message"`
}

// UpdateMessage replaces the outgoing message template.
// PUT /api/automation/message
func UpdateMessage(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		RespondError(c, "message is required", http.StatusBadRequest)
		return
	}

	if err := svc.Sync.SetTemplate(req.Message); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"message": req.Message})
}

// ToggleContactFiltering flips the known-contact suppression policy.
// POST /api/automation/contact-filter/toggle
func ToggleContactFiltering(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	filter := !svc.Sync.Snapshot().FilterKnownContacts
	if err := svc.Sync.SetFilterKnownContacts(filter); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"filter_known_contacts": filter})
}

// RegenerateLink forces a brand-new chat token. Links already delivered keep
// working until their own expiry.
// POST /api/automation/link/regenerate
func RegenerateLink(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	url, err := svc.Tokens.Regenerate(c.Request.Context())
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadGateway)
		return
	}
	RespondSuccess(c, gin.H{"conversation_url": url})
}
