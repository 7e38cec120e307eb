package controllers

import (
	"net/http"
	"strings"
	"time"

	"ringback/models"

	"github.com/gin-gonic/gin"
)

type CallEventRequest struct {
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Timestamp   int64  `json:"timestamp" form:"timestamp"`
	ContactName string `json:"contactName" form:"contactName"`
	Source      string `json:"source" form:"source"`
}

// ReceiveCallEvent is the intake for the external call monitor. Delivery is
// at-least-once on the monitor side; the pipeline dedups downstream.
// POST /api/calls/events
func ReceiveCallEvent(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	var req CallEventRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		RespondError(c, "phoneNumber is required", http.StatusBadRequest)
		return
	}
	if req.Timestamp <= 0 {
		RespondError(c, "timestamp is required", http.StatusBadRequest)
		return
	}
	source := req.Source
	if source != models.CALL_SOURCE_TEST {
		source = models.CALL_SOURCE_LIVE
	}

	event := models.CallEvent{
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Timestamp:   req.Timestamp,
		ContactName: strings.TrimSpace(req.ContactName),
		Source:      source,
	}
	svc.Orchestrator.Enqueue(event)
	RespondAccepted(c, gin.H{"call_id": event.CallID()})
}

type TestCallRequest struct {
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
}

// TriggerTestCall simulates a missed call. It goes through the full pipeline,
// security gate included: a test is not a way around the premium-number block.
// POST /api/calls/test
func TriggerTestCall(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	var req TestCallRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		RespondError(c, "phoneNumber is required", http.StatusBadRequest)
		return
	}

	event := models.CallEvent{
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Timestamp:   time.Now().UnixMilli(),
		Source:      models.CALL_SOURCE_TEST,
	}
	svc.Orchestrator.Enqueue(event)
	RespondAccepted(c, gin.H{"call_id": event.CallID()})
}

// ClearCallHistory resets the dedup ledger. Explicit user override: calls
// seen before become eligible for a reply again.
// DELETE /api/calls/history
func ClearCallHistory(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	if err := svc.Ledger.Clear(); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"status": "cleared"})
}
