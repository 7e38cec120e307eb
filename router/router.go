package router

import (
	"ringback/controllers"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Initialize wires all routes and middlewares. The surface is what the
// companion dashboard and the device call monitor talk to.
func Initialize(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	api := r.Group("/api")

	// Call monitor intake + manual trigger
	api.POST("/calls/events", Logger(), controllers.ReceiveCallEvent)
	api.POST("/calls/test", Logger(), controllers.TriggerTestCall)
	api.DELETE("/calls/history", Logger(), controllers.ClearCallHistory)

	// Automation settings + status
	api.GET("/automation/status", Logger(), controllers.GetAutomationStatus)
	api.POST("/automation/toggle", Logger(), controllers.ToggleEnabled)
	api.PUT("/automation/message", Logger(), controllers.UpdateMessage)
	api.POST("/automation/contact-filter/toggle", Logger(), controllers.ToggleContactFiltering)
	api.POST("/automation/link/regenerate", Logger(), controllers.RegenerateLink)

	log.Info().Str("component", "router").Msg("routes initialized")
}
