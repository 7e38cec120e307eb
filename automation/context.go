package automation

import "github.com/gin-gonic/gin"

const servicesKey = "automation"

// Services is the one shared instance of each pipeline service, wired at
// process start and handed to gin handlers through the context, same way the
// db handle travels.
type Services struct {
	Sync         *Synchronizer
	Ledger       *Ledger
	Tokens       *TokenManager
	Orchestrator *Orchestrator
}

func SetToContext(services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(servicesKey, services)
		c.Next()
	}
}

func FromContext(c *gin.Context) *Services {
	v, ok := c.Get(servicesKey)
	if !ok {
		return nil
	}
	services, _ := v.(*Services)
	return services
}
