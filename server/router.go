package server

import (
	"net/http"

	httpHandler "threadsctl/interfaces/http"

	"github.com/gin-gonic/gin"
)

// InitiateCallbackRouter builds the engine served during an OAuth flow.
// Only GET /callback is routed; anything else is a 404 and leaves the flow open.
func InitiateCallbackRouter(callbackHandler httpHandler.ICallbackHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/callback", callbackHandler.Callback)
	router.NoRoute(func(ctx *gin.Context) {
		ctx.String(http.StatusNotFound, "Not found")
	})

	return router
}
