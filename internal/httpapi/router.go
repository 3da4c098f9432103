package httpapi

import "github.com/gin-gonic/gin"

// NewRouter builds the gin engine for one node: logging and recovery
// middleware, then every route from Handler.Register.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Logger(), Recovery())
	h.Register(r)
	return r
}
