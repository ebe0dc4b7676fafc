package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is a group of routes mounted under Root.
type IHttpHandler interface {
	Root() string
	SetRoutes(group *gin.RouterGroup)
}
