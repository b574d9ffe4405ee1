package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/FileDrop/internal/web"
)

func (s *Server) registerUI(r *gin.Engine) {
	index := web.Index()
	static := http.FS(web.FS())
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	for urlPath, file := range web.Assets {
		r.StaticFileFS(urlPath, file, static)
	}
}
