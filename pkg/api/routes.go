package api

import "github.com/gin-gonic/gin"

// NewRouter builds the HTTP surface over the ingestion service: upload on
// POST /split/ and result lookup on POST /split/show.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.Default()

	split := r.Group("/split")
	{
		split.POST("/", h.SplitAudio)
		split.POST("/show", h.ShowURLs)
	}

	return r
}
