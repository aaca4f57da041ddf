package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bindomain "github.com/smallbiznis/trashforcoin/internal/bin/domain"
)

type listBinsQuery struct {
	StoreID     *int64 `form:"store_id"`
	OnlyFlagged bool   `form:"flagged"`
}

func (s *Server) ListBins(c *gin.Context) {
	actor, _ := actorFrom(c)

	var query listBinsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	flags, err := s.binSvc.List(c.Request.Context(), actor, bindomain.ListRequest{
		StoreID:     query.StoreID,
		OnlyFlagged: query.OnlyFlagged,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": flags})
}
