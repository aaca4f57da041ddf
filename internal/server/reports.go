package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/trashforcoin/internal/report/domain"
)

type dashboardQuery struct {
	StoreID *int64 `form:"store_id"`
}

func (s *Server) Dashboard(c *gin.Context) {
	actor, _ := actorFrom(c)

	var query dashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dashboard, err := s.reportSvc.Dashboard(c.Request.Context(), actor, query.StoreID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dashboard})
}

func (s *Server) OrdersReport(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req reportdomain.OrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.Orders(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":           resp.Rows,
		"total_quantity": resp.TotalQuantity,
		"total_price":    resp.TotalPrice,
		"page_info":      resp.PageInfo,
	})
}
