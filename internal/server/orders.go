package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/trashforcoin/internal/order/domain"
)

func (s *Server) CreateOrderLine(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req orderdomain.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	line, err := s.orderSvc.AddLine(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": line})
}

func (s *Server) EditOrderLine(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req orderdomain.EditLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.LineID = id

	line, err := s.orderSvc.EditLine(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": line})
}

func (s *Server) DeleteOrderLine(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.orderSvc.DeleteLine(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetOrderLine(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	line, err := s.orderSvc.GetLine(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": line})
}

func (s *Server) ListOrderLines(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req orderdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Lines, "page_info": resp.PageInfo})
}

func (s *Server) ReceiptLines(c *gin.Context) {
	actor, _ := actorFrom(c)

	code := strings.TrimSpace(c.Param("barcode"))
	lines, err := s.orderSvc.ReceiptLines(c.Request.Context(), actor, code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quantity, total := orderdomain.Totals(lines)
	c.JSON(http.StatusOK, gin.H{
		"data":           lines,
		"total_quantity": quantity,
		"total_price":    total,
	})
}

type disposalRequest struct {
	ProductCode string `json:"product_code"`
}

func (s *Server) AddDisposal(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req disposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ProductCode) == "" {
		AbortWithError(c, newValidationError("product_code", "required", "product code is required"))
		return
	}

	line, err := s.orderSvc.AddDisposal(c.Request.Context(), actor, orderdomain.AddDisposalRequest{
		ReceiptBarcode: strings.TrimSpace(c.Param("barcode")),
		ProductCode:    req.ProductCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": line})
}
