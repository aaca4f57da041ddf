package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	orderdomain "github.com/smallbiznis/trashforcoin/internal/order/domain"
)

type allocateCartRequest struct {
	StoreID *int64 `json:"store_id,omitempty"`
}

type scanRequest struct {
	Code string `json:"code"`
}

type cartLineRequest struct {
	Quantity int64 `json:"quantity"`
}

type cartView struct {
	orderdomain.Cart
	LastReceiptBarcode string `json:"last_receipt_barcode,omitempty"`
}

type allocatedCart struct {
	OrderID string `json:"order_id"`
	StoreID *int64 `json:"store_id,omitempty"`
}

func (s *Server) GetCart(c *gin.Context) {
	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		cart, err := s.orderSvc.CartLines(c.Request.Context(), actor, sess)
		if err != nil {
			return nil, err
		}
		return cartView{Cart: cart, LastReceiptBarcode: sess.LastReceiptBarcode}, nil
	})
}

// AllocateCart opens a cart order. Global actors name the store the cart rings up in.
func (s *Server) AllocateCart(c *gin.Context) {
	var req allocateCartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		orderID, err := s.orderSvc.AllocateCartOrderID(c.Request.Context(), actor, sess, req.StoreID)
		if err != nil {
			return nil, err
		}
		return allocatedCart{OrderID: orderID, StoreID: sess.StoreID}, nil
	})
}

func (s *Server) AddCartLine(c *gin.Context) {
	var req orderdomain.CartAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		return s.orderSvc.CartAdd(c.Request.Context(), actor, sess, req)
	})
}

func (s *Server) ScanCartLine(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		return s.orderSvc.ScanAdd(c.Request.Context(), actor, sess, req.Code)
	})
}

func (s *Server) EditCartLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		return s.orderSvc.EditCartLine(c.Request.Context(), actor, sess, id, req.Quantity)
	})
}

func (s *Server) RemoveCartLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		return nil, s.orderSvc.RemoveCartLine(c.Request.Context(), actor, sess, id)
	})
}

func (s *Server) Checkout(c *gin.Context) {
	s.withCart(c, func(actor access.Actor, sess *cartsession.Session) (any, error) {
		receipt, err := s.orderSvc.Checkout(c.Request.Context(), actor, sess)
		if err != nil {
			return nil, err
		}
		c.Set(contextCartOrderID, receipt.OrderID)
		return receipt, nil
	})
}
