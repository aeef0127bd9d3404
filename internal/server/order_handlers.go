package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecomstore/storefront/internal/storefront"
)

func (s *Server) listOrders(c *gin.Context) {
	s.renderOrders(c, false)
}

func (s *Server) renderOrders(c *gin.Context, admin bool) {
	status := c.DefaultQuery("status", storefront.StatusAll)
	sort := storefront.OrderSort(c.DefaultQuery("sort", string(storefront.SortNewest)))

	var (
		orders = s.shop.ListOrders
		title  = "Orders"
	)
	if admin {
		orders = s.shop.AdminListOrders
		title = "Manage orders"
	}

	list, err := orders(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.render(c, http.StatusOK, "orders.html", title, gin.H{
		"Orders": storefront.FilterAndSort(list, status, sort),
		"Status": status,
		"Sort":   sort,
		"Admin":  admin,
	})
}

func (s *Server) showOrder(c *gin.Context) {
	s.renderOrder(c, false)
}

func (s *Server) renderOrder(c *gin.Context, admin bool) {
	id, ok := s.intParam(c, "id")
	if !ok {
		return
	}

	order, err := s.shop.GetOrder(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.render(c, http.StatusOK, "order.html", "Order", gin.H{"Order": order, "Admin": admin})
}
