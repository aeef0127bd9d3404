package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

func (s *Server) adminDashboard(c *gin.Context) {
	var (
		orders   []models.Order
		products []models.Product
	)

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		orders, err = s.shop.AdminListOrders(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.shop.AdminListProducts(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.handleError(c, err)
		return
	}

	var revenue models.Money
	pending := 0
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		revenue += o.TotalAmount
		if o.Status == models.StatusPending {
			pending++
		}
	}

	s.render(c, http.StatusOK, "admin.html", "Admin", gin.H{
		"ProductCount": len(products),
		"OrderCount":   len(orders),
		"PendingCount": pending,
		"Revenue":      revenue,
	})
}

func (s *Server) adminProducts(c *gin.Context) {
	s.renderAdminProducts(c, http.StatusOK, gin.H{})
}

func (s *Server) renderAdminProducts(c *gin.Context, status int, data gin.H) {
	products, err := s.shop.AdminListProducts(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	data["Products"] = products
	s.render(c, status, "admin_products.html", "Manage products", data)
}

// productForm reads the admin product editor, including the optional image
func productForm(c *gin.Context) (storefront.ProductForm, *storefront.ProductImage, func(), error) {
	noop := func() {}

	price, err := models.ParseMoney(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		return storefront.ProductForm{}, nil, noop, fmt.Errorf("invalid price")
	}
	stock, err := strconv.Atoi(strings.TrimSpace(c.DefaultPostForm("stock", "0")))
	if err != nil || stock < 0 {
		return storefront.ProductForm{}, nil, noop, fmt.Errorf("invalid stock")
	}

	form := storefront.ProductForm{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Slug:        strings.TrimSpace(c.PostForm("slug")),
		Description: c.PostForm("description"),
		Price:       price,
		Stock:       stock,
		IsActive:    c.PostForm("is_active") == "true",
	}

	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, noop, nil
	}
	if err != nil {
		return form, nil, noop, fmt.Errorf("invalid image upload")
	}

	f, err := header.Open()
	if err != nil {
		return form, nil, noop, fmt.Errorf("failed to read image")
	}
	return form, &storefront.ProductImage{FileName: header.Filename, Content: f}, func() { f.Close() }, nil
}

func (s *Server) adminCreateProduct(c *gin.Context) {
	form, image, closeImage, err := productForm(c)
	defer closeImage()
	if err != nil {
		s.renderAdminProducts(c, http.StatusBadRequest, gin.H{"Error": err.Error()})
		return
	}

	created, err := s.shop.CreateProduct(c.Request.Context(), form, image)
	if err != nil {
		s.renderProductSaveError(c, err)
		return
	}
	s.renderAdminProducts(c, http.StatusOK, gin.H{"Notice": fmt.Sprintf("Product %s created", created.Name)})
}

func (s *Server) adminUpdateProduct(c *gin.Context) {
	form, image, closeImage, err := productForm(c)
	defer closeImage()
	if err != nil {
		s.renderAdminProducts(c, http.StatusBadRequest, gin.H{"Error": err.Error()})
		return
	}

	slug := c.Param("slug")
	if _, err := s.shop.UpdateProduct(c.Request.Context(), slug, form, image); err != nil {
		s.renderProductSaveError(c, err)
		return
	}
	s.renderAdminProducts(c, http.StatusOK, gin.H{"Notice": fmt.Sprintf("Product %s updated", slug)})
}

func (s *Server) renderProductSaveError(c *gin.Context, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		s.renderAdminProducts(c, http.StatusBadRequest, gin.H{"Error": "Failed to save product. " + errorMessage(err)})
		return
	}
	s.handleError(c, err)
}

func (s *Server) adminOrders(c *gin.Context) {
	s.renderOrders(c, true)
}

func (s *Server) adminOrderDetail(c *gin.Context) {
	s.renderOrder(c, true)
}

func (s *Server) adminUpdateOrderStatus(c *gin.Context) {
	id, ok := s.intParam(c, "id")
	if !ok {
		return
	}

	err := s.shop.UpdateOrderStatus(c.Request.Context(), id, c.PostForm("status"))
	if errors.Is(err, storefront.ErrInvalidStatus) {
		renderError(c, s.session.Snapshot(), http.StatusBadRequest, "Unknown order status")
		return
	}
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/admin/orders")
}

func (s *Server) adminUpdateOrder(c *gin.Context) {
	id, ok := s.intParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := s.shop.GetOrder(ctx, id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	if status := c.PostForm("status"); status != "" {
		order.Status = status
	}
	if paymentStatus := c.PostForm("payment_status"); paymentStatus != "" {
		order.PaymentStatus = paymentStatus
	}

	if _, err := s.shop.UpdateOrder(ctx, order); err != nil {
		if errors.Is(err, storefront.ErrInvalidStatus) {
			renderError(c, s.session.Snapshot(), http.StatusBadRequest, "Unknown order status")
			return
		}
		s.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/admin/orders/%d", id))
}
