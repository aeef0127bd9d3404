package server

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/storefront"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(m models.Money) string { return m.Display() },
		"moneyp": func(m *models.Money) string {
			if m == nil {
				return "-"
			}
			return m.Display()
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Local().Format("02 Jan 2006 15:04")
		},
		"statuses":       func() []string { return models.OrderStatuses },
		"sorts":          func() []storefront.OrderSort { return storefront.OrderSorts },
		"paymentMethods": func() []storefront.PaymentMethod { return storefront.PaymentMethods },
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// render adds the session snapshot to data and renders page
func (s *Server) render(c *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	snap, ok := GetSnapshot(c)
	if !ok {
		snap = s.session.Snapshot()
	}
	data["Session"] = snap
	data["Title"] = title
	data["CSRF"] = csrfToken(c)
	c.HTML(status, page, data)
}
