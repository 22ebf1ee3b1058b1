package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/vmarkelov/marketplace/internal/handlers"
	"github.com/vmarkelov/marketplace/internal/service/token"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CommentHandler *handlers.CommentHandler
	SearchHandler  *handlers.SearchHandler
	TokenService   *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.Logout)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	auth := v1.Group("", d.TokenService.AutoRefreshMiddleware)
	auth.POST("/products", d.ProductHandler.CreateProduct)
	auth.POST("/products/:id/comments", d.CommentHandler.AddComment)
	auth.GET("/activate/:token", d.ProductHandler.Activate)
}
