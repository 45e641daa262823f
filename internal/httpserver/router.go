package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/avolkov/shop-admin/internal/middleware/auth"
)

type Deps struct {
	Auth       *AuthHTTP
	Users      *UserHTTP
	Products   *ProductHTTP
	Categories *CategoryHTTP
	Reviews    *ReviewHTTP
	Orders     *OrderHTTP
	Analytics  *AnalyticsHTTP
	Search     *SearchHTTP
	JWTSecret  []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	mw := authmw.New(d.JWTSecret)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.GET("/me", d.Auth.Me, mw.RequireAuth)

	users := api.Group("/users", mw.RequireAdmin)
	users.GET("", d.Users.GetUsers)
	users.GET("/:id", d.Users.GetUser)
	users.PATCH("/:id", d.Users.UpdateUser)

	products := api.Group("/products")
	products.GET("", d.Products.GetProducts)
	products.GET("/search", d.Search.SearchProducts)
	products.GET("/:id", d.Products.GetProduct)
	products.GET("/:id/reviews", d.Reviews.GetProductReviews)
	products.POST("", d.Products.CreateProduct, mw.RequireAdmin)
	products.PATCH("/:id", d.Products.PatchProduct, mw.RequireAdmin)
	products.DELETE("/:id", d.Products.DeleteProduct, mw.RequireAdmin)

	categories := api.Group("/categories")
	categories.GET("", d.Categories.GetCategories)
	categories.GET("/:id", d.Categories.GetCategory)
	categories.POST("", d.Categories.CreateCategory, mw.RequireAdmin)
	categories.PATCH("/:id", d.Categories.PatchCategory, mw.RequireAdmin)
	categories.DELETE("/:id", d.Categories.DeleteCategory, mw.RequireAdmin)

	reviews := api.Group("/reviews")
	reviews.POST("", d.Reviews.CreateReview, mw.RequireAuth)
	reviews.PATCH("/:id/status", d.Reviews.ModerateReview, mw.RequireAdmin)
	reviews.DELETE("/:id", d.Reviews.DeleteReview, mw.RequireAuth)

	orders := api.Group("/orders", mw.RequireAuth)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("", d.Orders.GetOrders)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.POST("/:id/cancel", d.Orders.CancelOrder)
	// admin requirement enforced in the service so non-admins get the
	// same Forbidden response as other ownership violations
	orders.PATCH("/:id/status", d.Orders.UpdateOrderStatus)

	analytics := api.Group("/analytics", mw.RequireAdmin)
	analytics.GET("/dashboard", d.Analytics.Dashboard)
	analytics.GET("/sales", d.Analytics.Sales)
	analytics.GET("/top-products", d.Analytics.TopProducts)
}
