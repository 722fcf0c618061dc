package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"toadvault/internal/broker"
	"toadvault/internal/checkout"
	"toadvault/internal/logger"
	"toadvault/internal/middleware"
)

type Deps struct {
	Transport   broker.Transport
	Checkout    *checkout.Coordinator
	Log         *logger.Logger
	JWTSecret   string
	ServiceName string
}

// NewRouter builds the gateway engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	ConfigureBinding()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(d.Log), gin.CustomRecovery(func(c *gin.Context, rec any) {
		d.Log.Error("panic recovered", "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}))

	t, log := d.Transport, d.Log
	auth := middleware.UserAuth(d.JWTSecret, log)

	r.GET("/health", Health(d.ServiceName))

	r.POST("/users/register", Register(t, log))
	r.POST("/users/login", Login(t, log))

	r.GET("/products", GetProducts(t, log))
	r.GET("/products/:ref", GetProduct(t, log))
	r.POST("/products", auth, CreateProduct(t, log))
	r.PUT("/products/:id", auth, UpdateProduct(t, log))

	r.GET("/inventory/item/:storeId/:barcode", GetStoreItem(t, log))
	inventory := r.Group("/inventory")
	inventory.Use(auth)
	{
		inventory.POST("/new", AddInventoryItem(t, log))
		inventory.GET("", GetInventory(t, log))
		inventory.PUT("/item/:barcode", UpdateInventoryItem(t, log))
	}

	order := r.Group("/order")
	order.Use(auth)
	{
		order.GET("", GetOrder(t, log))
		order.GET("/:barcode", AddToOrder(t, log))
		order.PUT("/remove/:barcode", RemoveFromOrder(t, log))
		order.DELETE("", CancelOrder(t, log))
	}

	payment := r.Group("/payment")
	payment.Use(auth)
	{
		payment.POST("", Checkout(d.Checkout, log))
		payment.GET("/history", PaymentHistory(t, log))
	}

	return r
}

func Health(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": service})
	}
}
