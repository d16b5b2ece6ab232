package routes

import (
	"net/http"

	"agromart/analytics"
	"agromart/auth"
	"agromart/cart"
	"agromart/farms"
	"agromart/idempotency"
	"agromart/metrics"
	"agromart/middleware"
	"agromart/models"
	"agromart/notify"
	"agromart/orders"
	"agromart/ratelim"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Handlers carries everything the route table wires together.
type Handlers struct {
	Tokens      *middleware.Auth
	Limiter     *ratelim.RateLimiter
	Idempotency *idempotency.Middleware

	Auth      *auth.Handler
	Cart      *cart.Handler
	Orders    *orders.Handler
	Analytics *analytics.Handler
	Farms     *farms.Handler

	Hub      *notify.Hub
	Upgrader *websocket.Upgrader

	Health httprouter.Handle
}

// public routes are rate limited per client IP.
func (h *Handlers) public(router *httprouter.Router, method, path string, handle httprouter.Handle) {
	router.Handle(method, path, metrics.Instrument(path, h.Limiter.Limit(handle)))
}

// private routes require a session and, when roles are given, one of them.
// Rate limiting runs after authentication so it is keyed by user.
func (h *Handlers) private(router *httprouter.Router, method, path string, handle httprouter.Handle, roles ...models.Role) {
	if len(roles) > 0 {
		handle = middleware.RequireRole(roles...)(handle)
	}
	router.Handle(method, path, metrics.Instrument(path, h.Tokens.Authenticate(h.Limiter.Limit(handle))))
}

func AddSystemRoutes(router *httprouter.Router, h *Handlers) {
	router.GET("/health", h.Health)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
}

func AddAuthRoutes(router *httprouter.Router, h *Handlers) {
	h.public(router, http.MethodPost, "/api/auth/register", h.Auth.Register)
	h.public(router, http.MethodPost, "/api/auth/login", h.Auth.Login)
	h.public(router, http.MethodPost, "/api/auth/logout", h.Auth.Logout)
}

func AddCartRoutes(router *httprouter.Router, h *Handlers) {
	h.private(router, http.MethodPost, "/api/cart/add", h.Cart.AddToCart)
	h.private(router, http.MethodPost, "/api/cart/update-cart", h.Cart.UpdateCart)
	h.private(router, http.MethodPost, "/api/cart/remove", h.Cart.RemoveFromCart)
	h.private(router, http.MethodGet, "/api/cart/get-cart", h.Cart.GetCart)
}

func AddOrderRoutes(router *httprouter.Router, h *Handlers) {
	h.private(router, http.MethodPost, "/api/order/place-order", h.Idempotency.Wrap(h.Orders.PlaceOrder))
	h.private(router, http.MethodGet, "/api/order/user-orders", h.Orders.UserOrders)
	h.private(router, http.MethodGet, "/api/order/farmer-orders", h.Orders.FarmerOrders, models.RoleFarmer)
	h.private(router, http.MethodPatch, "/api/order/:orderId/status", h.Orders.UpdateStatus, models.RoleFarmer)
	h.public(router, http.MethodGet, "/api/order/top-farmers", h.Analytics.TopFarmers)
}

func RegisterFarmRoutes(router *httprouter.Router, h *Handlers) {
	h.private(router, http.MethodGet, "/api/farm/dashboard", h.Farms.GetFarmDash, models.RoleFarmer)
	h.private(router, http.MethodGet, "/api/receipts/:orderId", h.Farms.DownloadReceipt)
	h.private(router, http.MethodPost, "/api/receipts/verify", h.Farms.VerifyReceipt, models.RoleFarmer, models.RoleAdmin)
}

// AddNotificationRoutes is not instrumented; a socket's lifetime is not a
// request latency.
func AddNotificationRoutes(router *httprouter.Router, h *Handlers) {
	router.GET("/api/notifications/ws", h.Tokens.Authenticate(notify.WebSocketHandler(h.Hub, h.Upgrader)))
}
