package routes

import (
	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, h *Handlers) {
	AddSystemRoutes(router, h)
	AddAuthRoutes(router, h)
	AddCartRoutes(router, h)
	AddOrderRoutes(router, h)
	RegisterFarmRoutes(router, h)
	AddNotificationRoutes(router, h)
}
