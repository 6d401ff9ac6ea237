package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every HTTP handler group so the application can
// mount them without knowing their concrete types.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
