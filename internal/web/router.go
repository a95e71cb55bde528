package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Router is a thin method-aware wrapper over gorilla/mux.
type Router struct {
	mux *mux.Router
}

func NewRouter() *Router {
	m := mux.NewRouter()
	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FailErr(w, r, ErrNotFound)
	})
	m.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FailErr(w, r, ErrMethodNotAllow)
	})
	return &Router{mux: m}
}

func (rt *Router) GET(path string, h http.HandlerFunc) {
	rt.mux.HandleFunc(path, h).Methods(http.MethodGet, http.MethodHead)
}

func (rt *Router) POST(path string, h http.HandlerFunc) {
	rt.mux.HandleFunc(path, h).Methods(http.MethodPost)
}

func (rt *Router) PUT(path string, h http.HandlerFunc) {
	rt.mux.HandleFunc(path, h).Methods(http.MethodPut)
}

func (rt *Router) DELETE(path string, h http.HandlerFunc) {
	rt.mux.HandleFunc(path, h).Methods(http.MethodDelete)
}

// Handle registers h for method on path. Method "*" mounts h as a prefix
// handler for every method, which is how the SPA fallback is attached.
func (rt *Router) Handle(method, path string, h http.Handler) {
	if method == "*" {
		rt.mux.PathPrefix(path).Handler(h)
		return
	}
	rt.mux.Handle(path, h).Methods(method)
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// PathParam returns a {name} segment of the matched route.
func PathParam(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// PathID parses the {id} segment as a positive integer.
func PathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(PathParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
