package web

import (
	"bookswap/middleware"

	"github.com/gorilla/mux"
)

func (h *WebHandler) SetupRoutes(m *middleware.Middleware) *mux.Router {
	r := mux.NewRouter()

	// Web pages, session-gated inside the handlers
	r.HandleFunc("/", h.Home).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("GET", "POST")
	r.HandleFunc("/login", h.Login).Methods("GET", "POST")
	r.HandleFunc("/logout", h.Logout).Methods("GET")
	r.HandleFunc("/post_book", h.PostBook).Methods("GET", "POST")
	r.HandleFunc("/books", h.Books).Methods("GET")
	r.HandleFunc("/borrow/{book_id}", h.Borrow).Methods("POST")
	r.HandleFunc("/return/{book_id}", h.Return).Methods("POST")
	r.HandleFunc("/my_books", h.MyBooks).Methods("GET")
	r.HandleFunc("/chat/{book_id}", h.Chat).Methods("GET", "POST")
	r.HandleFunc("/profile", h.Profile).Methods("GET")

	// JSON API, Bearer-token gated
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.SetupCORS())
	api.HandleFunc("/login", h.APILogin).Methods("POST")
	api.HandleFunc("/auth/check", m.AuthMiddleware(h.APICheckAuth)).Methods("GET")
	api.HandleFunc("/books", h.APIBooks).Methods("GET")
	api.HandleFunc("/my_books", m.AuthMiddleware(h.APIMyBooks)).Methods("GET")

	return r
}
