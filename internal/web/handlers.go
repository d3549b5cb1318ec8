package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bookswap/internal/auth"
	"bookswap/internal/book"
	"bookswap/internal/chat"
	"bookswap/internal/config"
	"bookswap/internal/upload"
	"bookswap/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

const sessionName = "bookswap-session"

type WebHandler struct {
	authService    *auth.AuthService
	bookService    *book.BookService
	messageService *chat.MessageService
	uploadService  *upload.UploadService
	sessionStore   *sessions.CookieStore
	config         *config.Config
}

func NewWebHandler(
	authService *auth.AuthService,
	bookService *book.BookService,
	messageService *chat.MessageService,
	uploadService *upload.UploadService,
	config *config.Config,
) *WebHandler {
	store := sessions.NewCookieStore([]byte(config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30, // 30 days
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteStrictMode,
	}

	return &WebHandler{
		authService:    authService,
		bookService:    bookService,
		messageService: messageService,
		uploadService:  uploadService,
		sessionStore:   store,
		config:         config,
	}
}

// Session gate

// establishSession binds the caller's session to username
func (h *WebHandler) establishSession(w http.ResponseWriter, r *http.Request, username string) {
	session, _ := h.sessionStore.Get(r, sessionName)
	session.Values["username"] = username
	if err := session.Save(r, w); err != nil {
		log.Printf("Error saving session: %v", err)
	}
}

// currentUsername returns the session's bound username, "" when absent
func (h *WebHandler) currentUsername(r *http.Request) string {
	session, _ := h.sessionStore.Get(r, sessionName)
	username, _ := session.Values["username"].(string)
	return username
}

// clearSession removes the session binding
func (h *WebHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionStore.Get(r, sessionName)
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Printf("Error clearing session: %v", err)
	}
}

// requireSession resolves the caller's username or redirects to /login.
// The empty return doubles as the "redirected" signal.
func (h *WebHandler) requireSession(w http.ResponseWriter, r *http.Request) string {
	username := h.currentUsername(r)
	if username == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
	return username
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// serviceError maps domain errors onto plain text responses per the error
// taxonomy: not-found 404, forbidden 403, conflicts 409.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, book.ErrNotFound):
		http.Error(w, "Book not found.", http.StatusNotFound)
	case errors.Is(err, book.ErrSelfBorrow):
		http.Error(w, "You can't borrow your own book.", http.StatusConflict)
	case errors.Is(err, book.ErrAlreadyBorrowed):
		http.Error(w, "Sorry, book is already borrowed.", http.StatusConflict)
	case errors.Is(err, book.ErrNotBorrower):
		http.Error(w, "You can't return this book.", http.StatusConflict)
	case errors.Is(err, chat.ErrForbidden):
		http.Error(w, "You don't have permission to chat on this book.", http.StatusForbidden)
	default:
		log.Printf("Internal error: %v", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
	}
}

// Page handlers

func (h *WebHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"username": h.currentUsername(r)})
}

func (h *WebHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Write([]byte("Register with a POST of username and password.\n"))
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if err := h.authService.Register(r.Context(), username, password); err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			http.Error(w, "Username already exists.", http.StatusConflict)
			return
		}
		serviceError(w, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Write([]byte("Log in with a POST of username and password.\n"))
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if _, err := h.authService.Authenticate(r.Context(), username, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		serviceError(w, err)
		return
	}

	h.establishSession(w, r, username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Book handlers

func (h *WebHandler) PostBook(w http.ResponseWriter, r *http.Request) {
	username := h.requireSession(w, r)
	if username == "" {
		return
	}

	if r.Method == http.MethodGet {
		w.Write([]byte("Post a book with a multipart POST of title, author, description and an optional image.\n"))
		return
	}

	// Image is optional; a rejected extension just means no image
	var imagePath *string
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		path, ok, err := h.uploadService.Store(file, header.Filename)
		if err != nil {
			serviceError(w, err)
			return
		}
		if ok {
			imagePath = &path
		}
	}

	title := r.FormValue("title")
	author := r.FormValue("author")
	description := r.FormValue("description")

	if _, err := h.bookService.Post(r.Context(), username, title, author, description, imagePath); err != nil {
		serviceError(w, err)
		return
	}

	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func (h *WebHandler) Books(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	books, err := h.bookService.Search(r.Context(), query)
	if err != nil {
		serviceError(w, err)
		return
	}
	if books == nil {
		books = []*models.Book{}
	}

	writeJSON(w, http.StatusOK, books)
}

func (h *WebHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	username := h.requireSession(w, r)
	if username == "" {
		return
	}

	bookID := mux.Vars(r)["book_id"]
	if err := h.bookService.Borrow(r.Context(), bookID, username); err != nil {
		serviceError(w, err)
		return
	}

	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func (h *WebHandler) Return(w http.ResponseWriter, r *http.Request) {
	username := h.requireSession(w, r)
	if username == "" {
		return
	}

	bookID := mux.Vars(r)["book_id"]
	if err := h.bookService.Return(r.Context(), bookID, username); err != nil {
		serviceError(w, err)
		return
	}

	http.Redirect(w, r, "/my_books", http.StatusSeeOther)
}

type bookListsResponse struct {
	Username string         `json:"username,omitempty"`
	Posted   []*models.Book `json:"posted"`
	Borrowed []*models.Book `json:"borrowed"`
}

func (h *WebHandler) bookLists(r *http.Request, username string) (*bookListsResponse, error) {
	posted, err := h.bookService.ListOwned(r.Context(), username)
	if err != nil {
		return nil, err
	}
	borrowed, err := h.bookService.ListBorrowed(r.Context(), username)
	if err != nil {
		return nil, err
	}

	if posted == nil {
		posted = []*models.Book{}
	}
	if borrowed == nil {
		borrowed = []*models.Book{}
	}

	return &bookListsResponse{Posted: posted, Borrowed: borrowed}, nil
}

func (h *WebHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	username := h.requireSession(w, r)
	if username == "" {
		return
	}

	lists, err := h.bookLists(r, username)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lists)
}

func (h *WebHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := h.requireSession(w, r)
	if username == "" {
		return
	}

	lists, err := h.bookLists(r, username)
	if err != nil {
		serviceError(w, err)
		return
	}
	lists.Username = username

	writeJSON(w, http.StatusOK, lists)
}

// Chat handlers

func (h *WebHandler) Chat(w http.ResponseWriter, r *http.Request) {
	username := h.requireSession(w, r)
	if username == "" {
		return
	}

	bookID := mux.Vars(r)["book_id"]

	if r.Method == http.MethodPost {
		text := r.FormValue("message")
		if err := h.messageService.PostMessage(r.Context(), bookID, username, text); err != nil {
			serviceError(w, err)
			return
		}
	}

	messages, err := h.messageService.Thread(r.Context(), bookID, username)
	if err != nil {
		serviceError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}
