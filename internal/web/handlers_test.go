package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"

	"bookswap/db"
	"bookswap/internal/auth"
	"bookswap/internal/book"
	"bookswap/internal/chat"
	"bookswap/internal/testutils"
	"bookswap/internal/upload"
	"bookswap/internal/web"
	"bookswap/middleware"
	"bookswap/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) *testutils.TestServer {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	t.Cleanup(cleanup)

	dbManager := db.NewDBManager()
	t.Cleanup(dbManager.Stop)

	cfg := testutils.GetTestConfig(t)

	uploadService, err := upload.NewUploadService(cfg.UploadDir)
	require.NoError(t, err)

	authService := auth.NewAuthService(factory.NewUserRepository())
	bookService := book.NewBookService(factory.NewBookRepository(), dbManager)
	messageService := chat.NewMessageService(factory.NewMessageRepository(), bookService, dbManager)

	handler := web.NewWebHandler(authService, bookService, messageService, uploadService, cfg)
	router := handler.SetupRoutes(middleware.NewMiddleware(cfg))

	return testutils.NewTestServer(t, router)
}

func register(t *testing.T, ts *testutils.TestServer, username, password string) {
	resp := ts.PostForm("/register", url.Values{"username": {username}, "password": {password}})
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func login(t *testing.T, ts *testutils.TestServer, username, password string) {
	resp := ts.PostForm("/login", url.Values{"username": {username}, "password": {password}})
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func logout(t *testing.T, ts *testutils.TestServer) {
	resp := ts.GET("/logout")
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func decodeBooks(t *testing.T, resp *http.Response) []*models.Book {
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var books []*models.Book
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&books))
	return books
}

func TestUnauthenticatedRedirects(t *testing.T) {
	ts := setupServer(t)

	for _, path := range []string{"/post_book", "/my_books", "/profile"} {
		resp := ts.GET(path)
		resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "path %s", path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), "path %s", path)
	}

	resp := ts.PostForm("/borrow/some-id", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := setupServer(t)

	register(t, ts, "alice", "s3cret")

	t.Run("DuplicateRegistration", func(t *testing.T) {
		resp := ts.PostForm("/register", url.Values{"username": {"alice"}, "password": {"other"}})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		resp := ts.PostForm("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	login(t, ts, "alice", "s3cret")

	t.Run("SessionGrantsAccess", func(t *testing.T) {
		resp := ts.GET("/my_books")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	logout(t, ts)

	t.Run("LogoutClearsSession", func(t *testing.T) {
		resp := ts.GET("/my_books")
		resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})
}

func TestBookLifecycleOverHTTP(t *testing.T) {
	ts := setupServer(t)

	register(t, ts, "alice", "pw")
	register(t, ts, "bob", "pw")

	login(t, ts, "alice", "pw")

	resp := ts.PostForm("/post_book", url.Values{
		"title":       {"Dune"},
		"author":      {"Frank Herbert"},
		"description": {"desert planet"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/books", resp.Header.Get("Location"))

	books := decodeBooks(t, ts.GET("/books?q=dune"))
	require.Len(t, books, 1)
	dune := books[0]
	assert.Equal(t, "alice", dune.Owner)

	t.Run("OwnerCannotBorrow", func(t *testing.T) {
		resp := ts.PostForm("/borrow/"+dune.ID, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	logout(t, ts)
	login(t, ts, "bob", "pw")

	t.Run("BobBorrows", func(t *testing.T) {
		resp := ts.PostForm("/borrow/"+dune.ID, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		// Borrowed books drop out of the browse list
		books := decodeBooks(t, ts.GET("/books"))
		assert.Empty(t, books)
	})

	t.Run("ChatOnLoan", func(t *testing.T) {
		resp := ts.PostForm("/chat/"+dune.ID, url.Values{"message": {"thanks for the book!"}})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var messages []*models.Message
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
		require.Len(t, messages, 1)
		assert.Equal(t, "bob", messages[0].Sender)
		assert.Equal(t, "alice", messages[0].Recipient)
	})

	t.Run("EmptyChatMessageIgnored", func(t *testing.T) {
		resp := ts.PostForm("/chat/"+dune.ID, url.Values{"message": {""}})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var messages []*models.Message
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
		assert.Len(t, messages, 1)
	})

	t.Run("BobReturns", func(t *testing.T) {
		resp := ts.PostForm("/return/"+dune.ID, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/my_books", resp.Header.Get("Location"))

		books := decodeBooks(t, ts.GET("/books"))
		require.Len(t, books, 1)
		assert.Nil(t, books[0].Borrower)
	})

	t.Run("BorrowUnknownBook", func(t *testing.T) {
		resp := ts.PostForm("/borrow/no-such-id", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestPostBookWithImage(t *testing.T) {
	ts := setupServer(t)

	register(t, ts, "alice", "pw")
	login(t, ts, "alice", "pw")

	postMultipart := func(t *testing.T, filename string) *models.Book {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("title", "Dune "+filename))
		require.NoError(t, writer.WriteField("author", "Frank Herbert"))
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		resp, err := ts.Client.Post(ts.URL+"/post_book", writer.FormDataContentType(), &buf)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		books := decodeBooks(t, ts.GET("/books?q="+url.QueryEscape("Dune "+filename)))
		require.Len(t, books, 1)
		return books[0]
	}

	t.Run("AllowedExtensionStored", func(t *testing.T) {
		book := postMultipart(t, "cover.png")
		require.NotNil(t, book.ImagePath)
		assert.Contains(t, *book.ImagePath, "cover.png")
	})

	t.Run("DisallowedExtensionDropped", func(t *testing.T) {
		book := postMultipart(t, "cover.pdf")
		assert.Nil(t, book.ImagePath, "book should be created without an image")
	})
}

func TestJSONAPI(t *testing.T) {
	ts := setupServer(t)

	register(t, ts, "alice", "pw")

	t.Run("LoginIssuesToken", func(t *testing.T) {
		resp := ts.PostJSON("/api/login", `{"username":"alice","password":"pw"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		token := body["token"]
		require.NotEmpty(t, token)

		req, err := http.NewRequest("GET", ts.URL+"/api/my_books", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		authResp, err := ts.Client.Do(req)
		require.NoError(t, err)
		defer authResp.Body.Close()
		assert.Equal(t, http.StatusOK, authResp.StatusCode)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		resp := ts.PostJSON("/api/login", `{"username":"alice","password":"nope"}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("MissingToken", func(t *testing.T) {
		resp := ts.GET("/api/my_books")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		req, err := http.NewRequest("GET", ts.URL+"/api/auth/check", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := ts.Client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
