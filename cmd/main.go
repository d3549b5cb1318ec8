package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"bookswap/db"
	"bookswap/internal/auth"
	"bookswap/internal/book"
	"bookswap/internal/chat"
	"bookswap/internal/config"
	"bookswap/internal/upload"
	"bookswap/internal/web"
	"bookswap/middleware"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	infoLogger  = log.New(os.Stdout, "", log.LstdFlags)
	errorLogger = log.New(os.Stderr, "", log.LstdFlags)
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		errorLogger.Fatalf("Failed to load configuration: %v", err)
	}

	var sqliteDB *sql.DB
	var mongoClient *mongo.Client

	switch cfg.DatabaseType {
	case config.MongoDB:
		infoLogger.Println("Using MongoDB database")
		mongoClient, err = db.ConnectToMongo(cfg.MongoURI)
		if err != nil {
			errorLogger.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		if err := db.EnsureIndexes(context.Background(), mongoClient, cfg.DatabaseName); err != nil {
			errorLogger.Fatalf("Failed to create indexes: %v", err)
		}
	default:
		infoLogger.Println("Using SQLite database")
		sqliteDB, err = db.ConnectToSQLite(cfg.SQLitePath)
		if err != nil {
			errorLogger.Fatalf("Failed to connect to SQLite: %v", err)
		}
		if err := db.InitializeSchema(sqliteDB); err != nil {
			errorLogger.Fatalf("Failed to initialize database schema: %v", err)
		}
	}

	repoFactory := db.NewRepositoryFactory(sqliteDB, mongoClient, cfg.DatabaseName)

	userRepo := repoFactory.NewUserRepository()
	bookRepo := repoFactory.NewBookRepository()
	messageRepo := repoFactory.NewMessageRepository()

	// Serializes loan-state writes; see db.DBManager
	dbManager := db.NewDBManager()
	defer dbManager.Stop()

	uploadService, err := upload.NewUploadService(cfg.UploadDir)
	if err != nil {
		errorLogger.Fatalf("Failed to initialize upload directory: %v", err)
	}

	authService := auth.NewAuthService(userRepo)
	bookService := book.NewBookService(bookRepo, dbManager)
	messageService := chat.NewMessageService(messageRepo, bookService, dbManager)

	webHandler := web.NewWebHandler(authService, bookService, messageService, uploadService, cfg)
	router := webHandler.SetupRoutes(middleware.NewMiddleware(cfg))
	loggedRouter := middleware.LoggingMiddleware(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: loggedRouter,
	}

	go func() {
		infoLogger.Printf("Server is starting on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errorLogger.Fatalf("Server ListenAndServe error: %v", err)
		}
	}()

	waitForShutdown(server, sqliteDB, mongoClient)
}

func waitForShutdown(server *http.Server, sqliteDB *sql.DB, mongoClient *mongo.Client) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	sig := <-stop
	infoLogger.Printf("Received shutdown signal: %v", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	infoLogger.Println("Shutting down the server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		errorLogger.Printf("Server Shutdown error: %v", err)
	}

	if sqliteDB != nil {
		if err := sqliteDB.Close(); err != nil {
			errorLogger.Printf("Error closing SQLite: %v", err)
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			errorLogger.Printf("Error disconnecting MongoDB: %v", err)
		}
	}

	infoLogger.Println("Server stopped")
}
