package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ebook-reader/internal/config"
	"ebook-reader/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Handlers
	h := handler.Handlers{
		Library:     handler.NewLibraryHandler(container.Library, container.Logger),
		Reader:      handler.NewReaderHandler(container.Reader, container.Logger),
		Selection:   handler.NewSelectionHandler(container.Selection, container.Logger),
		Annotations: handler.NewAnnotationHandler(container.Annotations, container.Logger),
		Search:      handler.NewSearchHandler(container.Search, container.Logger),
		Notes:       handler.NewNoteHandler(container.Notes, container.Logger),
		Chat:        handler.NewChatHandler(container.Chat, container.Logger),
		Settings:    handler.NewSettingsHandler(container.Settings, container.Chat, container.Logger),
		PDF:         handler.NewPDFHandler(container.PDF, container.Logger),
	}

	// Router
	router := handler.NewRouter(
		h,
		container.Config.GetAllowedOrigins(),
		handler.RecoveryMiddleware(container.Logger),
		handler.RequestLogMiddleware(container.Logger),
	)

	// start server
	server := &http.Server{
		Addr:    ":" + container.Config.GetServerPort(),
		Handler: router,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()
	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	_ = server.Close()
	container.Close()

	container.Logger.Info("Server exited")
}
