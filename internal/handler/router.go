// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Library     *LibraryHandler
	Reader      *ReaderHandler
	Selection   *SelectionHandler
	Annotations *AnnotationHandler
	Search      *SearchHandler
	Notes       *NoteHandler
	Chat        *ChatHandler
	Settings    *SettingsHandler
	PDF         *PDFHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, allowedOrigins []string, middleware ...mux.MiddlewareFunc) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"ebook-reader"}`))
	}).Methods("GET")

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()
	for _, mw := range middleware {
		api.Use(mw)
	}

	// Library routes
	api.HandleFunc("/library", h.Library.List).Methods("GET")
	api.HandleFunc("/library/import", h.Library.Import).Methods("POST")
	api.HandleFunc("/library/{id}", h.Library.Get).Methods("GET")
	api.HandleFunc("/library/{id}", h.Library.Delete).Methods("DELETE")

	// Reading session routes
	api.HandleFunc("/session", h.Reader.Active).Methods("GET")
	api.HandleFunc("/session/open", h.Reader.Open).Methods("POST")
	api.HandleFunc("/session/close", h.Reader.Close).Methods("POST")
	api.HandleFunc("/session/goto", h.Reader.GoTo).Methods("POST")
	api.HandleFunc("/session/next", h.Reader.Next).Methods("POST")
	api.HandleFunc("/session/prev", h.Reader.Prev).Methods("POST")
	api.HandleFunc("/session/content", h.Reader.Content).Methods("GET")
	api.HandleFunc("/session/overlays", h.Reader.Overlays).Methods("GET")
	api.HandleFunc("/session/resize", h.Reader.Resize).Methods("POST")
	api.HandleFunc("/session/selection", h.Reader.Selection).Methods("POST")

	// Selection menu routes
	api.HandleFunc("/selection", h.Selection.Snapshot).Methods("GET")
	api.HandleFunc("/selection/click", h.Selection.Click).Methods("POST")
	api.HandleFunc("/selection/copy", h.Selection.Copy).Methods("POST")
	api.HandleFunc("/selection/annotate", h.Selection.Annotate).Methods("POST")
	api.HandleFunc("/selection/ask-ai", h.Selection.AskAI).Methods("POST")
	api.HandleFunc("/selection/inline-ai", h.Selection.InlineAI).Methods("POST")
	api.HandleFunc("/selection/overlay-clicked", h.Selection.OverlayClicked).Methods("POST")
	api.HandleFunc("/selection/dismiss", h.Selection.Dismiss).Methods("POST")

	// Annotation and bookmark routes
	api.HandleFunc("/books/{id}/annotations", h.Annotations.List).Methods("GET")
	api.HandleFunc("/books/{id}/annotations", h.Annotations.Create).Methods("POST")
	api.HandleFunc("/books/{id}/annotations/{anchor}", h.Annotations.Get).Methods("GET")
	api.HandleFunc("/books/{id}/annotations/{anchor}", h.Annotations.Update).Methods("PUT")
	api.HandleFunc("/books/{id}/annotations/{anchor}", h.Annotations.Delete).Methods("DELETE")
	api.HandleFunc("/books/{id}/bookmarks", h.Annotations.ListBookmarks).Methods("GET")
	api.HandleFunc("/books/{id}/bookmarks", h.Annotations.AddBookmark).Methods("POST")
	api.HandleFunc("/books/{id}/bookmarks/{anchor}", h.Annotations.RemoveBookmark).Methods("DELETE")

	// Search routes
	api.HandleFunc("/search/scan", h.Search.Scan).Methods("POST")
	api.HandleFunc("/search/interactive", h.Search.Interactive).Methods("POST")
	api.HandleFunc("/search/next", h.Search.Next).Methods("POST")
	api.HandleFunc("/search/prev", h.Search.Prev).Methods("POST")
	api.HandleFunc("/search/close", h.Search.Close).Methods("POST")

	// Inline note routes
	api.HandleFunc("/notes", h.Notes.List).Methods("GET")
	api.HandleFunc("/notes", h.Notes.Create).Methods("POST")
	api.HandleFunc("/notes/{id}", h.Notes.Get).Methods("GET")
	api.HandleFunc("/notes/{id}/prompt", h.Notes.Prompt).Methods("POST")
	api.HandleFunc("/notes/{id}", h.Notes.Dismiss).Methods("DELETE")

	// Chat routes
	api.HandleFunc("/chat", h.Chat.Send).Methods("POST")
	api.HandleFunc("/chat/history", h.Chat.History).Methods("GET")
	api.HandleFunc("/chat/reset", h.Chat.Reset).Methods("POST")
	api.HandleFunc("/chat/model", h.Chat.Model).Methods("GET")

	// Settings routes
	api.HandleFunc("/settings", h.Settings.Get).Methods("GET")
	api.HandleFunc("/settings", h.Settings.Update).Methods("PUT")

	// PDF routes
	api.HandleFunc("/pdf/{id}/open", h.PDF.Open).Methods("POST")
	api.HandleFunc("/pdf/{id}/pages/{number}", h.PDF.Page).Methods("GET")
	api.HandleFunc("/pdf/{id}/position", h.PDF.SavePosition).Methods("PUT")
	api.HandleFunc("/pdf/{id}/close", h.PDF.Close).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"Cache-Control",
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
