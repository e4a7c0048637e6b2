package config

import (
	"context"
	"fmt"

	"ebook-reader/internal/domain"
	"ebook-reader/internal/repository"
	"ebook-reader/internal/service"
	"ebook-reader/internal/surface"
	"ebook-reader/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config domain.Config
	Logger domain.Logger

	UserData domain.UserDataRepository
	Settings domain.SettingsRepository

	Library     domain.LibraryService
	Reader      domain.ReaderService
	Selection   domain.SelectionService
	Annotations domain.AnnotationService
	Search      domain.SearchService
	Notes       domain.NoteService
	Chat        domain.ChatService
	PDF         domain.PDFService

	vertex      *repository.VertexChatClient
	watchCancel context.CancelFunc
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	store, err := repository.NewFileStore(config.GetDataPath(), appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	// Initialize repositories
	libraryRepo := repository.NewLibraryRepository(store, appLogger)
	userDataRepo := repository.NewUserDataRepository(store, appLogger)
	settingsRepo := repository.NewSettingsRepository(store, appLogger)

	// Vertex AI is optional. Without it the reader keeps working and AI
	// replies settle with a failure placeholder.
	var chatClient domain.ChatClient
	var vertex *repository.VertexChatClient
	if projectID := config.GetGCPProjectID(); projectID == "" {
		appLogger.Warn("GCP_PROJECT_ID not set, AI features disabled")
		chatClient = repository.NewDisabledChatClient()
	} else {
		vertex, err = repository.NewVertexChatClient(context.Background(), projectID, config.GetGCPLocation(), appLogger)
		if err != nil {
			appLogger.Warn("Vertex AI unavailable, AI features disabled", "error", err.Error())
			vertex = nil
			chatClient = repository.NewDisabledChatClient()
		} else {
			chatClient = vertex
		}
	}

	// Initialize services
	chat := service.NewChatManager(chatClient, settingsRepo, appLogger)
	if model := config.GetAIModel(); model != "" {
		chat.SetModel(model)
	}
	notes := service.NewNoteManager(chatClient, settingsRepo, appLogger)
	annotations := service.NewAnnotationManager(userDataRepo, appLogger)
	search := service.NewSearchService(config, appLogger)
	pdf := service.NewPDFManager(libraryRepo, userDataRepo, appLogger)
	probe := service.NewDocumentProbe(pdf, appLogger)
	library := service.NewLibraryManager(libraryRepo, userDataRepo, probe, config, appLogger)
	selection := service.NewSelectionController(annotations, notes, chat, settingsRepo, appLogger)
	reader := service.NewReaderManager(
		libraryRepo,
		userDataRepo,
		surface.NewManager(appLogger),
		probe,
		settingsRepo,
		chat,
		selection,
		annotations,
		search,
		notes,
		appLogger,
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	if err := library.Watch(watchCtx); err != nil {
		appLogger.Warn("import folder watch disabled", "error", err.Error())
	}

	return &Container{
		Config:      config,
		Logger:      appLogger,
		UserData:    userDataRepo,
		Settings:    settingsRepo,
		Library:     library,
		Reader:      reader,
		Selection:   selection,
		Annotations: annotations,
		Search:      search,
		Notes:       notes,
		Chat:        chat,
		PDF:         pdf,
		vertex:      vertex,
		watchCancel: watchCancel,
	}, nil
}

// Close releases everything the container owns. The active session is
// closed first so its final position lands in the flush.
func (c *Container) Close() {
	c.watchCancel()
	if err := c.Reader.CloseActive(); err != nil {
		c.Logger.Warn("failed to close reading session", "error", err.Error())
	}
	c.UserData.Flush()
	if c.vertex != nil {
		if err := c.vertex.Close(); err != nil {
			c.Logger.Warn("failed to close vertex client", "error", err.Error())
		}
	}
}
