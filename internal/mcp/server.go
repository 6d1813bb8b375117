package mcp

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/RealFaceCode/ContextBrain/internal/config"
	"github.com/RealFaceCode/ContextBrain/internal/embedder"
	"github.com/RealFaceCode/ContextBrain/internal/indexer"
	"github.com/RealFaceCode/ContextBrain/internal/query"
	"github.com/RealFaceCode/ContextBrain/internal/storage"
	"github.com/RealFaceCode/ContextBrain/internal/vectorstore"
	"github.com/RealFaceCode/ContextBrain/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "contextbrain"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	store    storage.Store
	vectors  vectorstore.Index
	embedder embedder.Embedder
	indexer  *indexer.Indexer
	query    *query.Engine

	// watch state for the currently indexed root
	watcher     *watcher.Watcher
	watchedRoot string
}

// NewServer creates an MCP server with both stores and the embedder
// wired from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	if err := os.MkdirAll(cfg.DBRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.StructuredDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize structured index: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModelID,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var vectors vectorstore.Index
	switch cfg.VectorBackend {
	case "qdrant":
		vectors, err = vectorstore.NewQdrantIndex(cfg.QdrantAddr, "contextbrain_elements", emb.Dimension())
	default:
		vectors, err = vectorstore.NewLocalIndex(cfg.VectorDir())
	}
	if err != nil {
		_ = store.Close()
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		store:    store,
		vectors:  vectors,
		embedder: emb,
		indexer:  indexer.New(cfg, store, vectors, emb),
		query:    query.New(store, vectors, emb, cfg.DependencyScan),
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.shutdown()
	return server.ServeStdio(s.mcp)
}

func (s *Server) shutdown() {
	s.stopWatcher()
	_ = s.embedder.Close()
	_ = s.vectors.Close()
	_ = s.store.Close()
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchSemanticTool(), s.handleSearchSemantic)
	s.mcp.AddTool(searchStructuralTool(), s.handleSearchStructural)
	s.mcp.AddTool(getContextForFileTool(), s.handleGetContextForFile)
	s.mcp.AddTool(getProjectStructureTool(), s.handleGetProjectStructure)
	s.mcp.AddTool(getDependenciesTool(), s.handleGetDependencies)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(cleanTool(), s.handleClean)
}

// startWatcher begins observing root for incremental updates,
// replacing any previous watch.
func (s *Server) startWatcher(root string) {
	s.stopWatcher()

	w, err := watcher.New(root, s.cfg.WatcherDebounce(), 0, func(ctx context.Context, ev watcher.Event) {
		var err error
		switch ev.Kind {
		case watcher.EventDeleted:
			err = s.indexer.DeleteFile(ctx, root, ev.Path)
		default:
			err = s.indexer.IndexFile(ctx, root, ev.Path)
		}
		if err != nil {
			log.Printf("incremental update failed for %s: %v", ev.Path, err)
		}
	})
	if err != nil {
		log.Printf("file watcher unavailable for %s: %v", root, err)
		return
	}

	w.Start(context.Background())
	s.watcher = w
	s.watchedRoot = root
	log.Printf("watching %s for changes", root)
}

func (s *Server) stopWatcher() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
		s.watchedRoot = ""
	}
}
