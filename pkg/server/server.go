// Package server exposes a store.Store over HTTP.
//
// Every /api route except health and the read-only toggle acts on behalf of
// the owner resolved by the configured Authenticator. Store errors map to
// statuses by kind: not found 404, validation 400, conflict 409, read-only
// 503, anything else 500. Error bodies are
//
//	{"error": "...", "kind": "not_found"}
//
// Routes:
//
//	GET    /health, /api/health
//	POST   /api/nodes                        create a node
//	GET    /api/nodes?parent_id=             list children (roots without parent_id)
//	GET    /api/tree                         every node, depth first
//	PUT    /api/nodes/reorder                reorder siblings
//	GET    /api/nodes/{id}                   PATCH updates title or content, DELETE cascades
//	GET    /api/nodes/{id}/content           effective content
//	POST   /api/nodes/{id}/move
//	POST   /api/nodes/{id}/convert           turn a block into a synced block
//	PUT    /api/nodes/{id}/link              DELETE unlinks
//	POST   /api/synced-blocks                GET lists
//	GET    /api/synced-blocks/{id}           PUT replaces content, DELETE
//	GET    /api/synced-blocks/{id}/references
//	POST   /api/folders                      GET /api/folders?parent_id=
//	PUT    /api/folders/reorder
//	GET    /api/folders/{id}                 PATCH, DELETE
//	POST   /api/folders/{id}/move
//	POST   /api/categories                   GET lists system and own
//	PUT    /api/categories/reorder
//	GET    /api/categories/{id}              PATCH, DELETE
//	POST   /api/import/markdown
//	GET    /api/admin/read-only              POST toggles
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/rs/zerolog"
)

// Authenticator resolves the owner a request acts for.
type Authenticator interface {
	Owner(r *http.Request) (models.UserID, error)
}

// DefaultOwnerHeader is read by HeaderAuthenticator when Header is empty.
const DefaultOwnerHeader = "X-Owner-ID"

// HeaderAuthenticator trusts an owner id set by an upstream proxy that has
// already authenticated the caller.
type HeaderAuthenticator struct {
	Header string
}

func (a HeaderAuthenticator) Owner(r *http.Request) (models.UserID, error) {
	header := a.Header
	if header == "" {
		header = DefaultOwnerHeader
	}
	raw := r.Header.Get(header)
	if raw == "" {
		return models.UserID{}, fmt.Errorf("missing %s header", header)
	}
	return models.ParseUserID(raw)
}

type Options struct {
	Logger zerolog.Logger
	// Authenticator defaults to HeaderAuthenticator{}.
	Authenticator Authenticator
	ReadOnly      bool
}

// Server routes HTTP requests to a store. It is an http.Handler.
type Server struct {
	store    store.Store
	readOnly atomic.Bool
	auth     Authenticator
	log      zerolog.Logger
	router   *mux.Router
}

// New wraps s in a store.ReadOnlyStore controlled by the server's read-only
// flag and registers all routes.
func New(s store.Store, opts Options) *Server {
	if opts.Authenticator == nil {
		opts.Authenticator = HeaderAuthenticator{}
	}
	srv := &Server{
		auth: opts.Authenticator,
		log:  opts.Logger.With().Str("component", "server").Logger(),
	}
	srv.readOnly.Store(opts.ReadOnly)
	srv.store = store.NewReadOnlyStore(s, srv.IsReadOnly)
	srv.router = srv.routes()
	return srv
}

// SetReadOnly switches write rejection on or off at runtime.
func (s *Server) SetReadOnly(readOnly bool) {
	if s.readOnly.Swap(readOnly) != readOnly {
		s.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
	}
}

func (s *Server) IsReadOnly() bool {
	return s.readOnly.Load()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Nodes
	api.HandleFunc("/nodes", s.scoped(s.handleCreateNode)).Methods("POST")
	api.HandleFunc("/nodes", s.scoped(s.handleListChildren)).Methods("GET")
	api.HandleFunc("/nodes/reorder", s.scoped(s.handleReorderNodes)).Methods("PUT")
	api.HandleFunc("/tree", s.scoped(s.handleListTree)).Methods("GET")
	api.HandleFunc("/nodes/{id}", s.scoped(s.handleGetNode)).Methods("GET")
	api.HandleFunc("/nodes/{id}", s.scoped(s.handleUpdateNode)).Methods("PATCH")
	api.HandleFunc("/nodes/{id}", s.scoped(s.handleDeleteNode)).Methods("DELETE")
	api.HandleFunc("/nodes/{id}/content", s.scoped(s.handleResolveContent)).Methods("GET")
	api.HandleFunc("/nodes/{id}/move", s.scoped(s.handleMoveNode)).Methods("POST")
	api.HandleFunc("/nodes/{id}/convert", s.scoped(s.handleConvertToSynced)).Methods("POST")
	api.HandleFunc("/nodes/{id}/link", s.scoped(s.handleLinkSyncedBlock)).Methods("PUT")
	api.HandleFunc("/nodes/{id}/link", s.scoped(s.handleUnlinkSyncedBlock)).Methods("DELETE")

	// Synced blocks
	api.HandleFunc("/synced-blocks", s.scoped(s.handleCreateSyncedBlock)).Methods("POST")
	api.HandleFunc("/synced-blocks", s.scoped(s.handleListSyncedBlocks)).Methods("GET")
	api.HandleFunc("/synced-blocks/{id}", s.scoped(s.handleGetSyncedBlock)).Methods("GET")
	api.HandleFunc("/synced-blocks/{id}", s.scoped(s.handleUpdateSyncedBlock)).Methods("PUT")
	api.HandleFunc("/synced-blocks/{id}", s.scoped(s.handleDeleteSyncedBlock)).Methods("DELETE")
	api.HandleFunc("/synced-blocks/{id}/references", s.scoped(s.handleGetReferences)).Methods("GET")

	// Folders
	api.HandleFunc("/folders", s.scoped(s.handleCreateFolder)).Methods("POST")
	api.HandleFunc("/folders", s.scoped(s.handleListFolders)).Methods("GET")
	api.HandleFunc("/folders/reorder", s.scoped(s.handleReorderFolders)).Methods("PUT")
	api.HandleFunc("/folders/{id}", s.scoped(s.handleGetFolder)).Methods("GET")
	api.HandleFunc("/folders/{id}", s.scoped(s.handleUpdateFolder)).Methods("PATCH")
	api.HandleFunc("/folders/{id}", s.scoped(s.handleDeleteFolder)).Methods("DELETE")
	api.HandleFunc("/folders/{id}/move", s.scoped(s.handleMoveFolder)).Methods("POST")

	// Categories
	api.HandleFunc("/categories", s.scoped(s.handleCreateCategory)).Methods("POST")
	api.HandleFunc("/categories", s.scoped(s.handleListCategories)).Methods("GET")
	api.HandleFunc("/categories/reorder", s.scoped(s.handleReorderCategories)).Methods("PUT")
	api.HandleFunc("/categories/{id}", s.scoped(s.handleGetCategory)).Methods("GET")
	api.HandleFunc("/categories/{id}", s.scoped(s.handleUpdateCategory)).Methods("PATCH")
	api.HandleFunc("/categories/{id}", s.scoped(s.handleDeleteCategory)).Methods("DELETE")

	api.HandleFunc("/import/markdown", s.scoped(s.handleImportMarkdown)).Methods("POST")

	// Administration
	api.HandleFunc("/admin/read-only", s.handleGetReadOnly).Methods("GET")
	api.HandleFunc("/admin/read-only", s.handleSetReadOnly).Methods("POST")

	return router
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, owner models.UserID)

// scoped resolves the owner before calling h and answers 401 when it cannot.
func (s *Server) scoped(h ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.auth.Owner(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, KindUnauthorized, err.Error())
			return
		}
		h(w, r, owner)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	s.log.Info().Str("addr", addr).Bool("read_only", s.IsReadOnly()).Msg("server started")

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"read_only": s.IsReadOnly(),
		"time":      time.Now().Unix(),
	})
}

func (s *Server) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ReadOnlyState{ReadOnly: s.IsReadOnly()})
}

func (s *Server) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var req ReadOnlyState
	if !decode(w, r, &req) {
		return
	}
	s.SetReadOnly(req.ReadOnly)
	respondJSON(w, http.StatusOK, ReadOnlyState{ReadOnly: s.IsReadOnly()})
}
