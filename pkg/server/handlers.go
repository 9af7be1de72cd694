package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/paduck86/distillai/pkg/importer"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
)

// Nodes

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var in store.NewNode
	if !decode(w, r, &in) {
		return
	}
	node, err := s.store.CreateNode(r.Context(), owner, in)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, node)
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	parent, ok := parseOptional(w, r.URL.Query().Get("parent_id"), models.ParseNodeID)
	if !ok {
		return
	}
	nodes, err := s.store.ListChildren(r.Context(), owner, parent)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleListTree(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	nodes, err := s.store.ListTree(r.Context(), owner)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	node, err := s.store.GetNode(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	var in store.NodeUpdate
	if !decode(w, r, &in) {
		return
	}
	node, err := s.store.UpdateNode(r.Context(), owner, id, in)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	if err := s.store.DeleteNode(r.Context(), owner, id); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleResolveContent(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	content, err := s.store.ResolveContent(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, content)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	var req MoveNodeRequest
	if !decode(w, r, &req) {
		return
	}
	node, err := s.store.MoveNode(r.Context(), owner, id, req.ParentID, positionOrAppend(req.Position))
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) handleReorderNodes(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var req ReorderNodesRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.store.ReorderNodes(r.Context(), owner, req.ParentID, req.Ordered); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Synced blocks

func (s *Server) handleConvertToSynced(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	sb, err := s.store.ConvertToSynced(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, sb)
}

func (s *Server) handleLinkSyncedBlock(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	var req LinkRequest
	if !decode(w, r, &req) {
		return
	}
	node, err := s.store.LinkSyncedBlock(r.Context(), owner, id, req.SyncedBlockID)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) handleUnlinkSyncedBlock(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseNodeID)
	if !ok {
		return
	}
	node, err := s.store.UnlinkSyncedBlock(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

func (s *Server) handleCreateSyncedBlock(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var req ContentRequest
	if !decode(w, r, &req) {
		return
	}
	sb, err := s.store.CreateSyncedBlock(r.Context(), owner, req.Content)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, sb)
}

func (s *Server) handleListSyncedBlocks(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	blocks, err := s.store.ListSyncedBlocks(r.Context(), owner)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleGetSyncedBlock(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseSyncedBlockID)
	if !ok {
		return
	}
	sb, err := s.store.GetSyncedBlock(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sb)
}

func (s *Server) handleUpdateSyncedBlock(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseSyncedBlockID)
	if !ok {
		return
	}
	var req ContentRequest
	if !decode(w, r, &req) {
		return
	}
	sb, err := s.store.UpdateSyncedBlock(r.Context(), owner, id, req.Content)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sb)
}

func (s *Server) handleDeleteSyncedBlock(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseSyncedBlockID)
	if !ok {
		return
	}
	if err := s.store.DeleteSyncedBlock(r.Context(), owner, id); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetReferences(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseSyncedBlockID)
	if !ok {
		return
	}
	nodes, err := s.store.GetReferences(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

// Import

func (s *Server) handleImportMarkdown(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var req ImportRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		req.Name = "Untitled.md"
	}
	res, err := importer.Markdown(r.Context(), s.store, owner, req.ParentID, req.Name, []byte(req.Markdown))
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}
