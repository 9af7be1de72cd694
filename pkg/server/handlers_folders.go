package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
)

// Folders

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var in store.NewFolder
	if !decode(w, r, &in) {
		return
	}
	folder, err := s.store.CreateFolder(r.Context(), owner, in)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, folder)
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	parent, ok := parseOptional(w, r.URL.Query().Get("parent_id"), models.ParseFolderID)
	if !ok {
		return
	}
	folders, err := s.store.ListFolders(r.Context(), owner, parent)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, folders)
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseFolderID)
	if !ok {
		return
	}
	folder, err := s.store.GetFolder(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, folder)
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseFolderID)
	if !ok {
		return
	}
	var in store.FolderUpdate
	if !decode(w, r, &in) {
		return
	}
	folder, err := s.store.UpdateFolder(r.Context(), owner, id, in)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, folder)
}

func (s *Server) handleMoveFolder(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseFolderID)
	if !ok {
		return
	}
	var req MoveFolderRequest
	if !decode(w, r, &req) {
		return
	}
	folder, err := s.store.MoveFolder(r.Context(), owner, id, req.ParentID, positionOrAppend(req.Position))
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, folder)
}

func (s *Server) handleReorderFolders(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var req ReorderFoldersRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.store.ReorderFolders(r.Context(), owner, req.ParentID, req.Ordered); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseFolderID)
	if !ok {
		return
	}
	if err := s.store.DeleteFolder(r.Context(), owner, id); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Categories

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var in store.NewCategory
	if !decode(w, r, &in) {
		return
	}
	category, err := s.store.CreateCategory(r.Context(), owner, in)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	categories, err := s.store.ListCategories(r.Context(), owner)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseCategoryID)
	if !ok {
		return
	}
	category, err := s.store.GetCategory(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseCategoryID)
	if !ok {
		return
	}
	var in store.CategoryUpdate
	if !decode(w, r, &in) {
		return
	}
	category, err := s.store.UpdateCategory(r.Context(), owner, id, in)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	var req ReorderCategoriesRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.store.ReorderCategories(r.Context(), owner, req.Ordered); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, owner models.UserID) {
	id, ok := parseParam(w, mux.Vars(r)["id"], models.ParseCategoryID)
	if !ok {
		return
	}
	if err := s.store.DeleteCategory(r.Context(), owner, id); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
