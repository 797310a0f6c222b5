package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/validation"
)

type createCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type categoryView struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createCategoryRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := validation.Category(&req.Name); err != nil {
		writeError(w, s.logger, err)
		return
	}
	category := domain.Category{SystemID: claims.SystemID, Name: req.Name}
	if err := s.categories.CreateCategory(r.Context(), category); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryView{Name: category.Name})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	categories, err := s.categories.ListCategories(r.Context(), claims.SystemID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]categoryView, len(categories))
	for i, c := range categories {
		views[i] = categoryView{Name: c.Name}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createCategoryRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := validation.Category(&req.Name); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.categories.UpdateCategory(r.Context(), claims.SystemID, chi.URLParam(r, "name"), req.Name); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryView{Name: req.Name})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.categories.DeleteCategory(r.Context(), claims.SystemID, chi.URLParam(r, "name")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
