package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/server/middleware"
	"github.com/jonathan/listing-customizer/internal/service"
	"github.com/jonathan/listing-customizer/internal/types"
)

// ListingService is the subset of *service.Service the handlers call.
type ListingService interface {
	GetListing(ctx context.Context, rawRef, userID string) (*types.ComposedListing, error)
	RawImages(ctx context.Context, rawRef string) ([]string, error)
	UpdateOverlay(ctx context.Context, userID, rawRef string, patch types.OverlayPatch) (*types.OverlayRecord, error)
	AddOverlayImage(ctx context.Context, userID, rawRef, name string, data []byte) (*types.OverlayImage, error)
	RemoveOverlayImage(ctx context.Context, userID, rawRef, imageID string) error
	DeleteOverlay(ctx context.Context, userID, rawRef string) error
	InvalidateCache(ctx context.Context, rawRef string) error
	ClearAllCache(ctx context.Context) error
}

var _ ListingService = (*service.Service)(nil)

// listingErrorResponse is sent when the source page could not be read; the
// placeholder listing still carries any overlay the user has.
type listingErrorResponse struct {
	Error   string                 `json:"error"`
	Listing *types.ComposedListing `json:"listing"`
}

// userID returns the authenticated user, or "" for anonymous requests.
func userID(r *http.Request) string {
	id, err := middleware.GetUserID(r)
	if err != nil {
		return ""
	}
	return id
}

// requireUserID returns the authenticated user or writes 401.
func (s *Server) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		s.errorResponse(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
		return "", false
	}
	return id, true
}

// handleGetListing serves GET /listings?ref=
func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		s.serviceError(w, r, &ErrValidation{Field: "ref", Message: "query parameter is required"})
		return
	}

	composed, err := s.svc.GetListing(r.Context(), ref, userID(r))
	if err != nil {
		if composed != nil && isUpstream(err) {
			status := HTTPStatus(err)
			s.logger.Warn("listing fetch failed", "ref", ref, "status", status, "error", err)
			s.jsonResponse(w, status, listingErrorResponse{Error: clientMessage(status, err), Listing: composed})
			return
		}
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, composed)
}

// handleRawImages serves GET /listings/{id}/images
func (s *Server) handleRawImages(w http.ResponseWriter, r *http.Request) {
	imgs, err := s.svc.RawImages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"images": imgs})
}

// handleUpdateOverlay serves PATCH /listings/{id}/overlay
func (s *Server) handleUpdateOverlay(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	var patch types.OverlayPatch
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		s.serviceError(w, r, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	rec, err := s.svc.UpdateOverlay(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleDeleteOverlay serves DELETE /listings/{id}/overlay
func (s *Server) handleDeleteOverlay(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUserID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteOverlay(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddOverlayImage serves POST /listings/{id}/overlay/images with a
// multipart "file" field.
func (s *Server) handleAddOverlayImage(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		s.serviceError(w, r, &ErrValidation{Field: "file", Message: err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.serviceError(w, r, &ErrValidation{Field: "file", Message: "multipart field is required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.serviceError(w, r, &ErrValidation{Field: "file", Message: err.Error()})
		return
	}

	img, err := s.svc.AddOverlayImage(r.Context(), uid, chi.URLParam(r, "id"), header.Filename, data)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, img)
}

// handleRemoveOverlayImage serves DELETE /listings/{id}/overlay/images/{imageId}
func (s *Server) handleRemoveOverlayImage(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUserID(w, r)
	if !ok {
		return
	}
	err := s.svc.RemoveOverlayImage(r.Context(), uid, chi.URLParam(r, "id"), chi.URLParam(r, "imageId"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInvalidateCache serves DELETE /cache/{id}
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.InvalidateCache(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearCache serves DELETE /cache
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearAllCache(r.Context()); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isUpstream(err error) bool {
	var unavailable *fetch.UpstreamUnavailableError
	var timeout *fetch.TimeoutError
	return errors.As(err, &unavailable) || errors.As(err, &timeout)
}
