package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/service"
)

// uploadField is the multipart field carrying the image.
const uploadField = "uploadedphoto"

// PhotoHandler serves photo listing, upload and deletion.
type PhotoHandler struct {
	photos         *service.PhotoService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewPhotoHandler(photos *service.PhotoService, maxUploadBytes int64, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, maxUploadBytes: maxUploadBytes, logger: logger}
}

// HandleListByOwner returns the user's photos with comments resolved.
//
// HTTP: GET /photosOfUser/{id}
func (h *PhotoHandler) HandleListByOwner(w http.ResponseWriter, r *http.Request) {
	photos, err := h.photos.ListByOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// HandleByIndex returns one photo by its 1-based position.
//
// HTTP: GET /photosOfUser/{id}/{index}
func (h *PhotoHandler) HandleByIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, apperror.ValidationFailed("index", "photo index must be a number"))
		return
	}

	photo, err := h.photos.ByIndex(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// HandleUpload stores a new photo for the caller.
//
// HTTP: POST /photos/new (multipart/form-data, field "uploadedphoto")
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, r, apperror.ValidationFailed(uploadField, "file too large"))
		default:
			writeError(w, r, apperror.ValidationFailed(uploadField, "No file uploaded"))
		}
		return
	}
	defer file.Close()

	photo, err := h.photos.Upload(r.Context(), ownerID, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// HandleDelete removes one of the caller's photos.
//
// HTTP: DELETE /photos/{photoId}
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := auth.UserIDFromContext(r.Context())

	if err := h.photos.Delete(r.Context(), requesterID, chi.URLParam(r, "photoId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Photo deleted"})
}
