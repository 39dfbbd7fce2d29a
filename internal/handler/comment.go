package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/service"
)

// CommentHandler serves comment creation and deletion.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// addCommentRequest is the body of POST /commentsOfPhoto/{photoId}.
// Mentions are user ids; malformed ones are ignored.
type addCommentRequest struct {
	Comment  string   `json:"comment"`
	Mentions []string `json:"mentions"`
}

// HandleAdd appends a comment and returns the updated photo.
//
// HTTP: POST /commentsOfPhoto/{photoId}
// REQUEST BODY: {"comment": "nice @ada", "mentions": ["<userId>"]}
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	authorID, _ := auth.UserIDFromContext(r.Context())

	var req addCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	photo, err := h.comments.AddComment(r.Context(), chi.URLParam(r, "photoId"), authorID, req.Comment, req.Mentions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// HandleDelete removes one of the caller's comments.
//
// HTTP: DELETE /commentsOfPhoto/{photoId}/{commentId}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := auth.UserIDFromContext(r.Context())

	err := h.comments.DeleteComment(r.Context(),
		chi.URLParam(r, "photoId"),
		chi.URLParam(r, "commentId"),
		requesterID,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted"})
}
