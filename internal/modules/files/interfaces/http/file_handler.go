package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/gateway/middleware"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/internal/shared/utils"
)

// multipartOverhead is the slack allowed on top of the file for multipart
// boundaries and part headers.
const multipartOverhead = 1 << 20

// FileService is the part of the coordinator the handler needs.
type FileService interface {
	Policy() domain.UploadPolicy
	Upload(ctx context.Context, dc domain.DataClient, in domain.UploadInput) (*domain.UploadResult, error)
	List(ctx context.Context, dc domain.DataClient) ([]domain.File, error)
	Delete(ctx context.Context, dc domain.DataClient, id uuid.UUID) error
}

type uploadResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

type FileHandler struct {
	service FileService
	logger  *slog.Logger
}

func NewFileHandler(service FileService, logger *slog.Logger) *FileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHandler{service: service, logger: logger}
}

// List handles GET /files.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	dc, ok := middleware.DataClientFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Auth token missing")
		return
	}

	files, err := h.service.List(r.Context(), dc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, files)
}

// Upload handles POST /upload with a multipart "file" field.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	dc, ok := middleware.DataClientFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Auth token missing")
		return
	}

	maxBytes := h.service.Policy().MaxBytes()
	if r.ContentLength > maxBytes+multipartOverhead {
		h.writeError(w, r, domain.ErrFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	in, err := readUpload(r, maxBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.Upload(r.Context(), dc, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, uploadResponse{Message: "Upload successful", Path: res.Path})
}

// Delete handles DELETE /files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dc, ok := middleware.DataClientFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Auth token missing")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "File not found")
		return
	}

	if err := h.service.Delete(r.Context(), dc, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "File deleted")
}

// readUpload streams the multipart body up to the first "file" part. A
// request without one yields an input with nil Data, which validation
// reports as a missing file.
func readUpload(r *http.Request, maxBytes int64) (domain.UploadInput, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return domain.UploadInput{}, nil
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return domain.UploadInput{}, nil
		}
		if err != nil {
			return domain.UploadInput{}, bodyError(err)
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		// one byte over the limit is enough for validation to reject it
		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		_ = part.Close()
		if err != nil {
			return domain.UploadInput{}, bodyError(err)
		}
		return domain.UploadInput{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.ErrFileTooLarge
	}
	return &domain.ValidationError{Reason: "Malformed upload"}
}

func (h *FileHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrMissingFile):
		utils.WriteError(w, http.StatusBadRequest, domain.ErrMissingFile.Reason)
	case errors.As(err, &ve):
		utils.WriteError(w, http.StatusBadRequest, "Upload error: "+ve.Reason)
	case errors.Is(err, domain.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "File not found")
	default:
		h.logger.ErrorContext(r.Context(), "file request failed", logging.Error(err), slog.String("path", r.URL.Path))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
