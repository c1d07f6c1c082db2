package image

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pixelift/service/internal/db"
	"github.com/pixelift/service/internal/middleware"
	"github.com/pixelift/service/internal/response"
	"github.com/pixelift/service/internal/storage"
)

// MaxUploadBytes is the upload size limit (10 MiB).
const MaxUploadBytes = 10 << 20

// allowedTypes are the accepted upload MIME types. Declared types only, no
// magic-byte verification.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	svc        *Service
	production bool
}

// NewHandler creates a new image Handler. In production, pipeline failure
// details are logged but kept out of response bodies.
func NewHandler(svc *Service, production bool) *Handler {
	return &Handler{svc: svc, production: production}
}

type enhanceData struct {
	DownloadURL string `json:"downloadUrl" example:"/api/images/download/enhanced-17096...-cat.jpg?token=ab12..."`
}

// Enhance godoc
//
//	@Summary		Enhance a photo
//	@Description	Upload a JPEG/PNG/WEBP up to 10 MiB, run super-resolution on it, and get back a tokenized download link.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			photo	formData	file	true	"Photo to enhance"
//	@Success		200		{object}	response.Envelope{data=enhanceData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/images/enhance [post]
func (h *Handler) Enhance(w http.ResponseWriter, r *http.Request) {
	// Bound the whole multipart body; the per-file check below gives the 400.
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)

	file, header, err := r.FormFile("photo")
	if err != nil {
		response.BadRequest(w, "photo file required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedTypes[contentType] || header.Size > MaxUploadBytes {
		response.BadRequest(w, "invalid file type or size, only JPEG, PNG, WEBP up to 10MB allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "could not read uploaded file")
		return
	}

	// The enhance route is public; records carry an owner only when the
	// caller went through the auth middleware.
	var userID *string
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		userID = &id
	}

	downloadURL, err := h.svc.Enhance(r.Context(), userID, data, header.Filename, contentType)
	if err != nil {
		log.Printf("enhance failed: %v", err)
		if h.production {
			response.InternalError(w, "enhance failed")
		} else {
			response.InternalError(w, fmt.Sprintf("enhance failed: %v", err))
		}
		return
	}

	response.OK(w, enhanceData{DownloadURL: downloadURL})
}

// Download godoc
//
//	@Summary		Download an enhanced image
//	@Description	Streams the file when both the path and the download token match a stored record.
//	@Tags			images
//	@Produce		octet-stream
//	@Param			filePath	path	string	true	"Stored file name"
//	@Param			token		query	string	true	"Download token"
//	@Success		200	{file}		binary
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/images/download/{filePath} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	filePath := chi.URLParam(r, "filePath")
	if unescaped, err := url.PathUnescape(filePath); err == nil {
		filePath = unescaped
	}
	token := r.URL.Query().Get("token")

	img, rc, err := h.svc.Download(r.Context(), filePath, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Forbidden(w, "invalid or expired download link")
		case errors.Is(err, storage.ErrNotExist):
			response.NotFound(w, "file not found")
		case errors.Is(err, db.ErrUnavailable):
			response.Unavailable(w)
		default:
			log.Printf("download failed: %v", err)
			response.InternalError(w, "")
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.OriginalName))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("download stream interrupted: %v", err)
	}
}

// MyImages godoc
//
//	@Summary		List my images
//	@Description	Returns the caller's non-deleted image records, newest first.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Image}
//	@Failure		401	{object}	response.Envelope
//	@Router			/images/my [get]
func (h *Handler) MyImages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	images, err := h.svc.ListMine(r.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrUnavailable) {
			response.Unavailable(w)
			return
		}
		log.Printf("list images failed: %v", err)
		response.InternalError(w, "")
		return
	}

	response.OK(w, images)
}

// Delete godoc
//
//	@Summary		Soft-delete an image
//	@Description	Marks the caller's image as deleted. The record and file are retained for audit.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Image ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/images/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	err := h.svc.SoftDelete(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "image not found")
		case errors.Is(err, db.ErrUnavailable):
			response.Unavailable(w)
		default:
			log.Printf("delete image failed: %v", err)
			response.InternalError(w, "")
		}
		return
	}

	response.OK(w, map[string]bool{"deleted": true})
}
