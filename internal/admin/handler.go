// Package admin exposes read-only listings for administrators.
package admin

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/pixelift/service/internal/db"
	"github.com/pixelift/service/internal/image"
	"github.com/pixelift/service/internal/response"
	"github.com/pixelift/service/internal/user"
)

// UserLister lists every user account; satisfied by *user.Service.
type UserLister interface {
	ListAll(ctx context.Context) ([]user.User, error)
}

// ImageLister lists every image record; satisfied by *image.Service.
type ImageLister interface {
	ListAll(ctx context.Context) ([]image.Image, error)
}

// Handler holds HTTP handlers for admin endpoints. Routes must be mounted
// behind RequireAuth and RequireAdmin.
type Handler struct {
	users  UserLister
	images ImageLister
}

// NewHandler creates a new admin Handler.
func NewHandler(users UserLister, images ImageLister) *Handler {
	return &Handler{users: users, images: images}
}

type userListing struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Deleted  bool   `json:"deleted"`
}

// Users godoc
//
//	@Summary		List all users
//	@Description	Every account, soft-deleted included, newest first. No pagination.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]userListing}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/admin/users [get]
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		if errors.Is(err, db.ErrUnavailable) {
			response.Unavailable(w)
			return
		}
		log.Printf("admin list users failed: %v", err)
		response.InternalError(w, "")
		return
	}

	listing := make([]userListing, 0, len(users))
	for _, u := range users {
		listing = append(listing, userListing{
			ID:       u.ID,
			Email:    u.Email,
			Username: u.Username,
			IsAdmin:  u.IsAdmin,
			Deleted:  u.Deleted,
		})
	}
	response.OK(w, listing)
}

// Images godoc
//
//	@Summary		List all images
//	@Description	Every image record, soft-deleted included, newest first. No pagination.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]image.Image}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/admin/images [get]
func (h *Handler) Images(w http.ResponseWriter, r *http.Request) {
	images, err := h.images.ListAll(r.Context())
	if err != nil {
		if errors.Is(err, db.ErrUnavailable) {
			response.Unavailable(w)
			return
		}
		log.Printf("admin list images failed: %v", err)
		response.InternalError(w, "")
		return
	}
	response.OK(w, images)
}
