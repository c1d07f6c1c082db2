package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"

	"github.com/pixelift/service/internal/db"
	"github.com/pixelift/service/internal/response"
	"github.com/pixelift/service/internal/user"
)

// emailRegex accepts anything shaped like local@domain.tld.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 8

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type credentialsRequest struct {
	Email    string `json:"email"    example:"jane@example.com"`
	Password string `json:"password" example:"hunter2hunter2"`
}

type authData struct {
	Token string     `json:"token" example:"eyJhbGci..."`
	User  *user.User `json:"user"`
}

// Register godoc
//
//	@Summary		Register a new user
//	@Description	Create an account with email and password. Issues a JWT valid for 7 days.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		credentialsRequest	true	"Email and password"
//	@Success		201		{object}	response.Envelope{data=authData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(w, "email and password required")
		return
	}
	if !emailRegex.MatchString(req.Email) {
		response.BadRequest(w, "invalid email format")
		return
	}
	if len(req.Password) < minPasswordLen {
		response.BadRequest(w, "password must be at least 8 characters long")
		return
	}

	token, u, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrAlreadyExists):
			response.Conflict(w, "user already exists")
		case errors.Is(err, db.ErrUnavailable):
			response.Unavailable(w)
		default:
			log.Printf("register failed: %v", err)
			response.InternalError(w, "")
		}
		return
	}

	response.Created(w, authData{Token: token, User: u})
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Verify credentials and issue a JWT. Unknown email and wrong password return the same 401.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		credentialsRequest	true	"Email and password"
//	@Success		200		{object}	response.Envelope{data=authData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(w, "email and password required")
		return
	}
	if !emailRegex.MatchString(req.Email) {
		response.BadRequest(w, "invalid email format")
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Unauthorized(w, "invalid credentials")
		case errors.Is(err, db.ErrUnavailable):
			response.Unavailable(w)
		default:
			log.Printf("login failed: %v", err)
			response.InternalError(w, "")
		}
		return
	}

	response.OK(w, authData{Token: token, User: u})
}
