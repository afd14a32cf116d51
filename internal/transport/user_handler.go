package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/middleware"
	"github.com/xinodeprinz/edstock-server/internal/service"
)

// SignInRequest represents the sign-in request payload
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest represents the user creation payload
type CreateUserRequest struct {
	UserID   string  `json:"userId,omitempty"`
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Role     string  `json:"role" validate:"required,oneof=SUPER_ADMIN ADMIN STAFF"`
	Photo    *string `json:"photo,omitempty"`
	Password string  `json:"password" validate:"required,min=8"`
}

// SignInResponse represents the sign-in response
type SignInResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes. signInLimit guards the only
// public route; user management is reserved to super admins.
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware, signInLimit func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.With(signInLimit).Post("/signin", h.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSuperAdmin(h.logger))
				r.Post("/", h.Create)
				r.Delete("/{id}", h.Delete)
			})
		})
	})
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to retrieve users")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// SignIn handles POST /users/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sign-in validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	token, user, err := h.userService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Sign-in failed", zap.Error(err))
		respondWithServiceError(w, h.logger, err, "failed to sign in")
		return
	}

	h.logger.Info("User signed in", zap.String("user_id", user.UserID))
	middleware.RespondWithJSON(w, http.StatusOK, SignInResponse{Token: token, User: user})
}

// Create handles POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("User validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.Create(r.Context(), service.CreateUserInput{
		UserID:   req.UserID,
		Name:     req.Name,
		Email:    req.Email,
		Role:     domain.Role(req.Role),
		Photo:    req.Photo,
		Password: req.Password,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create user")
		return
	}

	createdBy, _ := middleware.GetUserID(r.Context())
	h.logger.Info("User created",
		zap.String("user_id", user.UserID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", createdBy),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, user)
}

// Delete handles DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.userService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete user")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "User deleted successfully")
}
