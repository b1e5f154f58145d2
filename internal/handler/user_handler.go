package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luis-domingues/taskly/internal/middleware"
	"github.com/luis-domingues/taskly/internal/models"
	"github.com/luis-domingues/taskly/internal/service"
	"github.com/luis-domingues/taskly/internal/utils"
)

// AccountCommander defines the write-side operations used by UserHandler.
type AccountCommander interface {
	Register(ctx context.Context, cmd service.RegisterCommand) (*models.User, error)
	Update(ctx context.Context, cmd service.UpdateCommand) (*models.UserView, error)
	Delete(ctx context.Context, userID string) error
}

// AccountQuerier defines the read-side operations used by UserHandler.
type AccountQuerier interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.UserView, error)
	Search(ctx context.Context, filter models.SearchFilter) ([]models.UserView, error)
}

// UserHandler routes requests to the account service and maps the failure
// kinds to HTTP statuses. Responses only ever carry UserView projections.
type UserHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Username string `json:"username" validate:"required,min=6,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=256"`
	TitleJob string `json:"titleJob" validate:"required,max=30"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateRequest deliberately has no required tags on fullName and titleJob:
// both are always overwritten, empty values included. Username and password
// are optional; when present they must satisfy the field constraints.
type UpdateRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username" validate:"omitempty,min=6,max=30"`
	Password string `json:"password" validate:"omitempty,min=6,max=256"`
	TitleJob string `json:"titleJob" validate:"max=30"`
}

func NewUserHandler(commands AccountCommander, queries AccountQuerier) *UserHandler {
	return &UserHandler{commands: commands, queries: queries}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.commands.Register(c.Request.Context(), service.RegisterCommand{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		TitleJob: req.TitleJob,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUsernameTaken):
			middleware.RespondWithError(c, http.StatusConflict, "Username already in use")
		case errors.Is(err, models.ErrEmailTaken):
			middleware.RespondWithError(c, http.StatusConflict, "Email already in use")
		case errors.Is(err, models.ErrPasswordTaken):
			middleware.RespondWithError(c, http.StatusConflict, "Password already in use, choose another")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	c.JSON(http.StatusCreated, user.View())
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.queries.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, models.ErrInvalidCredentials):
			middleware.RespondWithError(c, http.StatusUnauthorized, "Incorrect password")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user.View()})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	if !utils.ValidateUserID(userID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	requestingUserID, _ := middleware.GetUserID(c)
	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own user details")
		return
	}

	view, err := h.queries.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Update(c *gin.Context) {
	userID := c.Param("userId")
	if !utils.ValidateUserID(userID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.Update(c.Request.Context(), service.UpdateCommand{
		UserID:   userID,
		FullName: req.FullName,
		Username: req.Username,
		Password: req.Password,
		TitleJob: req.TitleJob,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, models.ErrUsernameTaken):
			middleware.RespondWithError(c, http.StatusConflict, "Username already in use")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update user")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Delete(c *gin.Context) {
	userID := c.Param("userId")
	if !utils.ValidateUserID(userID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	requestingUserID, _ := middleware.GetUserID(c)
	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only delete your own account")
		return
	}

	if err := h.commands.Delete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

// Search filters by optional fullname/username/email query parameters.
// The service never fails on zero matches; the empty result maps to 404 here.
func (h *UserHandler) Search(c *gin.Context) {
	views, err := h.queries.Search(c.Request.Context(), models.SearchFilter{
		FullName: c.Query("fullname"),
		Username: c.Query("username"),
		Email:    c.Query("email"),
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to search users")
		return
	}
	if len(views) == 0 {
		middleware.RespondWithError(c, http.StatusNotFound, "No users found")
		return
	}

	c.JSON(http.StatusOK, views)
}
