package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/domain"
)

// UserHandler serves /users.
type UserHandler struct {
	profiles Profiles
}

// NewUserHandler creates a user handler.
func NewUserHandler(profiles Profiles) *UserHandler {
	return &UserHandler{profiles: profiles}
}

type updateProfileRequest struct {
	Bio      string `json:"bio" validate:"max=500"`
	Location string `json:"location" validate:"max=100"`
	Website  string `json:"website" validate:"max=200,httpurl"`
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.profiles.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(u))
}

// UpdateProfile handles PUT /users/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithBindError(c, err)
		return
	}

	u, err := h.profiles.UpdateProfile(c.Request.Context(), middleware.GetActor(c), domain.ProfileUpdate{
		Bio:      req.Bio,
		Location: req.Location,
		Website:  req.Website,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(u))
}

// RegisterRoutes registers the user routes.
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	users := rg.Group("/users")
	users.PUT("/profile", auth, h.UpdateProfile)
	users.GET("/:id", h.Get)
}
