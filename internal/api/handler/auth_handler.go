package handler

import (
	"net/http"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/gin-gonic/gin"
)

// SignUp handles POST /api/v1/auth/signup
func (h *Handler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	user, token, err := h.accounts.SignUp(ctx, req.Email, req.FullName, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{User: dto.NewUserDTO(user), Token: token})
}

// SignIn handles POST /api/v1/auth/signin
func (h *Handler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, token, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{User: dto.NewUserDTO(user), Token: token})
}

// SignOut handles POST /api/v1/auth/signout
func (h *Handler) SignOut(c *gin.Context) {
	ctx, cancel := h.writeContext(c)
	defer cancel()

	if err := h.accounts.SignOut(ctx, auth.ClaimsFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserDTO(user))
}
