package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timeclock/internal/auth"
	"timeclock/internal/user"
	"timeclock/internal/validation"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required,notblank,max=100"`
	Age      int    `json:"age" binding:"required,gt=0"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,bytesmax=72"`
}

type signupResponse struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// Signup registers a user. The password is never echoed back.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "All details are required", err)
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Name, req.Age, req.Email, req.Password)
	switch {
	case errors.Is(err, user.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, user.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err, "register user")
		return
	}
	c.JSON(http.StatusCreated, signupResponse{Name: u.Name, Age: u.Age, Email: u.Email})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required", err)
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err, "authenticate")
		return
	}

	token, exp, err := h.tokens.Issue(auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Age: u.Age})
	if err != nil {
		h.internalError(c, err, "issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      token,
		"expires_at": exp.Unix(),
	})
}

func badRequest(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "details": validation.ToDetails(err)})
}
