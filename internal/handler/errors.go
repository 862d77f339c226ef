package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timeclock/internal/attendance"
)

func (h *Handler) attendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You have already checked in today"})
	case errors.Is(err, attendance.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		h.internalError(c, err, "check in or out")
	}
}
