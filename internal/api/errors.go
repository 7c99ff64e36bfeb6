package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, duty.ErrUnknownHero),
		errors.Is(err, duty.ErrUnknownMember),
		errors.Is(err, duty.ErrUnknownShift),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, duty.ErrOverlap),
		errors.Is(err, duty.ErrReconcileConflict),
		errors.Is(err, duty.ErrHeroExists):
		return http.StatusConflict
	case errors.Is(err, duty.ErrPastWrite):
		return http.StatusUnprocessableEntity
	case errors.Is(err, duty.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, duty.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
