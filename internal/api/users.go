package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/gin-gonic/gin"
)

type releaseNotesRequest struct {
	Version string `json:"version" binding:"required"`
}

// userErr classifies user table failures the way the engine classifies its
// own: a missing row stays ErrNotFound, anything else is an outage.
func userErr(err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", duty.ErrStorageUnavailable, err)
}

func (s *Server) currentUser(c *gin.Context) {
	user, err := s.users.GetUser(c.Request.Context(), c.GetString(memberKey))
	if err != nil {
		respondError(c, userErr(err))
		return
	}
	c.JSON(http.StatusOK, user)
}

// login records the caller on first sight and stamps the login time.
func (s *Server) login(c *gin.Context) {
	user, err := s.users.RecordLogin(c.Request.Context(), c.GetString(memberKey), s.engine.Now().Unix())
	if err != nil {
		respondError(c, userErr(err))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) seenReleaseNotes(c *gin.Context) {
	var req releaseNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := s.users.SetSeenReleaseNotes(c.Request.Context(), c.GetString(memberKey), req.Version)
	if err != nil {
		respondError(c, userErr(err))
		return
	}
	c.JSON(http.StatusOK, user)
}
