package api

import (
	"net/http"
	"strings"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/gin-gonic/gin"
)

// memberURI addresses a member of a hero. Members are e-mail addresses,
// compared in lower case.
type memberURI struct {
	Hero   string `uri:"hero"   binding:"required"`
	Member string `uri:"member" binding:"required,email"`
}

type createHeroRequest struct {
	Name     string            `json:"name"     binding:"required"`
	Members  []string          `json:"members"  binding:"dive,required,email"`
	Channel  string            `json:"channel"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) listHeroes(c *gin.Context) {
	heroes, err := s.engine.ListHeroes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"heroes": heroes})
}

func (s *Server) createHero(c *gin.Context) {
	var req createHeroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	members := make([]string, 0, len(req.Members))
	for _, member := range req.Members {
		members = append(members, normalizeMember(member))
	}
	hero, err := s.engine.CreateHero(c.Request.Context(), duty.HeroSpec{
		Name:     req.Name,
		Members:  members,
		Channel:  req.Channel,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hero)
}

func (s *Server) getHero(c *gin.Context) {
	hero, err := s.engine.GetHero(c.Request.Context(), c.Param("hero"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hero)
}

func (s *Server) deleteHero(c *gin.Context) {
	if err := s.engine.DeleteHero(c.Request.Context(), c.Param("hero")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addMember(c *gin.Context) {
	var uri memberURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err.Error())
		return
	}
	hero, err := s.engine.AddMember(c.Request.Context(), uri.Hero, normalizeMember(uri.Member))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hero)
}

func (s *Server) removeMember(c *gin.Context) {
	hero, err := s.engine.RemoveMember(c.Request.Context(), c.Param("hero"), normalizeMember(c.Param("member")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hero)
}

func normalizeMember(member string) string {
	return strings.ToLower(strings.TrimSpace(member))
}
