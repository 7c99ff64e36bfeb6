package api

import (
	"net/http"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/gin-gonic/gin"
)

type heroReconciliation struct {
	duty.HeroReconciliation
	Error              string `json:"error,omitempty"`
	DirectorySyncError string `json:"directory_sync_error,omitempty"`
}

type heroRecalculation struct {
	duty.HeroRecalculation
	Error string `json:"error,omitempty"`
}

type statsResponse struct {
	Hero      string         `json:"hero"`
	Watermark time.Time      `json:"watermark"`
	Ranking   []memberDuty   `json:"ranking"`
	Current   *shiftResponse `json:"current,omitempty"`
}

type memberDuty struct {
	duty.MemberDuty
	Duration string `json:"duration"`
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.engine.Stats(c.Request.Context(), c.Param("hero"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := statsResponse{
		Hero:      stats.Hero,
		Watermark: stats.Watermark,
		Ranking:   make([]memberDuty, 0, len(stats.Ranking)),
	}
	for _, d := range stats.Ranking {
		resp.Ranking = append(resp.Ranking, memberDuty{MemberDuty: d, Duration: d.Duration.String()})
	}
	if stats.Current != nil {
		current := newShiftResponse(stats.Current)
		resp.Current = &current
	}
	c.JSON(http.StatusOK, resp)
}

// reconcile runs a manual tick at the current instant. Reconciling a
// future instant would credit time that has not elapsed, so no override
// is accepted.
func (s *Server) reconcile(c *gin.Context) {
	report, err := s.engine.Reconcile(c.Request.Context(), s.engine.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	heroes := make([]heroReconciliation, 0, len(report.Heroes))
	for _, h := range report.Heroes {
		heroes = append(heroes, heroReconciliation{
			HeroReconciliation: h,
			Error:              errString(h.Err),
			DirectorySyncError: errString(h.DirectorySyncErr),
		})
	}
	status := http.StatusOK
	if len(report.Failed()) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"run_id": report.RunID, "now": report.Now, "heroes": heroes})
}

func (s *Server) recalculate(c *gin.Context) {
	asOf, ok := s.asOf(c)
	if !ok {
		return
	}
	snapshot, err := s.engine.Recalculate(c.Request.Context(), c.Param("hero"), asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) recalculateAll(c *gin.Context) {
	asOf, ok := s.asOf(c)
	if !ok {
		return
	}
	report, err := s.engine.RecalculateAll(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	heroes := make([]heroRecalculation, 0, len(report.Heroes))
	failed := false
	for _, h := range report.Heroes {
		failed = failed || h.Err != nil
		heroes = append(heroes, heroRecalculation{HeroRecalculation: h, Error: errString(h.Err)})
	}
	status := http.StatusOK
	if failed {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"as_of": report.AsOf, "heroes": heroes})
}

// asOf reads the optional as_of query parameter, defaulting to now. It may
// not lie in the future.
func (s *Server) asOf(c *gin.Context) (time.Time, bool) {
	now := s.engine.Now()
	asOf, ok := timeQuery(c, "as_of")
	if !ok {
		return time.Time{}, false
	}
	if asOf.IsZero() {
		return now, true
	}
	if asOf.After(now) {
		badRequest(c, "as_of must not be in the future")
		return time.Time{}, false
	}
	return asOf, true
}
