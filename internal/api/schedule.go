package api

import (
	"net/http"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/gin-gonic/gin"
)

// shiftRequest proposes a shift. End and Duration are alternatives; with
// neither the shift lasts until the next one starts.
type shiftRequest struct {
	Member   string     `json:"member"   binding:"required,email"`
	Start    time.Time  `json:"start"    binding:"required"`
	End      *time.Time `json:"end"`
	Duration string     `json:"duration"`
}

type shiftResponse struct {
	Hero   string     `json:"hero"`
	Member string     `json:"member"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
}

func newShiftResponse(shift *models.Shift) shiftResponse {
	resp := shiftResponse{
		Hero:   shift.Hero,
		Member: shift.Member,
		Start:  shift.Start(),
	}
	if end, ok := shift.End(); ok {
		resp.End = &end
	}
	return resp
}

func (s *Server) getSchedule(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	shifts, err := s.engine.Schedule(c.Request.Context(), c.Param("hero"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]shiftResponse, 0, len(shifts))
	for i := range shifts {
		resp = append(resp, newShiftResponse(&shifts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"hero": c.Param("hero"), "shifts": resp})
}

func (s *Server) proposeShift(c *gin.Context) {
	var req shiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	end := req.End
	if req.Duration != "" {
		if end != nil {
			badRequest(c, "end and duration are mutually exclusive")
			return
		}
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			badRequest(c, "invalid duration")
			return
		}
		e := req.Start.Add(d)
		end = &e
	}

	shift, err := s.engine.ProposeShift(c.Request.Context(), duty.ShiftProposal{
		Hero:   c.Param("hero"),
		Member: normalizeMember(req.Member),
		Start:  req.Start,
		End:    end,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newShiftResponse(shift))
}

func (s *Server) deleteShift(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Param("start"))
	if err != nil {
		badRequest(c, "start must be an RFC3339 timestamp")
		return
	}
	if err := s.engine.DeleteShift(c.Request.Context(), c.Param("hero"), start); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// timeQuery parses an optional RFC3339 query parameter. It writes the
// error response itself and reports false on malformed input.
func timeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, key+" must be an RFC3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}
