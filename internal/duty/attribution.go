package duty

import (
	"math"
	"sort"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
)

const (
	beginningOfTime = math.MinInt64
	endOfTime       = math.MaxInt64
)

// Credit is the duty time attributed to one member within a window.
type Credit struct {
	Seconds int64 `json:"seconds"`
	First   int64 `json:"first"` // start of the earliest credited interval
	Last    int64 `json:"last"`  // end of the latest credited interval
}

type Attribution map[string]Credit

// attribute clips the effective interval of every shift to [from, to) and
// credits the overlap to the assigned member. shifts must be in
// chronological order; next is the first shift after them, if any, and
// bounds the last shift when it is open-ended. Uncovered time is credited
// to nobody.
//
// Both the incremental reconciler and the full recalculation use this
// function, which is what keeps the two paths in agreement: clipping is
// additive over adjacent windows.
func attribute(shifts []models.Shift, next *models.Shift, from, to int64) Attribution {
	credits := make(Attribution)
	for i := range shifts {
		shift := &shifts[i]

		end := int64(endOfTime)
		if shift.EndTime != nil {
			end = *shift.EndTime
		}
		successor := int64(endOfTime)
		if i+1 < len(shifts) {
			successor = shifts[i+1].StartTime
		} else if next != nil {
			successor = next.StartTime
		}
		end = min(end, successor)

		lo := max(shift.StartTime, from)
		hi := min(end, to)
		if hi <= lo {
			continue
		}

		credit, seen := credits[shift.Member]
		credit.Seconds += hi - lo
		if !seen || lo < credit.First {
			credit.First = lo
		}
		if hi > credit.Last {
			credit.Last = hi
		}
		credits[shift.Member] = credit
	}
	return credits
}

func (a Attribution) Members() []string {
	members := make([]string, 0, len(a))
	for member := range a {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

func (a Attribution) Total() int64 {
	var total int64
	for _, credit := range a {
		total += credit.Seconds
	}
	return total
}

// covering returns the shift whose effective interval contains t, given the
// latest shift starting at or before t.
func covering(latest *models.Shift, t int64) *models.Shift {
	if latest == nil || latest.StartTime > t {
		return nil
	}
	if latest.EndTime != nil && *latest.EndTime <= t {
		return nil
	}
	return latest
}
