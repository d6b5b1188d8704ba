// Package progress derives RSVP completion percentages from a guest record.
package progress

import (
	"math"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
)

type Summary struct {
	Stage1  int `json:"stage1" doc:"Stage 1 completion percentage"`
	Stage2  int `json:"stage2" doc:"Stage 2 completion percentage"`
	Overall int `json:"overall" doc:"Overall completion percentage"`
}

func Stage1(g models.Guest) int {
	if g.RSVPStatus == models.RSVPPending || g.RSVPStatus == "" {
		return 0
	}
	return 100
}

// Stage2 is the share of the travel checklist answered. A finalized Stage 2
// counts as complete whatever was filled in.
func Stage2(g models.Guest) int {
	if g.RSVPStatus != models.RSVPConfirmed {
		return 0
	}
	if g.IsLocalGuest || g.Stage == models.StageComplete {
		return 100
	}

	points := 0

	if g.NeedsAccommodation != nil {
		points++
		if !*g.NeedsAccommodation || isSet(g.AccommodationPreference) {
			points++
		}
	}

	if g.NeedsFlightAssistance != nil {
		points++
		if !*g.NeedsFlightAssistance || isSet(g.TransportationPreference) {
			points++
		}
	}

	if g.ArrivalDate != nil {
		points++
	}
	if g.DepartureDate != nil {
		points++
	}

	return round(float64(points) / 6 * 100)
}

func Overall(g models.Guest) int {
	return round(float64(Stage1(g)+Stage2(g)) / 2)
}

func Of(g models.Guest) Summary {
	s1, s2 := Stage1(g), Stage2(g)
	return Summary{
		Stage1:  s1,
		Stage2:  s2,
		Overall: round(float64(s1+s2) / 2),
	}
}

func isSet(s *string) bool {
	return s != nil && *s != ""
}

func round(f float64) int {
	return int(math.Round(f))
}
