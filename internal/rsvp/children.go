package rsvp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
)

const maxChildAge = 150

// ParseAge coerces a submitted age to an integer in [0, maxChildAge]. ok is
// false when the input could not be used and 0 was substituted.
func ParseAge(v any) (age int, ok bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, true
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxChildAge {
		return 0, false
	}
	return int(f), true
}

func (s *Service) normalizeChildren(guestID uint, in []ChildInput) ([]models.ChildDetail, error) {
	out := make([]models.ChildDetail, 0, len(in))
	for i, c := range in {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, apperr.Validation(fmt.Sprintf("children_details[%d].name", i), "child name is required")
		}

		age, ok := ParseAge(c.Age)
		if !ok {
			s.logger.WithFields(logging.Fields{
				"guest_id": guestID,
				"child":    i,
				"age":      fmt.Sprint(c.Age),
			}).Warn("Unparsable child age, using 0")
		}

		out = append(out, models.ChildDetail{
			Name:                name,
			Age:                 age,
			DietaryRestrictions: strings.TrimSpace(c.DietaryRestrictions),
		})
	}
	return out, nil
}

func normalizePhonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	n := models.NormalizePhone(*p)
	return &n
}
