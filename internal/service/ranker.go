package service

import (
	"sort"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stellaephile/whats-up-doc/internal/utils"
)

// Match reason constants
const (
	ReasonSpecialtyMatch     = "Specialty match"
	ReasonEmergencyAvailable = "Emergency available"
	ReasonBloodBank          = "Blood bank"
	ReasonAmbulance          = "Ambulance"
	ReasonCareTypeMatch      = "Care type match"
	ReasonNearby             = "Nearby"
)

// Ranker orders facilities and explains why each one was surfaced
type Ranker struct{}

// NewRanker creates a new ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

// RankCriteria is what the caller asked for, used only for match reasons
type RankCriteria struct {
	Specialties []string
	CareTypes   []string
}

// RankFacilities sorts by distance, then data quality (higher first), then
// id, and attaches match reasons. Reasons never change the order.
func (r *Ranker) RankFacilities(facilities []model.Facility, criteria RankCriteria) []model.FacilitySearchResult {
	results := make([]model.FacilitySearchResult, 0, len(facilities))
	for _, f := range facilities {
		results = append(results, model.FacilitySearchResult{
			Facility:       f,
			MatchedReasons: r.generateMatchedReasons(f, criteria),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return lessFacility(&results[i].Facility, &results[j].Facility)
	})

	return results
}

func lessFacility(a, b *model.Facility) bool {
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	if a.DataQuality != b.DataQuality {
		return a.DataQuality > b.DataQuality
	}
	return a.ID < b.ID
}

// generateMatchedReasons generates human-readable reasons for why this facility matched
func (r *Ranker) generateMatchedReasons(f model.Facility, criteria RankCriteria) []string {
	reasons := []string{}

	if matchesAnySpecialty(f.Specialties, criteria.Specialties) {
		reasons = append(reasons, ReasonSpecialtyMatch)
	}

	if f.CareType != nil && len(criteria.CareTypes) > 0 {
		for _, ct := range criteria.CareTypes {
			if strings.EqualFold(ct, *f.CareType) {
				reasons = append(reasons, ReasonCareTypeMatch)
				break
			}
		}
	}

	if f.EmergencyAvailable {
		reasons = append(reasons, ReasonEmergencyAvailable)
	}

	if hasPhone(f.BloodbankPhone) {
		reasons = append(reasons, ReasonBloodBank)
	}

	if hasPhone(f.AmbulancePhone) {
		reasons = append(reasons, ReasonAmbulance)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonNearby)
	}

	return reasons
}

func matchesAnySpecialty(listed, wanted []string) bool {
	for _, w := range wanted {
		for _, l := range listed {
			if utils.FuzzyMatchSpecialty(w, l) {
				return true
			}
		}
	}
	return false
}

// hasPhone treats blank and placeholder values such as "0" or "NA" as missing
func hasPhone(p *string) bool {
	if p == nil {
		return false
	}
	v := strings.TrimSpace(*p)
	switch strings.ToLower(v) {
	case "", "0", "na", "n/a", "nil", "none", "-":
		return false
	}
	return true
}
