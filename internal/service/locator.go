package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
)

// FacilityRepository is the storage the locator searches
type FacilityRepository interface {
	// PincodeCentroid averages the locations of facilities in pincode.
	// Unknown pincodes fail with model.ErrNotFound.
	PincodeCentroid(ctx context.Context, pincode string) (*model.Centroid, error)

	// NearbyFacilities runs one radius search
	NearbyFacilities(ctx context.Context, q model.FacilityQuery) ([]model.Facility, error)

	// GetFacilityByID fails with model.ErrNotFound for unknown ids
	GetFacilityByID(ctx context.Context, id int64) (*model.Facility, error)
}

// searchStep is one radius of the expansion policy
type searchStep struct {
	radiusM  int
	filtered bool
}

// searchSteps widens the radius and finally drops the care-type filter
var searchSteps = []searchStep{
	{radiusM: 3000, filtered: true},
	{radiusM: 5000, filtered: true},
	{radiusM: 10000, filtered: false},
}

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// LocatorConfig tunes facility search
type LocatorConfig struct {
	MinQuality   float64
	DefaultLimit int
	MaxLimit     int
}

// Locator finds facilities near a pincode or point for a severity tier
type Locator struct {
	repo   FacilityRepository
	ranker *Ranker
	config LocatorConfig
}

// NewLocator creates a locator over repo
func NewLocator(repo FacilityRepository, cfg LocatorConfig) *Locator {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &Locator{
		repo:   repo,
		ranker: NewRanker(),
		config: cfg,
	}
}

// Locate resolves the centroid and walks the expansion policy until a
// radius returns at least one facility.
func (l *Locator) Locate(ctx context.Context, req model.LocateRequest) (*model.LocateResponse, error) {
	if err := validateLocateRequest(&req); err != nil {
		return nil, err
	}

	centroid, err := l.resolveCentroid(ctx, req)
	if err != nil {
		return nil, err
	}

	careTypes := req.CareTypes
	emergencyOnly := false
	if len(careTypes) == 0 {
		careTypes = model.CareTypesForLevel(req.SeverityLevel)
		emergencyOnly = req.SeverityLevel == model.SeverityEmergency
	}

	limit := req.Limit
	if limit <= 0 {
		limit = l.config.DefaultLimit
	}
	if limit > l.config.MaxLimit {
		limit = l.config.MaxLimit
	}

	for _, step := range searchSteps {
		q := model.FacilityQuery{
			Centroid:   *centroid,
			RadiusM:    step.radiusM,
			MinQuality: l.config.MinQuality,
			Limit:      limit,
		}
		if step.filtered {
			q.CareTypes = careTypes
			q.EmergencyOnly = emergencyOnly
		}

		rows, err := l.repo.NearbyFacilities(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("facility search failed: %w", err)
		}

		logger.Debug(ctx, "📍 radius=%dm filtered=%v careTypes=%v emergencyOnly=%v -> %d facilities",
			q.RadiusM, step.filtered, q.CareTypes, q.EmergencyOnly, len(rows))

		if len(rows) == 0 {
			continue
		}

		applied := []string{}
		if step.filtered && len(careTypes) > 0 {
			applied = careTypes
		}

		return &model.LocateResponse{
			Centroid:  *centroid,
			RadiusM:   step.radiusM,
			CareTypes: applied,
			Filtered:  step.filtered,
			Facilities: l.ranker.RankFacilities(rows, RankCriteria{
				Specialties: req.Specialties,
				CareTypes:   applied,
			}),
		}, nil
	}

	last := searchSteps[len(searchSteps)-1]
	return nil, fmt.Errorf("%w: nothing within %d km of %s", model.ErrNoFacilitiesNearby, last.radiusM/1000, describeOrigin(req, centroid))
}

// GetFacility returns one facility by id
func (l *Locator) GetFacility(ctx context.Context, id int64) (*model.Facility, error) {
	if id <= 0 {
		return nil, model.NewBadRequest("invalid facility id")
	}
	return l.repo.GetFacilityByID(ctx, id)
}

func (l *Locator) resolveCentroid(ctx context.Context, req model.LocateRequest) (*model.Centroid, error) {
	if req.Lat != nil && req.Lng != nil {
		return &model.Centroid{Lat: *req.Lat, Lng: *req.Lng}, nil
	}

	centroid, err := l.repo.PincodeCentroid(ctx, req.Pincode)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "📍 pincode %s centroid (%.4f, %.4f)", req.Pincode, centroid.Lat, centroid.Lng)
	return centroid, nil
}

func validateLocateRequest(req *model.LocateRequest) error {
	req.Pincode = strings.TrimSpace(req.Pincode)

	hasPoint := req.Lat != nil && req.Lng != nil
	if (req.Lat == nil) != (req.Lng == nil) {
		return model.NewBadRequest("lat and lng must be given together")
	}
	if hasPoint {
		if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
			return model.NewBadRequest("lat/lng out of range")
		}
	} else {
		if req.Pincode == "" {
			return model.NewBadRequest("pincode or lat/lng required")
		}
		if !pincodePattern.MatchString(req.Pincode) {
			return model.NewBadRequest("invalid pincode %q", req.Pincode)
		}
	}

	if req.SeverityLevel == "" && len(req.CareTypes) == 0 {
		return model.NewBadRequest("severityLevel or careTypes required")
	}
	if req.SeverityLevel != "" {
		if _, ok := model.ParseSeverityLevel(string(req.SeverityLevel)); !ok {
			return model.NewBadRequest("invalid severityLevel %q", req.SeverityLevel)
		}
	}

	if req.Limit < 0 {
		return model.NewBadRequest("limit must not be negative")
	}
	return nil
}

func describeOrigin(req model.LocateRequest, c *model.Centroid) string {
	if req.Pincode != "" && (req.Lat == nil || req.Lng == nil) {
		return "pincode " + req.Pincode
	}
	return fmt.Sprintf("(%.4f, %.4f)", c.Lat, c.Lng)
}
