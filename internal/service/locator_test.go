package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bangaloreLat = 12.97
	bangaloreLng = 77.59
)

func facilityAt(id int64, km float64, careType string, quality float64) model.Facility {
	lat, lng := offsetNorth(bangaloreLat, bangaloreLng, km)
	f := model.Facility{
		ID:          id,
		Name:        "Facility",
		Latitude:    lat,
		Longitude:   lng,
		DataQuality: quality,
	}
	if careType != "" {
		f.CareType = strPtr(careType)
	}
	return f
}

func newTestLocator(rows ...model.Facility) (*Locator, *fakeRepo) {
	repo := &fakeRepo{
		centroids: map[string]model.Centroid{"560001": {Lat: bangaloreLat, Lng: bangaloreLng}},
		rows:      rows,
	}
	return NewLocator(repo, LocatorConfig{MinQuality: 0.3, DefaultLimit: 20, MaxLimit: 50}), repo
}

func TestLocator_ExpandsToFiveKilometres(t *testing.T) {
	locator, repo := newTestLocator(
		facilityAt(1, 4.2, model.CareDispensary, 0.9),
		facilityAt(2, 3.6, model.CareHealthCentre, 0.5),
		facilityAt(3, 1.0, model.CareHospital, 0.9), // wrong tier for mild
		facilityAt(4, 2.0, model.CareDispensary, 0.1), // below quality threshold
	)

	resp, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityMild})
	require.NoError(t, err)

	assert.Equal(t, 5000, resp.RadiusM)
	assert.True(t, resp.Filtered)
	assert.Equal(t, []string{model.CareDispensary, model.CareHealthCentre}, resp.CareTypes)
	assert.Equal(t, model.Centroid{Lat: bangaloreLat, Lng: bangaloreLng}, resp.Centroid)

	require.Len(t, resp.Facilities, 2)
	assert.Equal(t, int64(2), resp.Facilities[0].ID)
	assert.Equal(t, int64(1), resp.Facilities[1].ID)

	queries := repo.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, 3000, queries[0].RadiusM)
	assert.Equal(t, 5000, queries[1].RadiusM)
	assert.Equal(t, 0.3, queries[0].MinQuality)
}

func TestLocator_DropsCareTypeFilterAtTenKilometres(t *testing.T) {
	locator, repo := newTestLocator(
		facilityAt(1, 8.0, model.CareHospital, 0.9),
		facilityAt(2, 12.0, model.CareDispensary, 0.9),
	)

	resp, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityMild})
	require.NoError(t, err)

	assert.Equal(t, 10000, resp.RadiusM)
	assert.False(t, resp.Filtered)
	assert.Equal(t, []string{}, resp.CareTypes)
	require.Len(t, resp.Facilities, 1)
	assert.Equal(t, int64(1), resp.Facilities[0].ID)

	queries := repo.Queries()
	require.Len(t, queries, 3)
	assert.Nil(t, queries[2].CareTypes)
	assert.False(t, queries[2].EmergencyOnly)
}

func TestLocator_NoFacilitiesNearby(t *testing.T) {
	locator, _ := newTestLocator(facilityAt(1, 15.0, model.CareHospital, 0.9))

	_, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityHigh})
	assert.ErrorIs(t, err, model.ErrNoFacilitiesNearby)
}

func TestLocator_EmergencyTier(t *testing.T) {
	withER := facilityAt(1, 2.5, model.CareClinic, 0.6)
	withER.EmergencyAvailable = true
	withoutER := facilityAt(2, 0.5, model.CareMedicalCollege, 0.9)

	locator, repo := newTestLocator(withER, withoutER)
	resp, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityEmergency})
	require.NoError(t, err)

	require.Len(t, resp.Facilities, 1)
	assert.Equal(t, int64(1), resp.Facilities[0].ID)
	assert.Contains(t, resp.Facilities[0].MatchedReasons, ReasonEmergencyAvailable)
	assert.True(t, repo.Queries()[0].EmergencyOnly)
	assert.Nil(t, repo.Queries()[0].CareTypes)
}

func TestLocator_NullCareTypeTolerated(t *testing.T) {
	locator, _ := newTestLocator(facilityAt(1, 1.0, "", 0.5))

	resp, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityModerate})
	require.NoError(t, err)
	assert.Equal(t, 3000, resp.RadiusM)
	assert.Len(t, resp.Facilities, 1)
}

func TestLocator_ExplicitCareTypesAndPoint(t *testing.T) {
	locator, repo := newTestLocator(facilityAt(1, 1.0, model.CareClinic, 0.5))
	lat, lng := bangaloreLat, bangaloreLng

	resp, err := locator.Locate(context.Background(), model.LocateRequest{
		Lat:           &lat,
		Lng:           &lng,
		SeverityLevel: model.SeverityHigh,
		CareTypes:     []string{model.CareClinic},
		Limit:         500,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{model.CareClinic}, resp.CareTypes)
	assert.Equal(t, 50, repo.Queries()[0].Limit)
	assert.False(t, repo.Queries()[0].EmergencyOnly)
}

func TestLocator_Validation(t *testing.T) {
	lat := 12.9
	badLat := 123.0

	tests := []struct {
		name string
		req  model.LocateRequest
	}{
		{"nothing", model.LocateRequest{SeverityLevel: model.SeverityMild}},
		{"bad pincode", model.LocateRequest{Pincode: "5600", SeverityLevel: model.SeverityMild}},
		{"lat without lng", model.LocateRequest{Lat: &lat, SeverityLevel: model.SeverityMild}},
		{"lat out of range", model.LocateRequest{Lat: &badLat, Lng: &lat, SeverityLevel: model.SeverityMild}},
		{"no tier", model.LocateRequest{Pincode: "560001"}},
		{"unknown tier", model.LocateRequest{Pincode: "560001", SeverityLevel: "critical"}},
		{"negative limit", model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityMild, Limit: -1}},
	}

	locator, repo := newTestLocator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := locator.Locate(context.Background(), tt.req)
			assert.ErrorIs(t, err, model.ErrBadRequest)
		})
	}
	assert.Empty(t, repo.Queries())
}

func TestLocator_UnknownPincode(t *testing.T) {
	locator, _ := newTestLocator()
	_, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "110001", SeverityLevel: model.SeverityMild})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLocator_RepositoryError(t *testing.T) {
	locator, repo := newTestLocator()
	repo.err = errors.New("connection refused")

	_, err := locator.Locate(context.Background(), model.LocateRequest{Pincode: "560001", SeverityLevel: model.SeverityMild})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNoFacilitiesNearby)
}

func TestLocator_GetFacility(t *testing.T) {
	locator, _ := newTestLocator(facilityAt(9, 1.0, model.CareHospital, 0.5))

	f, err := locator.GetFacility(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), f.ID)

	_, err = locator.GetFacility(context.Background(), 10)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = locator.GetFacility(context.Background(), 0)
	assert.ErrorIs(t, err, model.ErrBadRequest)
}

// Sorted by distance, bounded by radius, and monotone in radius.
func TestLocator_Properties(t *testing.T) {
	var rows []model.Facility
	for i := 0; i < 40; i++ {
		km := float64(i%12) * 0.45
		careType := []string{model.CareHospital, model.CareClinic, model.CareDispensary}[i%3]
		rows = append(rows, facilityAt(int64(100-i), km, careType, 0.3+float64(i%5)*0.1))
	}
	_, repo := newTestLocator(rows...)

	base := model.FacilityQuery{
		Centroid:   model.Centroid{Lat: bangaloreLat, Lng: bangaloreLng},
		CareTypes:  []string{model.CareHospital, model.CareClinic},
		MinQuality: 0.3,
		Limit:      100,
	}

	at := func(radius int) []model.FacilitySearchResult {
		q := base
		q.RadiusM = radius
		found, err := repo.NearbyFacilities(context.Background(), q)
		require.NoError(t, err)
		return NewRanker().RankFacilities(found, RankCriteria{})
	}

	small, large := at(3000), at(5000)

	for _, set := range [][]model.FacilitySearchResult{small, large} {
		for i := 1; i < len(set); i++ {
			assert.LessOrEqual(t, set[i-1].DistanceKm, set[i].DistanceKm)
		}
	}
	for _, f := range small {
		assert.LessOrEqual(t, f.DistanceKm, 3.0+0.01)
	}

	ids := make(map[int64]bool)
	for _, f := range large {
		ids[f.ID] = true
	}
	for _, f := range small {
		assert.True(t, ids[f.ID], "facility %d at 3 km missing at 5 km", f.ID)
	}
	assert.Greater(t, len(large), len(small))
}
