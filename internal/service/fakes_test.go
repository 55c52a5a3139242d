package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/stellaephile/whats-up-doc/internal/model"
)

// fakeModel is a scripted ModelClient. Each call consumes the next reply.
type fakeModel struct {
	mu       sync.Mutex
	id       string
	replies  []string
	errs     []error
	requests []ModelRequest
}

func newFakeModel(id string, replies ...string) *fakeModel {
	return &fakeModel{id: id, replies: replies}
}

func (f *fakeModel) next(req ModelRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx >= len(f.replies) {
		return "", errors.New("fakeModel: no scripted reply")
	}
	return f.replies[idx], nil
}

func (f *fakeModel) Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	text, err := f.next(req)
	if err != nil {
		return nil, err
	}
	return &ModelResponse{Text: text, Model: f.id, StopReason: "end_turn"}, nil
}

func (f *fakeModel) InvokeStream(ctx context.Context, req ModelRequest, callback StreamCallback) error {
	text, err := f.next(req)
	if err != nil {
		return err
	}
	for len(text) > 0 {
		n := min(7, len(text))
		if err := callback(&StreamChunk{Content: text[:n]}); err != nil {
			return err
		}
		text = text[n:]
	}
	return callback(&StreamChunk{Done: true, StopReason: "end_turn"})
}

func (f *fakeModel) ModelID() string { return f.id }

func (f *fakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeModel) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Prompt
}

// fakeRepo is an in-memory FacilityRepository that applies the same filters
// and ordering as the SQL query.
type fakeRepo struct {
	mu        sync.Mutex
	centroids map[string]model.Centroid
	rows      []model.Facility
	queries   []model.FacilityQuery
	err       error
}

func (r *fakeRepo) PincodeCentroid(ctx context.Context, pincode string) (*model.Centroid, error) {
	c, ok := r.centroids[pincode]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &c, nil
}

func (r *fakeRepo) NearbyFacilities(ctx context.Context, q model.FacilityQuery) ([]model.Facility, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	var out []model.Facility
	for _, f := range r.rows {
		d := haversineKm(q.Centroid.Lat, q.Centroid.Lng, f.Latitude, f.Longitude)
		if d*1000 > float64(q.RadiusM) || f.DataQuality < q.MinQuality {
			continue
		}
		if q.EmergencyOnly && !f.EmergencyAvailable {
			continue
		}
		if len(q.CareTypes) > 0 && f.CareType != nil && !containsString(q.CareTypes, *f.CareType) {
			continue
		}
		f.DistanceKm = math.Round(d*100) / 100
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool { return lessFacility(&out[i], &out[j]) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *fakeRepo) GetFacilityByID(ctx context.Context, id int64) (*model.Facility, error) {
	for _, f := range r.rows {
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *fakeRepo) Queries() []model.FacilityQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.FacilityQuery(nil), r.queries...)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0088
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// offsetNorth returns a point km kilometres north of (lat, lng)
func offsetNorth(lat, lng, km float64) (float64, float64) {
	return lat + km/111.195, lng
}

func strPtr(s string) *string { return &s }
