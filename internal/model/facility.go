package model

import (
	"github.com/lib/pq"
)

// Facility represents a row from the hospitals table
type Facility struct {
	ID                 int64          `db:"id" json:"id"`
	Name               string         `db:"hospital_name" json:"name"`
	Category           *string        `db:"hospital_category" json:"category,omitempty"`
	CareType           *string        `db:"hospital_care_type" json:"careType,omitempty"`
	Discipline         *string        `db:"discipline" json:"discipline,omitempty"`
	Ayush              bool           `db:"ayush" json:"ayush"`
	State              *string        `db:"state" json:"state,omitempty"`
	District           *string        `db:"district" json:"district,omitempty"`
	Pincode            *string        `db:"pincode" json:"pincode,omitempty"`
	Address            *string        `db:"address" json:"address,omitempty"`
	Latitude           float64        `db:"lat" json:"lat"`
	Longitude          float64        `db:"lon" json:"lng"`
	Specialties        pq.StringArray `db:"specialties_array" json:"specialties"`
	Facilities         pq.StringArray `db:"facilities_array" json:"facilities"`
	EmergencyAvailable bool           `db:"emergency_available" json:"emergencyAvailable"`
	EmergencyNumber    *string        `db:"emergency_num" json:"emergencyNumber,omitempty"`
	AmbulancePhone     *string        `db:"ambulance_phone" json:"ambulancePhone,omitempty"`
	BloodbankPhone     *string        `db:"bloodbank_phone" json:"bloodbankPhone,omitempty"`
	Telephone          *string        `db:"telephone" json:"telephone,omitempty"`
	MobileNumber       *string        `db:"mobile_number" json:"mobileNumber,omitempty"`
	TotalBeds          *int           `db:"total_beds" json:"totalBeds,omitempty"`
	DataQuality        float64        `db:"data_quality_norm" json:"dataQuality"`
	DistanceKm         float64        `db:"distance_km" json:"distanceKm"`
}

// FacilitySearchResult wraps a facility with why it was surfaced
type FacilitySearchResult struct {
	Facility
	MatchedReasons []string `json:"matchedReasons"`
}

// Centroid is a WGS84 point
type Centroid struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FacilityQuery is a single radius search against the hospitals table
type FacilityQuery struct {
	Centroid      Centroid
	RadiusM       int
	CareTypes     []string // empty means any care type
	EmergencyOnly bool
	MinQuality    float64
	Limit         int
}

// LocateRequest is the body of POST /api/facilities/nearby
type LocateRequest struct {
	Pincode       string        `json:"pincode"`
	Lat           *float64      `json:"lat"`
	Lng           *float64      `json:"lng"`
	SeverityLevel SeverityLevel `json:"severityLevel"`
	CareTypes     []string      `json:"careTypes"`
	Specialties   []string      `json:"specialties"`
	Limit         int           `json:"limit"`
}

// LocateResponse reports the radius and filter that produced the results
type LocateResponse struct {
	Centroid   Centroid               `json:"centroid"`
	RadiusM    int                    `json:"radiusM"`
	CareTypes  []string               `json:"careTypes"`
	Filtered   bool                   `json:"filtered"`
	Facilities []FacilitySearchResult `json:"facilities"`
}

// FacilityEmbedding is a precomputed profile vector for one facility
type FacilityEmbedding struct {
	FacilityID int64     `json:"facilityId" binding:"required"`
	Embedding  []float32 `json:"embedding" binding:"required"`
}

// EmbeddingBatchRequest is the body of POST /api/facilities/embeddings/batch
type EmbeddingBatchRequest struct {
	Embeddings []FacilityEmbedding `json:"embeddings" binding:"required"`
}

// EmbeddingBatchResponse reports per-batch outcome
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
