package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelForSeverity(t *testing.T) {
	tests := []struct {
		severity int
		want     SeverityLevel
	}{
		{-3, SeverityMild},
		{1, SeverityMild},
		{3, SeverityMild},
		{4, SeverityModerate},
		{5, SeverityModerate},
		{6, SeverityHigh},
		{7, SeverityHigh},
		{8, SeverityEmergency},
		{10, SeverityEmergency},
		{42, SeverityEmergency},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("severity %d", tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.want, LevelForSeverity(tt.severity))
		})
	}
}

func TestLevelMidpointRoundTrips(t *testing.T) {
	for _, level := range []SeverityLevel{SeverityMild, SeverityModerate, SeverityHigh, SeverityEmergency} {
		assert.Equal(t, level, LevelForSeverity(level.Midpoint()), string(level))
	}
}

func TestParseSeverityLevel(t *testing.T) {
	l, ok := ParseSeverityLevel("high")
	assert.True(t, ok)
	assert.Equal(t, SeverityHigh, l)

	_, ok = ParseSeverityLevel("critical")
	assert.False(t, ok)
}

func TestTaxonomy(t *testing.T) {
	assert.Len(t, Specialties, 25)
	assert.True(t, IsSpecialty("Gastro-enterology"))
	assert.False(t, IsSpecialty("Gastroenterology"))

	assert.True(t, BodyGeneralMedicine.IsValid())
	assert.False(t, BodySystem("Podiatry").IsValid())

	assert.Equal(t, []string{CareDispensary, CareHealthCentre}, CareTypesForLevel(SeverityMild))
	assert.Equal(t, []string{CareHospital, CareClinic}, CareTypesForLevel(SeverityModerate))
	assert.Equal(t, []string{CareHospital, CareMedicalCollege}, CareTypesForLevel(SeverityHigh))
	assert.Nil(t, CareTypesForLevel(SeverityEmergency))
}

func TestAssessRequestIsRoundTwo(t *testing.T) {
	req := AssessRequest{Symptoms: "fever", ClarifyingAnswers: []string{"3 days"}}
	assert.False(t, req.IsRoundTwo(), "answers without cache")

	req.Stage1Cache = &Stage1Result{}
	assert.True(t, req.IsRoundTwo())

	req.ClarifyingAnswers = nil
	assert.False(t, req.IsRoundTwo(), "cache without answers")
}

func TestErrorKinds(t *testing.T) {
	upstream := &UpstreamError{Stage: "stage2", Code: CodeMalformedOutput, Err: ErrMalformedModelOutput}
	wrapped := fmt.Errorf("assess: %w", upstream)
	assert.True(t, errors.Is(wrapped, ErrUpstreamFailure))
	assert.True(t, errors.Is(wrapped, ErrMalformedModelOutput))

	var target *UpstreamError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "stage2", target.Stage)

	retry := &RetryAfterError{RetryAfter: time.Second, Err: ErrQuotaExceeded}
	assert.True(t, errors.Is(fmt.Errorf("invoke: %w", retry), ErrQuotaExceeded))

	bad := NewBadRequest("symptoms required")
	assert.True(t, errors.Is(bad, ErrBadRequest))
	assert.Equal(t, "symptoms required", bad.Error())
}
