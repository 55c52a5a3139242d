package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stellaephile/whats-up-doc/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAssessor struct {
	replies  []*model.AssessResponse
	requests []model.AssessRequest
}

func (s *scriptedAssessor) Assess(ctx context.Context, req model.AssessRequest) (*model.AssessResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.replies) {
		return nil, fmt.Errorf("unexpected call %d", len(s.requests))
	}
	return s.replies[len(s.requests)-1], nil
}

func clarifyReply() *model.AssessResponse {
	cache := &model.Stage1Result{
		BodySystem:          model.BodyGeneralMedicine,
		NeedsClarification:  true,
		ClarifyingQuestions: []string{"Kitne din se?", "Umar?"},
		Signature:           "sig",
	}
	return &model.AssessResponse{
		NeedsClarification:  true,
		ClarifyingQuestions: cache.ClarifyingQuestions,
		Stage1Cache:         cache,
		AssessmentMode:      model.ModeClarifying,
	}
}

func TestAssessSession_ClarificationRound(t *testing.T) {
	final := &model.AssessResponse{Severity: 4, SeverityLevel: model.SeverityModerate, AssessmentMode: model.ModeStage2}
	triage := &scriptedAssessor{replies: []*model.AssessResponse{clarifyReply(), final}}

	out := new(bytes.Buffer)
	resp, err := assessSession(context.Background(), triage, model.AssessRequest{Symptoms: "bukhar"}, strings.NewReader("3 din\n\n"), out)
	require.NoError(t, err)

	assert.Equal(t, model.ModeStage2, resp.AssessmentMode)
	require.Len(t, triage.requests, 2)
	assert.Equal(t, []string{"3 din", "not specified"}, triage.requests[1].ClarifyingAnswers)
	assert.Equal(t, "sig", triage.requests[1].Stage1Cache.Signature)
	assert.Contains(t, out.String(), "Q1: Kitne din se?")
	assert.Contains(t, out.String(), "Q2: Umar?")
}

func TestAssessSession_NoAnswers(t *testing.T) {
	triage := &scriptedAssessor{replies: []*model.AssessResponse{clarifyReply()}}

	resp, err := assessSession(context.Background(), triage, model.AssessRequest{Symptoms: "bukhar"}, strings.NewReader(""), new(bytes.Buffer))
	require.NoError(t, err)
	assert.True(t, resp.NeedsClarification)
	assert.Len(t, triage.requests, 1)
}

func TestAssessSession_FinalOnFirstRound(t *testing.T) {
	triage := &scriptedAssessor{replies: []*model.AssessResponse{{IsAutoEmergency: true, AssessmentMode: model.ModeEmergencyFastTrack}}}

	resp, err := assessSession(context.Background(), triage, model.AssessRequest{Symptoms: "seene mein dard"}, strings.NewReader("ignored\n"), new(bytes.Buffer))
	require.NoError(t, err)
	assert.Equal(t, model.ModeEmergencyFastTrack, resp.AssessmentMode)
	assert.Len(t, triage.requests, 1)
}

func TestPrintAssessment(t *testing.T) {
	hospital := model.CareHospital
	out := new(bytes.Buffer)
	printAssessment(out, &model.AssessResponse{
		Severity:          9,
		SeverityLevel:     model.SeverityEmergency,
		PrimaryDepartment: "Cardiology",
		Specialties:       []string{"Cardiology", "24 hours emergency care"},
		RecommendedAction: "Call 108 immediately.",
		IsAutoEmergency:   true,
		Disclaimer:        "This is not a medical diagnosis.",
		AssessmentMode:    model.ModeEmergencyFastTrack,
		Facilities: []model.FacilitySearchResult{
			{Facility: model.Facility{Name: "District Hospital", CareType: &hospital, DistanceKm: 2.4}, MatchedReasons: []string{"Emergency available"}},
		},
	})

	text := out.String()
	assert.Contains(t, text, "🚨 EMERGENCY")
	assert.Contains(t, text, "Severity:    9/10 (emergency)")
	assert.Contains(t, text, "[1] District Hospital - Hospital (2.40 km)")
	assert.Contains(t, text, "Emergency available")
}

type stubLocator struct {
	resp *model.LocateResponse
	err  error
}

func (s stubLocator) Locate(ctx context.Context, req model.LocateRequest) (*model.LocateResponse, error) {
	return s.resp, s.err
}

func TestLocate_Output(t *testing.T) {
	out := new(bytes.Buffer)
	err := locate(context.Background(), stubLocator{resp: &model.LocateResponse{
		Centroid:   model.Centroid{Lat: 12.97, Lng: 77.59},
		RadiusM:    5000,
		CareTypes:  []string{model.CareClinic},
		Filtered:   true,
		Facilities: []model.FacilitySearchResult{{Facility: model.Facility{Name: "City Clinic", DistanceKm: 3.1}}},
	}}, model.LocateRequest{}, out, false)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Within 5 km of (12.9700, 77.5900), Clinic:")
	assert.Contains(t, out.String(), "[1] City Clinic - unknown type (3.10 km)")
}

func TestLocate_NothingNearby(t *testing.T) {
	out := new(bytes.Buffer)
	err := locate(context.Background(), stubLocator{err: fmt.Errorf("%w: nothing within 10 km", model.ErrNoFacilitiesNearby)}, model.LocateRequest{}, out, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No facilities found")
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "assess [symptoms]", assessCmd.Use)

	flag := locateCmd.Flags().Lookup("severity")
	require.NotNil(t, flag)
	assert.Equal(t, "s", flag.Shorthand)
	assert.Equal(t, "moderate", flag.DefValue)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"assess"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}
