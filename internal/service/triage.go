package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stellaephile/whats-up-doc/internal/utils"
)

// Default texts used when the model leaves a field empty
const (
	DefaultAction          = "Visit a doctor."
	DefaultEmergencyAction = "Call 108 immediately."
	DefaultDisclaimer      = "This is not a medical diagnosis."
	ClarifyAction          = "Please answer the questions below."
	ClarifyReasoning       = "Need more information for accurate assessment."
)

const (
	// clarify-branch routing is a placeholder; clients should treat it as non-final
	placeholderSeverity = 5

	emergencyFloor     = 8
	facilitiesPerReply = 5
)

// FacilityFinder is the part of the locator the triage flow needs
type FacilityFinder interface {
	Locate(ctx context.Context, req model.LocateRequest) (*model.LocateResponse, error)
}

// AssessObserver receives intermediate results of a streaming assessment.
// Either callback may be nil.
type AssessObserver struct {
	OnStage1 func(stage1 *model.Stage1Result) error
	OnDelta  func(text string) error
}

// TriageService runs the two-stage assessment for one request at a time.
// It holds no per-session state; round 2 relies on the client-carried cache.
type TriageService struct {
	classifier     *Classifier
	assessor       *Assessor
	signer         *CacheSigner
	locator        FacilityFinder
	requestTimeout time.Duration
}

// NewTriageService wires the two stages. signer and locator may be nil.
func NewTriageService(classifier *Classifier, assessor *Assessor, signer *CacheSigner, locator FacilityFinder, requestTimeout time.Duration) *TriageService {
	return &TriageService{
		classifier:     classifier,
		assessor:       assessor,
		signer:         signer,
		locator:        locator,
		requestTimeout: requestTimeout,
	}
}

// Enabled reports whether both model stages are configured
func (t *TriageService) Enabled() bool {
	return t.classifier.Enabled() && t.assessor.Enabled()
}

// Models returns the Stage 1 and Stage 2 model identifiers
func (t *TriageService) Models() (stage1, stage2 string) {
	return t.classifier.ModelID(), t.assessor.ModelID()
}

// Classify runs Stage 1 only
func (t *TriageService) Classify(ctx context.Context, text string) (*model.ClassifyResponse, error) {
	return t.classifier.ClassifySymptoms(ctx, text)
}

// Assess runs the triage state machine for one request
func (t *TriageService) Assess(ctx context.Context, req model.AssessRequest) (*model.AssessResponse, error) {
	return t.run(ctx, req, nil)
}

// AssessStream is Assess with Stage 1 and Stage 2 progress reported to obs
func (t *TriageService) AssessStream(ctx context.Context, req model.AssessRequest, obs *AssessObserver) (*model.AssessResponse, error) {
	if obs == nil {
		obs = &AssessObserver{}
	}
	return t.run(ctx, req, obs)
}

func (t *TriageService) run(ctx context.Context, req model.AssessRequest, obs *AssessObserver) (*model.AssessResponse, error) {
	symptoms := strings.TrimSpace(req.Symptoms)
	if symptoms == "" {
		return nil, model.NewBadRequest("symptoms required")
	}
	req.Symptoms = symptoms

	if t.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.requestTimeout)
		defer cancel()
	}

	resp, err := t.dispatch(ctx, req, obs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: assessment did not finish within %s", model.ErrUnavailable, t.requestTimeout)
		}
		return nil, err
	}

	if resp.AssessmentMode != model.ModeClarifying {
		resp.Facilities = t.nearbyFacilities(ctx, req.Pincode, resp)
	}
	return resp, nil
}

func (t *TriageService) dispatch(ctx context.Context, req model.AssessRequest, obs *AssessObserver) (*model.AssessResponse, error) {
	if req.IsRoundTwo() {
		if stage1, ok := t.acceptCache(ctx, req); ok {
			logger.Info(ctx, "🔁 Round 2: cache accepted, running Stage 2 with %d answers", len(req.ClarifyingAnswers))
			if err := notifyStage1(obs, stage1); err != nil {
				return nil, err
			}
			return t.roundTwo(ctx, req, stage1, obs)
		}
		logger.Warn(ctx, "Stage 1 cache rejected, starting a fresh round 1")
	} else if len(req.ClarifyingAnswers) > 0 || req.Stage1Cache != nil {
		logger.Warn(ctx, "Incomplete round 2 request (answers=%d cache=%v), starting a fresh round 1",
			len(req.ClarifyingAnswers), req.Stage1Cache != nil)
	}

	stage1, err := t.classifier.Classify(ctx, req.Symptoms)
	if err != nil {
		return nil, err
	}

	if stage1.NeedsClarification && strings.TrimSpace(req.Age) != "" && strings.TrimSpace(req.Duration) != "" {
		logger.Debug(ctx, "Age and duration given, skipping clarification")
		stage1.NeedsClarification = false
		stage1.ClarifyingQuestions = []string{}
	}

	if err := notifyStage1(obs, stage1); err != nil {
		return nil, err
	}

	switch {
	case stage1.IsEmergency:
		logger.Info(ctx, "🚑 Emergency fast-track (keywords: %v)", stage1.DetectedKeywords)
		return t.emergency(ctx, req, stage1, obs)
	case stage1.NeedsClarification && len(stage1.ClarifyingQuestions) > 0:
		logger.Info(ctx, "❓ Asking %d clarifying questions", len(stage1.ClarifyingQuestions))
		return t.clarify(req, stage1), nil
	default:
		logger.Info(ctx, "🧠 Full assessment for body system %s", stage1.BodySystem)
		return t.full(ctx, req, stage1, obs)
	}
}

func (t *TriageService) emergency(ctx context.Context, req model.AssessRequest, stage1 *model.Stage1Result, obs *AssessObserver) (*model.AssessResponse, error) {
	result, err := t.runStage2(ctx, req, stage1, nil, obs, DefaultEmergencyAction)
	if err != nil {
		return nil, err
	}

	resp := newResponse(stage1, result, model.ModeEmergencyFastTrack)
	applyEmergencyOverride(resp, stage1, result)
	return resp, nil
}

func (t *TriageService) full(ctx context.Context, req model.AssessRequest, stage1 *model.Stage1Result, obs *AssessObserver) (*model.AssessResponse, error) {
	result, err := t.runStage2(ctx, req, stage1, nil, obs, DefaultAction)
	if err != nil {
		return nil, err
	}
	return newResponse(stage1, result, model.ModeFull), nil
}

func (t *TriageService) roundTwo(ctx context.Context, req model.AssessRequest, stage1 *model.Stage1Result, obs *AssessObserver) (*model.AssessResponse, error) {
	action := DefaultAction
	if stage1.IsEmergency {
		action = DefaultEmergencyAction
	}

	result, err := t.runStage2(ctx, req, stage1, req.ClarifyingAnswers, obs, action)
	if err != nil {
		return nil, err
	}

	resp := newResponse(stage1, result, model.ModeStage2)
	if stage1.IsEmergency {
		applyEmergencyOverride(resp, stage1, result)
	}
	return resp, nil
}

// clarify returns the placeholder routing plus questions and the signed cache
func (t *TriageService) clarify(req model.AssessRequest, stage1 *model.Stage1Result) *model.AssessResponse {
	return &model.AssessResponse{
		Severity:              placeholderSeverity,
		SeverityLevel:         model.LevelForSeverity(placeholderSeverity),
		Specialties:           []string{utils.SpecialtyForBodySystem(stage1.BodySystem)},
		PrimaryDepartment:     string(stage1.BodySystem),
		RecommendedAction:     ClarifyAction,
		Reasoning:             ClarifyReasoning,
		IsAutoEmergency:       false,
		DetectedKeywords:      nonNil(stage1.DetectedKeywords),
		RequiresTrauma:        stage1.RequiresTrauma,
		RequiresMaternityWard: stage1.RequiresMaternityWard,
		RequiresNICU:          stage1.RequiresNICU,
		NeedsClarification:    true,
		ClarifyingQuestions:   stage1.ClarifyingQuestions,
		Stage1Cache:           t.signer.Sign(stage1, req.Symptoms),
		RedFlags:              nonNil(stage1.RedFlags),
		Disclaimer:            DefaultDisclaimer,
		AssessmentMode:        model.ModeClarifying,
	}
}

func (t *TriageService) runStage2(ctx context.Context, req model.AssessRequest, stage1 *model.Stage1Result, answers []string, obs *AssessObserver, defaultAction string) (*model.Stage2Result, error) {
	in := AssessmentContext{
		Symptoms: req.Symptoms,
		Stage1:   stage1,
		Answers:  answers,
		Age:      req.Age,
		Duration: req.Duration,
	}

	var reply *Stage2Reply
	var err error
	if obs != nil && obs.OnDelta != nil {
		reply, err = t.assessor.AssessStream(ctx, in, obs.OnDelta)
	} else {
		reply, err = t.assessor.Assess(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	result, err := RepairStage2(reply, stage1, defaultAction)
	if err != nil {
		return nil, err
	}

	if lvl := strings.TrimSpace(string(reply.SeverityLevel)); lvl != "" && lvl != string(result.SeverityLevel) {
		logger.Debug(ctx, "Stage 2 level %q inconsistent with severity %d, using %s", lvl, result.Severity, result.SeverityLevel)
	}
	return result, nil
}

// acceptCache validates a round 2 cache. A forged, malformed or
// contradicted cache is rejected and the request runs as round 1.
func (t *TriageService) acceptCache(ctx context.Context, req model.AssessRequest) (*model.Stage1Result, bool) {
	cache := req.Stage1Cache

	if !t.signer.Verify(cache, req.Symptoms) {
		logger.Warn(ctx, "Stage 1 cache signature mismatch")
		return nil, false
	}

	if !validCacheShape(cache) {
		logger.Warn(ctx, "Stage 1 cache has an invalid shape")
		return nil, false
	}

	stage1 := canonicalCache(cache)
	stage1.Signature = ""

	// the client must not be able to switch the emergency path off
	wasEmergency := stage1.IsEmergency
	if ScreenEmergency(stage1, req.Symptoms) && !wasEmergency {
		logger.Warn(ctx, "Stage 1 cache contradicts emergency keywords %v", stage1.DetectedKeywords)
		return nil, false
	}

	return stage1, true
}

func validCacheShape(c *model.Stage1Result) bool {
	if c == nil || !c.BodySystem.IsValid() {
		return false
	}
	if len(c.ClarifyingQuestions) > maxClarifyingQuestions {
		return false
	}
	if c.NeedsClarification != (len(c.ClarifyingQuestions) > 0) {
		return false
	}
	for _, q := range c.ClarifyingQuestions {
		if strings.TrimSpace(q) == "" {
			return false
		}
	}
	return true
}

// RepairStage2 enforces the assessment invariants on a model reply: severity
// in 1..10, level derived from severity, 1..3 specialties from the closed set.
func RepairStage2(reply *Stage2Reply, stage1 *model.Stage1Result, defaultAction string) (*model.Stage2Result, error) {
	var severity int
	switch {
	case reply.Severity.Set:
		severity = model.ClampSeverity(reply.Severity.Value)
	default:
		level, ok := model.ParseSeverityLevel(strings.ToLower(strings.TrimSpace(string(reply.SeverityLevel))))
		if !ok {
			return nil, &model.UpstreamError{
				Stage: "stage2",
				Code:  model.CodeMalformedOutput,
				Err:   fmt.Errorf("%w: severity and severityLevel both missing", model.ErrMalformedModelOutput),
			}
		}
		severity = level.Midpoint()
	}

	department := strings.TrimSpace(string(reply.PrimaryDepartment))

	specialties := utils.NormalizeSpecialties(reply.Specialties)
	if len(specialties) == 0 {
		if s, ok := utils.NormalizeSpecialty(department); ok {
			specialties = []string{s}
		} else if stage1 != nil {
			specialties = []string{utils.SpecialtyForBodySystem(stage1.BodySystem)}
		} else {
			specialties = []string{model.SpecialtyGeneralMedicine}
		}
	}

	if department == "" {
		department = specialties[0]
	}

	return &model.Stage2Result{
		Severity:          severity,
		SeverityLevel:     model.LevelForSeverity(severity),
		PrimaryDepartment: department,
		Specialties:       specialties,
		RecommendedAction: orDefault(string(reply.RecommendedAction), defaultAction),
		Reasoning:         strings.TrimSpace(string(reply.Reasoning)),
		RedFlags:          utils.DedupeStrings(reply.RedFlags),
		Disclaimer:        orDefault(string(reply.Disclaimer), DefaultDisclaimer),
	}, nil
}

// applyEmergencyOverride raises severity to at least 8 and pins the level.
// Department and specialties are left as Stage 2 chose them.
func applyEmergencyOverride(resp *model.AssessResponse, stage1 *model.Stage1Result, result *model.Stage2Result) {
	resp.Severity = max(result.Severity, emergencyFloor)
	resp.SeverityLevel = model.SeverityEmergency
	resp.IsAutoEmergency = true
	resp.RedFlags = utils.DedupeStrings(stage1.RedFlags, result.RedFlags)
}

func newResponse(stage1 *model.Stage1Result, result *model.Stage2Result, mode model.AssessmentMode) *model.AssessResponse {
	return &model.AssessResponse{
		Severity:              result.Severity,
		SeverityLevel:         result.SeverityLevel,
		Specialties:           result.Specialties,
		PrimaryDepartment:     result.PrimaryDepartment,
		RecommendedAction:     result.RecommendedAction,
		Reasoning:             result.Reasoning,
		IsAutoEmergency:       false,
		DetectedKeywords:      nonNil(stage1.DetectedKeywords),
		RequiresTrauma:        stage1.RequiresTrauma,
		RequiresMaternityWard: stage1.RequiresMaternityWard,
		RequiresNICU:          stage1.RequiresNICU,
		NeedsClarification:    false,
		ClarifyingQuestions:   []string{},
		Stage1Cache:           nil,
		RedFlags:              nonNil(result.RedFlags),
		Disclaimer:            result.Disclaimer,
		AssessmentMode:        mode,
	}
}

// nearbyFacilities attaches facilities for the final tier. Failures are
// logged and never fail the assessment.
func (t *TriageService) nearbyFacilities(ctx context.Context, pincode string, resp *model.AssessResponse) []model.FacilitySearchResult {
	pincode = strings.TrimSpace(pincode)
	if t.locator == nil || pincode == "" {
		return nil
	}

	found, err := t.locator.Locate(ctx, model.LocateRequest{
		Pincode:       pincode,
		SeverityLevel: resp.SeverityLevel,
		Specialties:   resp.Specialties,
		Limit:         facilitiesPerReply,
	})
	if err != nil {
		logger.Warn(ctx, "Facility lookup for pincode %s failed: %v", pincode, err)
		return nil
	}

	logger.Debug(ctx, "📍 Attached %d facilities within %dm", len(found.Facilities), found.RadiusM)
	return found.Facilities
}

func notifyStage1(obs *AssessObserver, stage1 *model.Stage1Result) error {
	if obs == nil || obs.OnStage1 == nil {
		return nil
	}
	return obs.OnStage1(stage1)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
