package model

// SeverityLevel is the coarse routing tier derived from a 1..10 severity score
type SeverityLevel string

const (
	SeverityMild      SeverityLevel = "mild"
	SeverityModerate  SeverityLevel = "moderate"
	SeverityHigh      SeverityLevel = "high"
	SeverityEmergency SeverityLevel = "emergency"
)

// LevelForSeverity maps 1-3 mild, 4-5 moderate, 6-7 high, 8-10 emergency.
// Scores outside 1..10 are clamped first.
func LevelForSeverity(severity int) SeverityLevel {
	switch s := ClampSeverity(severity); {
	case s <= 3:
		return SeverityMild
	case s <= 5:
		return SeverityModerate
	case s <= 7:
		return SeverityHigh
	default:
		return SeverityEmergency
	}
}

// ClampSeverity forces a score into 1..10.
func ClampSeverity(severity int) int {
	if severity < 1 {
		return 1
	}
	if severity > 10 {
		return 10
	}
	return severity
}

// ParseSeverityLevel returns the level named by s, if any.
func ParseSeverityLevel(s string) (SeverityLevel, bool) {
	switch l := SeverityLevel(s); l {
	case SeverityMild, SeverityModerate, SeverityHigh, SeverityEmergency:
		return l, true
	}
	return "", false
}

// Midpoint returns a representative score for the level.
func (l SeverityLevel) Midpoint() int {
	switch l {
	case SeverityMild:
		return 2
	case SeverityModerate:
		return 4
	case SeverityHigh:
		return 6
	case SeverityEmergency:
		return 9
	}
	return 5
}

// AssessmentMode records which branch of the triage pipeline produced a response
type AssessmentMode string

const (
	ModeEmergencyFastTrack AssessmentMode = "emergency-fast-track"
	ModeClarifying         AssessmentMode = "haiku-clarifying"
	ModeFull               AssessmentMode = "sonnet-full"
	ModeStage2             AssessmentMode = "sonnet-stage2"
)

// Stage1Result is the fast classifier output. It is also the cache blob the
// client carries between the clarification round-trips.
type Stage1Result struct {
	IsEmergency           bool       `json:"isEmergency"`
	DetectedKeywords      []string   `json:"detectedKeywords"`
	BodySystem            BodySystem `json:"bodySystem"`
	NeedsClarification    bool       `json:"needsClarification"`
	ClarifyingQuestions   []string   `json:"clarifyingQuestions"`
	RequiresTrauma        bool       `json:"requiresTrauma"`
	RequiresMaternityWard bool       `json:"requiresMaternityWard"`
	RequiresNICU          bool       `json:"requiresNICU"`
	RedFlags              []string   `json:"redFlags"`
	Signature             string     `json:"signature,omitempty"`
}

// Stage2Result is the full assessment output after schema repair
type Stage2Result struct {
	Severity          int           `json:"severity"`
	SeverityLevel     SeverityLevel `json:"severityLevel"`
	PrimaryDepartment string        `json:"primaryDepartment"`
	Specialties       []string      `json:"specialties"`
	RecommendedAction string        `json:"recommendedAction"`
	Reasoning         string        `json:"reasoning"`
	RedFlags          []string      `json:"redFlags"`
	Disclaimer        string        `json:"disclaimer"`
}

// AssessRequest is the body of POST /api/assess
type AssessRequest struct {
	Symptoms          string        `json:"symptoms"`
	ClarifyingAnswers []string      `json:"clarifyingAnswers"`
	Stage1Cache       *Stage1Result `json:"stage1Cache"`
	Age               string        `json:"age"`
	Duration          string        `json:"duration"`
	Pincode           string        `json:"pincode,omitempty"`
}

// IsRoundTwo reports whether the request carries a clarification follow-up.
func (r *AssessRequest) IsRoundTwo() bool {
	return len(r.ClarifyingAnswers) > 0 && r.Stage1Cache != nil
}

// AssessResponse merges both stages plus orchestration metadata. Every
// sequence is non-nil so it serialises as [] rather than null.
type AssessResponse struct {
	Severity          int           `json:"severity"`
	SeverityLevel     SeverityLevel `json:"severityLevel"`
	Specialties       []string      `json:"specialties"`
	PrimaryDepartment string        `json:"primaryDepartment"`
	RecommendedAction string        `json:"recommendedAction"`
	Reasoning         string        `json:"reasoning"`

	IsAutoEmergency       bool     `json:"isAutoEmergency"`
	DetectedKeywords      []string `json:"detectedKeywords"`
	RequiresTrauma        bool     `json:"requiresTrauma"`
	RequiresMaternityWard bool     `json:"requiresMaternityWard"`
	RequiresNICU          bool     `json:"requiresNICU"`

	NeedsClarification  bool          `json:"needsClarification"`
	ClarifyingQuestions []string      `json:"clarifyingQuestions"`
	Stage1Cache         *Stage1Result `json:"stage1Cache"`

	RedFlags       []string       `json:"redFlags"`
	Disclaimer     string         `json:"disclaimer"`
	AssessmentMode AssessmentMode `json:"assessmentMode"`

	Facilities []FacilitySearchResult `json:"facilities,omitempty"`
}

// ClassifyRequest is the body of POST /api/symptoms/classify
type ClassifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// ClassifyResponse mirrors the Stage 1 verdict in a compact form
type ClassifyResponse struct {
	Classification []string `json:"classification"`
	Emergency      bool     `json:"emergency"`
}
