package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stellaephile/whats-up-doc/internal/utils"
)

const stage2SystemPrompt = `You are a senior medical triage expert for India.
Given symptoms and any clarifying answers, provide a complete severity assessment.

Return ONLY valid JSON:
{
  "severity": 1-10,
  "severityLevel": "mild|moderate|high|emergency",
  "primaryDepartment": "department name",
  "specialties": ["specialty1", "specialty2"],
  "recommendedAction": "clear action for the patient",
  "reasoning": "brief clinical reasoning",
  "redFlags": ["flag1"],
  "disclaimer": "This is not a medical diagnosis. Please consult a doctor."
}

Severity scale:
1-3: mild      -> dispensary, PHC, clinic
4-5: moderate  -> clinic, nursing home, hospital OPD
6-7: high      -> hospital, multi-specialty
8-10: emergency -> 24x7 emergency, call 108

SPECIALTY NAMES. Use EXACTLY these strings, they match the hospital database:
"General Medicine", "Dental", "ENT", "Ophthalmology", "Dermatology",
"Orthopaedics", "Paediatrics", "Obstetrics and Gynaecology", "Cardiology",
"Neurology", "Psychiatry", "Gastro-enterology", "Urology", "Nephrology",
"Endocrinology", "Diabetology", "Physiotherapy", "Oncology", "Pulmonology",
"Trauma care", "24 hours emergency care", "Cosmetic and plastic surgery",
"Geriatrics", "Rheumatology", "Haematology"

SEVERITY RULES. Do NOT over-triage:
- Toothache, dental pain, cavity      -> severity 3-4, moderate, specialties ["Dental"]
- Eye irritation, conjunctivitis      -> severity 2-3, mild, specialties ["Ophthalmology"]
- Ear pain, blocked ear, mild ENT     -> severity 3, mild, specialties ["ENT"]
- Skin rash, acne, mild dermatology   -> severity 2-3, mild, specialties ["Dermatology"]
- Fever without red flags             -> severity 3-4, moderate, specialties ["General Medicine", "Paediatrics"]
- Back or joint pain, not acute       -> severity 3-4, moderate, specialties ["Orthopaedics"]
- Routine pregnancy checkup           -> severity 3, mild, specialties ["Obstetrics and Gynaecology"]
- Diabetes management, sugar control  -> severity 3-4, moderate, specialties ["Diabetology", "General Medicine"]
- Chest pain, breathing difficulty    -> severity 8+, emergency, specialties ["Cardiology", "24 hours emergency care"]
- Seizure, stroke, unconscious        -> severity 9-10, emergency

Rules:
- severityLevel MUST match severity (1-3=mild, 4-5=moderate, 6-7=high, 8-10=emergency)
- specialties: 1-3 relevant departments using EXACT names from the list above
- Always return valid JSON only`

// Stage2Reply is the Stage 2 model output before semantic repair
type Stage2Reply struct {
	Severity          utils.FlexInt     `json:"severity"`
	SeverityLevel     utils.FlexString  `json:"severityLevel"`
	PrimaryDepartment utils.FlexString  `json:"primaryDepartment"`
	Specialties       utils.FlexStrings `json:"specialties"`
	RecommendedAction utils.FlexString  `json:"recommendedAction"`
	Reasoning         utils.FlexString  `json:"reasoning"`
	RedFlags          utils.FlexStrings `json:"redFlags"`
	Disclaimer        utils.FlexString  `json:"disclaimer"`
}

// AssessmentContext is everything Stage 2 is told about the patient
type AssessmentContext struct {
	Symptoms string
	Stage1   *model.Stage1Result
	Answers  []string
	Age      string
	Duration string
}

// Prompt renders the user message for Stage 2. Clarifying answers are
// paired with the Stage 1 questions by position; extras on either side
// are dropped.
func (a AssessmentContext) Prompt() string {
	bodySystem := "unknown"
	var redFlags, questions []string
	if a.Stage1 != nil {
		if a.Stage1.BodySystem != "" {
			bodySystem = string(a.Stage1.BodySystem)
		}
		redFlags = a.Stage1.RedFlags
		questions = a.Stage1.ClarifyingQuestions
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.TrimSpace(a.Symptoms))
	fmt.Fprintf(&b, "Body system identified: %s\n", bodySystem)
	fmt.Fprintf(&b, "Red flags from triage: %s\n", strings.Join(redFlags, ", "))
	fmt.Fprintf(&b, "Age: %s\n", orNotSpecified(a.Age))
	fmt.Fprintf(&b, "Duration: %s", orNotSpecified(a.Duration))

	pairs := min(len(questions), len(a.Answers))
	if pairs > 0 {
		b.WriteString("\n\nClarifying Q&A:")
		for i := 0; i < pairs; i++ {
			fmt.Fprintf(&b, "\nQ: %s\nA: %s", questions[i], strings.TrimSpace(a.Answers[i]))
		}
	}

	return b.String()
}

func orNotSpecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "not specified"
	}
	return s
}

// Assessor runs the full Stage 2 severity assessment
type Assessor struct {
	client    ModelClient
	maxTokens int
}

// NewAssessor creates a Stage 2 assessor backed by client
func NewAssessor(client ModelClient, maxTokens int) *Assessor {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &Assessor{
		client:    client,
		maxTokens: maxTokens,
	}
}

// Enabled reports whether a model client is configured
func (a *Assessor) Enabled() bool {
	return a != nil && a.client != nil
}

// ModelID returns the Stage 2 model identifier, or "" when disabled
func (a *Assessor) ModelID() string {
	if !a.Enabled() {
		return ""
	}
	return a.client.ModelID()
}

func (a *Assessor) request(in AssessmentContext) ModelRequest {
	return ModelRequest{
		System:    stage2SystemPrompt,
		Prompt:    in.Prompt(),
		MaxTokens: a.maxTokens,
	}
}

// Assess runs Stage 2 and returns the parsed reply
func (a *Assessor) Assess(ctx context.Context, in AssessmentContext) (*Stage2Reply, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("%w: stage 2 model is not configured", model.ErrUnavailable)
	}

	req := a.request(in)
	logger.Debug(ctx, "🧠 Stage 2 (%s) context:\n%s", a.client.ModelID(), logger.Truncate(req.Prompt, 800))

	resp, err := a.client.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	return parseStage2(ctx, resp.Text)
}

// AssessStream runs Stage 2 in streaming mode, passing each text delta to
// onDelta, and parses the accumulated reply once the stream ends.
func (a *Assessor) AssessStream(ctx context.Context, in AssessmentContext, onDelta func(text string) error) (*Stage2Reply, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("%w: stage 2 model is not configured", model.ErrUnavailable)
	}

	req := a.request(in)
	logger.Debug(ctx, "🧠 Stage 2 stream (%s) context:\n%s", a.client.ModelID(), logger.Truncate(req.Prompt, 800))

	var full strings.Builder
	chunkCount := 0
	err := a.client.InvokeStream(ctx, req, func(chunk *StreamChunk) error {
		if chunk.Content == "" {
			return nil
		}
		chunkCount++
		full.WriteString(chunk.Content)
		if onDelta != nil {
			return onDelta(chunk.Content)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "🎉 Stage 2 stream completed. Total chunks: %d", chunkCount)
	return parseStage2(ctx, full.String())
}

func parseStage2(ctx context.Context, text string) (*Stage2Reply, error) {
	logger.Debug(ctx, "📥 Stage 2 raw: %s", logger.Truncate(text, 800))

	var reply Stage2Reply
	if err := utils.ParseAIJSON(text, &reply); err != nil {
		logger.Warn(ctx, "Failed to parse Stage 2 response: %v", err)
		return nil, &model.UpstreamError{Stage: "stage2", Code: model.CodeMalformedOutput, Err: err}
	}
	return &reply, nil
}
