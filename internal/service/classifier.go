package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"
	"github.com/stellaephile/whats-up-doc/internal/utils"
)

const stage1SystemPrompt = `You are a medical triage assistant for India.
Analyze the symptoms. They may be written in English, Hindi (Devanagari) or Hinglish.

Return ONLY valid JSON, no other text:
{
  "isEmergency": true/false,
  "detectedKeywords": ["keyword1"],
  "bodySystem": "Cardiology|Respiratory|Gastroenterology|Neurology|Orthopedics|Dermatology|Pediatrics|Obstetrics|ENT|Ophthalmology|Urology|Psychiatry|General Medicine|Emergency",
  "needsClarification": true/false,
  "clarifyingQuestions": ["question1", "question2"],
  "requiresTrauma": true/false,
  "requiresMaternityWard": true/false,
  "requiresNICU": true/false,
  "redFlags": ["flag1"]
}

EMERGENCY RULES (isEmergency=true, never ask questions):
- chest pain, seena dard, heart attack, dil ka daura
- difficulty breathing, saans nahi, cannot breathe
- unconscious, behosh, passed out
- seizure, fits, convulsion, mirgi
- stroke, paralysis, face drooping, lakwa
- severe bleeding, tez khoon
- labour pain, prasav dard, water broke
- poisoning, overdose, snake bite, anaphylaxis

CLARIFICATION RULES (needsClarification=true, at most 2 questions):
- Ask when age is not mentioned and the symptom affects children and adults differently
- Ask when duration is not mentioned and it changes severity (fever, pain, cough)
- Ask when the symptom is vague and could be mild or serious (headache, stomach pain, chest discomfort, back pain, fatigue, dizziness)
- Ask in the SAME language as the input: Hindi input gets Hindi questions, English gets English, Hinglish gets Hinglish

Needs clarification:
- "fever" -> "How long have you had fever?" + "How old is the patient?"
- "headache" -> "How long has this headache lasted?" + "Is it severe or mild?"
- "stomach pain" -> "Where exactly is the pain?" + "How long have you had it?"
- "bachhe ko bukhar" -> "Bachhe ki umar kya hai?" + "Kitne din se bukhar hai?"
- "back pain" -> "Is the pain sudden or gradual?" + "Does it spread to the legs?"
- "cough" -> "How many days?" + "Any blood or breathing difficulty?"

No clarification:
- any emergency keyword above
- "fever since 3 days with headache" (duration given)
- "5 year old child with 103 fever" (age and detail given)
- "tooth pain", "eye problem", "ayurveda" (clear single system)

Always return valid JSON only, no markdown.`

// stage1Payload is the loosely-typed shape the model returns
type stage1Payload struct {
	IsEmergency           utils.FlexBool    `json:"isEmergency"`
	DetectedKeywords      utils.FlexStrings `json:"detectedKeywords"`
	BodySystem            utils.FlexString  `json:"bodySystem"`
	NeedsClarification    utils.FlexBool    `json:"needsClarification"`
	ClarifyingQuestions   utils.FlexStrings `json:"clarifyingQuestions"`
	RequiresTrauma        utils.FlexBool    `json:"requiresTrauma"`
	RequiresMaternityWard utils.FlexBool    `json:"requiresMaternityWard"`
	RequiresNICU          utils.FlexBool    `json:"requiresNICU"`
	RedFlags              utils.FlexStrings `json:"redFlags"`
}

// maxClarifyingQuestions caps the questions asked in one clarification round
const maxClarifyingQuestions = 2

// Classifier runs the fast Stage 1 triage call
type Classifier struct {
	client    ModelClient
	maxTokens int
}

// NewClassifier creates a Stage 1 classifier backed by client
func NewClassifier(client ModelClient, maxTokens int) *Classifier {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Classifier{
		client:    client,
		maxTokens: maxTokens,
	}
}

// Enabled reports whether a model client is configured
func (c *Classifier) Enabled() bool {
	return c != nil && c.client != nil
}

// ModelID returns the Stage 1 model identifier, or "" when disabled
func (c *Classifier) ModelID() string {
	if !c.Enabled() {
		return ""
	}
	return c.client.ModelID()
}

// Classify runs Stage 1 on symptoms and returns a normalised result. The
// local emergency screen is applied on top of the model verdict.
func (c *Classifier) Classify(ctx context.Context, symptoms string) (*model.Stage1Result, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return nil, model.NewBadRequest("symptoms required")
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: stage 1 model is not configured", model.ErrUnavailable)
	}

	logger.Debug(ctx, "🩺 Stage 1 (%s) for: %s", c.client.ModelID(), logger.Truncate(symptoms, 120))

	resp, err := c.client.Invoke(ctx, ModelRequest{
		System:    stage1SystemPrompt,
		Prompt:    "Symptoms: " + symptoms,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "📥 Stage 1 raw: %s", logger.Truncate(resp.Text, 500))

	var payload stage1Payload
	if err := utils.ParseAIJSON(resp.Text, &payload); err != nil {
		logger.Warn(ctx, "Failed to parse Stage 1 response: %v", err)
		return nil, &model.UpstreamError{Stage: "stage1", Code: model.CodeMalformedOutput, Err: err}
	}

	result := normalizeStage1(&payload)
	ScreenEmergency(result, symptoms)

	logger.Debug(ctx, "✅ Stage 1: emergency=%v body=%s clarify=%v questions=%d keywords=%v",
		result.IsEmergency, result.BodySystem, result.NeedsClarification, len(result.ClarifyingQuestions), result.DetectedKeywords)

	return result, nil
}

// normalizeStage1 fills defaults and enforces that questions are present
// exactly when clarification is requested.
func normalizeStage1(p *stage1Payload) *model.Stage1Result {
	questions := make([]string, 0, maxClarifyingQuestions)
	for _, q := range p.ClarifyingQuestions {
		if len(questions) == maxClarifyingQuestions {
			break
		}
		questions = append(questions, q)
	}

	result := &model.Stage1Result{
		IsEmergency:           bool(p.IsEmergency),
		DetectedKeywords:      utils.DedupeStrings(p.DetectedKeywords),
		BodySystem:            utils.NormalizeBodySystem(string(p.BodySystem)),
		NeedsClarification:    bool(p.NeedsClarification) && len(questions) > 0,
		ClarifyingQuestions:   questions,
		RequiresTrauma:        bool(p.RequiresTrauma),
		RequiresMaternityWard: bool(p.RequiresMaternityWard),
		RequiresNICU:          bool(p.RequiresNICU),
		RedFlags:              utils.DedupeStrings(p.RedFlags),
	}

	if !result.NeedsClarification {
		result.ClarifyingQuestions = []string{}
	}
	return result
}

// ScreenEmergency runs the local keyword screen over symptoms. It can only
// raise isEmergency, never clear it, and an emergency never asks questions.
// It reports whether the screen found a keyword.
func ScreenEmergency(result *model.Stage1Result, symptoms string) bool {
	matched := utils.MatchEmergencyKeywords(symptoms)
	if len(matched) > 0 {
		result.IsEmergency = true
		result.DetectedKeywords = utils.DedupeStrings(result.DetectedKeywords, matched)
	}

	if result.IsEmergency {
		result.NeedsClarification = false
		result.ClarifyingQuestions = []string{}
	}
	return len(matched) > 0
}

// ClassifySymptoms runs Stage 1 and condenses it for the classify endpoint
func (c *Classifier) ClassifySymptoms(ctx context.Context, text string) (*model.ClassifyResponse, error) {
	result, err := c.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	classification := utils.DedupeStrings(result.DetectedKeywords)
	if len(classification) == 0 {
		classification = []string{string(result.BodySystem)}
	}

	return &model.ClassifyResponse{
		Classification: classification,
		Emergency:      result.IsEmergency,
	}, nil
}
