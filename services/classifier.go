package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"adaptive-learning-platform/internal/ai"
	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/models"
)

const maturityWindow = 3

// ClassifierService decides whether a question belongs to the indexed
// domain and profiles the asker: maturity level, question type, desired
// verbosity and preferred media format. The LLM is only consulted when
// retrieval produced context; an empty retrieval is out-of-scope by
// definition and costs nothing.
type ClassifierService struct {
	generator ai.Generator
	maxTokens int

	mu      sync.Mutex
	history map[string][]models.MaturityLevel // per user, most recent last
	formats map[string]models.MediaFormat     // last explicit preference per user
}

func NewClassifierService(generator ai.Generator, maxTokens int) *ClassifierService {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &ClassifierService{
		generator: generator,
		maxTokens: maxTokens,
		history:   make(map[string][]models.MaturityLevel),
		formats:   make(map[string]models.MediaFormat),
	}
}

const classifierSystemPrompt = `Você é um classificador de perguntas para uma plataforma de aprendizado adaptativo.
Analise a pergunta do aluno e o contexto recuperado e responda APENAS com JSON válido, sem markdown:
{
  "in_scope": bool,
  "confidence": 0.0-1.0,
  "maturity": "beginner"|"intermediate"|"advanced",
  "question_type": "scope"|"overview"|"technical"|"guidance",
  "verbosity": "concise"|"moderate"|"detailed",
  "topics": ["tópicos da pergunta"],
  "preferred_format": "text"|"audio"|"video"|"unknown",
  "reasoning": "uma frase"
}
in_scope é verdadeiro apenas se o contexto recuperado realmente cobre a pergunta.
maturity reflete o vocabulário e a profundidade da pergunta, não o tema.`

// classifierVerdict mirrors the JSON contract above.
type classifierVerdict struct {
	InScope         bool     `json:"in_scope"`
	Confidence      float64  `json:"confidence"`
	Maturity        string   `json:"maturity"`
	QuestionType    string   `json:"question_type"`
	Verbosity       string   `json:"verbosity"`
	Topics          []string `json:"topics"`
	PreferredFormat string   `json:"preferred_format"`
	Reasoning       string   `json:"reasoning"`
}

// Classify profiles one question. userID scopes the maturity smoothing
// window and the sticky format preference.
func (c *ClassifierService) Classify(ctx context.Context, userID, question string, retrieval *models.RetrievalResult) (models.Classification, error) {
	explicitFormat := detectExplicitFormat(question)

	// No retrieved context means the question cannot be answered from the
	// indexed material. Out-of-scope with zero confidence, no LLM call.
	if retrieval == nil || retrieval.Empty() {
		return models.Classification{
			InScope:         false,
			Confidence:      0,
			Maturity:        c.currentMaturity(userID),
			QuestionType:    models.QuestionTypeScope,
			Verbosity:       models.VerbosityModerate,
			PreferredFormat: c.resolveFormat(userID, explicitFormat, models.FormatUnknown),
		}, nil
	}

	prompt := c.buildPrompt(question, retrieval)

	raw, err := c.generator.GenerateText(ctx, classifierSystemPrompt, prompt, c.maxTokens, 0.1)
	if err != nil {
		// Fail safe: an unclassifiable question is treated as out of scope
		// rather than answered with unvetted context.
		logger.Warn("Classification call failed, treating as out of scope", "error", err)
		return models.Classification{
			InScope:         false,
			Confidence:      0,
			Maturity:        c.currentMaturity(userID),
			QuestionType:    models.QuestionTypeScope,
			Verbosity:       models.VerbosityModerate,
			PreferredFormat: c.resolveFormat(userID, explicitFormat, models.FormatUnknown),
		}, nil
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		logger.Warn("Unparseable classification, treating as out of scope", "error", err)
		return models.Classification{
			InScope:         false,
			Confidence:      0,
			Maturity:        c.currentMaturity(userID),
			QuestionType:    models.QuestionTypeScope,
			Verbosity:       models.VerbosityModerate,
			PreferredFormat: c.resolveFormat(userID, explicitFormat, models.FormatUnknown),
		}, nil
	}

	maturity := models.MaturityLevel(verdict.Maturity)
	if !maturity.Valid() {
		maturity = models.MaturityBeginner
	}

	return models.Classification{
		InScope:         verdict.InScope,
		Confidence:      clamp01(verdict.Confidence),
		Maturity:        c.smoothMaturity(userID, maturity),
		QuestionType:    normalizeQuestionType(verdict.QuestionType),
		Verbosity:       normalizeVerbosity(verdict.Verbosity),
		Topics:          verdict.Topics,
		PreferredFormat: c.resolveFormat(userID, explicitFormat, models.MediaFormat(verdict.PreferredFormat)),
		Reasoning:       verdict.Reasoning,
	}, nil
}

func (c *ClassifierService) buildPrompt(question string, retrieval *models.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("Pergunta do aluno:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nContexto recuperado:\n")
	for i, chunk := range retrieval.Chunks {
		fmt.Fprintf(&sb, "[%d] (%s, similaridade %.2f) %s\n",
			i+1, chunk.Chunk.Metadata.ContentType, chunk.Similarity, snippet(chunk.Chunk.Text, 300))
	}
	return sb.String()
}

// smoothMaturity records the per-turn signal and returns the majority
// level over the last three turns, so one oddly-phrased question does not
// whipsaw the response style.
func (c *ClassifierService) smoothMaturity(userID string, observed models.MaturityLevel) models.MaturityLevel {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := append(c.history[userID], observed)
	if len(window) > maturityWindow {
		window = window[len(window)-maturityWindow:]
	}
	c.history[userID] = window

	return majorityLevel(window, observed)
}

// currentMaturity reads the smoothed level without recording anything.
// Turns that carry no maturity signal (out of scope, classifier failure)
// must not push observations into the window.
func (c *ClassifierService) currentMaturity(userID string) models.MaturityLevel {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.history[userID]
	if len(window) == 0 {
		return models.MaturityBeginner
	}
	return majorityLevel(window, window[len(window)-1])
}

func majorityLevel(window []models.MaturityLevel, fallback models.MaturityLevel) models.MaturityLevel {
	counts := make(map[models.MaturityLevel]int)
	for _, level := range window {
		counts[level]++
	}

	best := fallback
	bestCount := 0
	for _, level := range []models.MaturityLevel{models.MaturityAdvanced, models.MaturityIntermediate, models.MaturityBeginner} {
		if counts[level] > bestCount {
			best = level
			bestCount = counts[level]
		}
	}
	return best
}

// resolveFormat prefers an explicit statement in this question, then the
// model's reading, then the user's last known preference.
func (c *ClassifierService) resolveFormat(userID string, explicit, inferred models.MediaFormat) models.MediaFormat {
	c.mu.Lock()
	defer c.mu.Unlock()

	if explicit != models.FormatUnknown {
		c.formats[userID] = explicit
		return explicit
	}

	switch inferred {
	case models.FormatText, models.FormatAudio, models.FormatVideo:
		c.formats[userID] = inferred
		return inferred
	}

	if last, ok := c.formats[userID]; ok {
		return last
	}
	return models.FormatUnknown
}

// detectExplicitFormat catches direct statements like "prefiro vídeo" or
// "me explica em áudio" without a model call.
func detectExplicitFormat(question string) models.MediaFormat {
	q := strings.ToLower(question)

	hasPreferenceVerb := strings.Contains(q, "prefiro") ||
		strings.Contains(q, "prefiro receber") ||
		strings.Contains(q, "quero") ||
		strings.Contains(q, "me manda") ||
		strings.Contains(q, "em formato")

	if !hasPreferenceVerb && !strings.Contains(q, "em áudio") && !strings.Contains(q, "em audio") && !strings.Contains(q, "em vídeo") && !strings.Contains(q, "em video") {
		return models.FormatUnknown
	}

	switch {
	case strings.Contains(q, "vídeo") || strings.Contains(q, "video"):
		return models.FormatVideo
	case strings.Contains(q, "áudio") || strings.Contains(q, "audio"):
		return models.FormatAudio
	case strings.Contains(q, "texto"):
		return models.FormatText
	}
	return models.FormatUnknown
}

func parseVerdict(raw string) (*classifierVerdict, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var verdict classifierVerdict
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("invalid classification JSON: %w", err)
	}
	return &verdict, nil
}

func normalizeQuestionType(t string) string {
	switch t {
	case models.QuestionTypeScope, models.QuestionTypeOverview, models.QuestionTypeTechnical, models.QuestionTypeGuidance:
		return t
	}
	return models.QuestionTypeOverview
}

func normalizeVerbosity(v string) string {
	switch v {
	case models.VerbosityConcise, models.VerbosityModerate, models.VerbosityDetailed:
		return v
	}
	return models.VerbosityModerate
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
