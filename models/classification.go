package models

// MaturityLevel is the user's apparent knowledge level, inferred per turn
// and smoothed across the session.
type MaturityLevel string

const (
	MaturityBeginner     MaturityLevel = "beginner"
	MaturityIntermediate MaturityLevel = "intermediate"
	MaturityAdvanced     MaturityLevel = "advanced"
)

// Valid reports whether the level is one of the known values.
func (m MaturityLevel) Valid() bool {
	switch m {
	case MaturityBeginner, MaturityIntermediate, MaturityAdvanced:
		return true
	}
	return false
}

// MediaFormat is the user's preferred response format.
type MediaFormat string

const (
	FormatText    MediaFormat = "text"
	FormatAudio   MediaFormat = "audio"
	FormatVideo   MediaFormat = "video"
	FormatUnknown MediaFormat = "unknown"
)

// Question types drive response verbosity and style.
const (
	QuestionTypeScope     = "scope"
	QuestionTypeOverview  = "overview"
	QuestionTypeTechnical = "technical"
	QuestionTypeGuidance  = "guidance"
)

// Verbosity levels passed through to the composer.
const (
	VerbosityConcise  = "concise"
	VerbosityModerate = "moderate"
	VerbosityDetailed = "detailed"
)

// Classification is derived per question and not persisted beyond the
// interaction.
type Classification struct {
	InScope         bool          `json:"in_scope"`
	Confidence      float64       `json:"confidence"`
	Maturity        MaturityLevel `json:"maturity"`
	QuestionType    string        `json:"question_type"`
	Verbosity       string        `json:"verbosity"`
	Topics          []string      `json:"topics,omitempty"`
	PreferredFormat MediaFormat   `json:"preferred_format"`
	Reasoning       string        `json:"reasoning,omitempty"`
}

// AdaptiveResponse is the composed textual answer for one turn.
type AdaptiveResponse struct {
	InteractionID string   `json:"interaction_id"`
	Text          string   `json:"text"`
	Verbosity     string   `json:"verbosity"`
	InScope       bool     `json:"in_scope"`
	SourcesUsed   []string `json:"sources_used,omitempty"`
}
