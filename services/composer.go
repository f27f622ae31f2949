package services

import (
	"context"
	"fmt"
	"strings"

	"adaptive-learning-platform/internal/ai"
	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/models"
)

// Rough token estimate used to budget prompt context. Four characters
// per token is close enough for mixed Portuguese/English prose.
const charsPerToken = 4

// ComposerService turns a classified question plus retrieved context into
// the final adaptive answer. Out-of-scope questions are declined locally
// with topic suggestions drawn from the index, no model call.
type ComposerService struct {
	generator ai.Generator
	index     VectorIndex
	maxTokens int
}

func NewComposerService(generator ai.Generator, index VectorIndex, maxTokens int) *ComposerService {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &ComposerService{
		generator: generator,
		index:     index,
		maxTokens: maxTokens,
	}
}

// Compose produces the textual answer for one turn.
func (c *ComposerService) Compose(ctx context.Context, interactionID, question string, classification models.Classification, retrieval *models.RetrievalResult) (*models.AdaptiveResponse, error) {
	if !classification.InScope || retrieval == nil || retrieval.Empty() {
		return &models.AdaptiveResponse{
			InteractionID: interactionID,
			Text:          c.declineResponse(ctx),
			Verbosity:     classification.Verbosity,
			InScope:       false,
		}, nil
	}

	contextBlock, sources := c.buildContext(retrieval)

	system := c.buildSystemPrompt(classification)
	prompt := fmt.Sprintf("Material de apoio:\n%s\nPergunta do aluno:\n%s", contextBlock, question)

	text, err := c.generator.GenerateText(ctx, system, prompt, c.maxTokens, 0.7)
	if err != nil {
		return nil, fmt.Errorf("failed to compose response: %w", err)
	}

	return &models.AdaptiveResponse{
		InteractionID: interactionID,
		Text:          strings.TrimSpace(text),
		Verbosity:     classification.Verbosity,
		InScope:       true,
		SourcesUsed:   sources,
	}, nil
}

// buildContext concatenates retrieved chunks within the token budget.
// Half the response budget is reserved for context; chunks that would
// overflow it are dropped, keeping the rerank order.
func (c *ComposerService) buildContext(retrieval *models.RetrievalResult) (string, []string) {
	budget := c.maxTokens * charsPerToken / 2
	if budget < 500 {
		budget = 500
	}

	var sb strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for i, chunk := range retrieval.Chunks {
		entry := fmt.Sprintf("[Fonte %d: %s]\n%s\n\n", i+1, chunk.Chunk.Metadata.SourceFile, chunk.Chunk.Text)
		if sb.Len()+len(entry) > budget && sb.Len() > 0 {
			break
		}
		sb.WriteString(entry)

		if !seen[chunk.Chunk.SourceID] {
			seen[chunk.Chunk.SourceID] = true
			sources = append(sources, chunk.Chunk.SourceID)
		}
	}

	return sb.String(), sources
}

func (c *ComposerService) buildSystemPrompt(classification models.Classification) string {
	var sb strings.Builder
	sb.WriteString("Você é um tutor de uma plataforma de aprendizado adaptativo. ")
	sb.WriteString("Responda em português, usando APENAS o material de apoio fornecido. ")
	sb.WriteString("Se o material não cobrir algo, diga isso em vez de inventar.\n\n")

	switch classification.Maturity {
	case models.MaturityBeginner:
		sb.WriteString("O aluno é iniciante: use linguagem simples, defina os termos técnicos e dê exemplos concretos.\n")
	case models.MaturityIntermediate:
		sb.WriteString("O aluno tem nível intermediário: assuma os fundamentos e foque nos pontos menos óbvios.\n")
	case models.MaturityAdvanced:
		sb.WriteString("O aluno é avançado: seja direto e técnico, sem explicar o básico.\n")
	}

	switch classification.QuestionType {
	case models.QuestionTypeScope:
		sb.WriteString("A pergunta é sobre o que o material cobre: responda com um panorama dos temas disponíveis.\n")
	case models.QuestionTypeOverview:
		sb.WriteString("A pergunta pede uma visão geral: estruture a resposta do geral para o específico.\n")
	case models.QuestionTypeTechnical:
		sb.WriteString("A pergunta é técnica: priorize precisão, passos e exemplos.\n")
	case models.QuestionTypeGuidance:
		sb.WriteString("A pergunta pede orientação de estudo: sugira uma sequência prática baseada no material.\n")
	}

	switch classification.Verbosity {
	case models.VerbosityConcise:
		sb.WriteString("Seja conciso: no máximo dois parágrafos curtos.")
	case models.VerbosityDetailed:
		sb.WriteString("Seja detalhado: desenvolva a explicação com exemplos do material.")
	default:
		sb.WriteString("Use um nível de detalhe moderado.")
	}

	return sb.String()
}

// declineResponse builds the out-of-scope answer, suggesting up to three
// topics actually present in the index so the student knows what they
// can ask about.
func (c *ComposerService) declineResponse(ctx context.Context) string {
	base := "Desculpe, essa pergunta está fora do escopo do material disponível."

	topics := c.suggestedTopics(ctx, 3)
	if len(topics) == 0 {
		return base
	}

	return fmt.Sprintf("%s Posso ajudar com temas como: %s.", base, strings.Join(topics, ", "))
}

func (c *ComposerService) suggestedTopics(ctx context.Context, limit int) []string {
	samples, err := c.index.SampleMetadata(ctx, 50)
	if err != nil {
		logger.Warn("Failed to sample index metadata for suggestions", "error", err)
		return nil
	}

	seen := make(map[string]bool)
	var topics []string
	for _, meta := range samples {
		topic := meta.Title
		if topic == "" {
			topic = strings.TrimSuffix(meta.SourceFile, extOf(meta.SourceFile))
			topic = strings.ReplaceAll(topic, "_", " ")
			topic = strings.ReplaceAll(topic, "-", " ")
			topic = strings.TrimSpace(topic)
		}
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
		if len(topics) >= limit {
			break
		}
	}
	return topics
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
