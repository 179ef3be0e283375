package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/becomeliminal/mnemo-go-sdk/core"
	"github.com/becomeliminal/mnemo-go-sdk/insight"
	"github.com/becomeliminal/mnemo-go-sdk/memory"
	"github.com/becomeliminal/mnemo-go-sdk/merge"
)

// Anthropic implements the insight and merge oracles on the Claude API.
type Anthropic struct {
	client *anthropic.Client
	config *Config
}

// Config holds oracle call parameters.
type Config struct {
	// Model is the Claude model. Default: claude-sonnet-4-20250514.
	Model string

	// MaxTokens is the response token cap. Default: 2048.
	MaxTokens int64

	// Timeout bounds each oracle call. A timeout degrades only the
	// affected item or category, never the whole run. Default: 30s.
	Timeout time.Duration

	// MaxRetries is the retry count on transient API errors.
	// Default: 2.
	MaxRetries uint64
}

// DefaultConfig returns the parameters used when Config is nil.
var DefaultConfig = &Config{
	Model:      "claude-sonnet-4-20250514",
	MaxTokens:  2048,
	Timeout:    30 * time.Second,
	MaxRetries: 2,
}

// NewAnthropic creates the Claude-backed oracle.
func NewAnthropic(client *anthropic.Client, config *Config) *Anthropic {
	if config == nil {
		config = DefaultConfig
	}
	return &Anthropic{
		client: client,
		config: config,
	}
}

// complete sends one prompt and returns the text response, retrying
// transient failures with exponential backoff.
func (a *Anthropic) complete(ctx context.Context, system, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: a.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}

	var resp *anthropic.Message
	op := func() error {
		var err error
		resp, err = a.client.Messages.New(callCtx, params)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), a.config.MaxRetries),
		callCtx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// Extract implements insight.Extractor.
func (a *Anthropic) Extract(ctx context.Context, transcript []core.Message, existingCategories []string, project core.ProjectContext) (*insight.Extraction, error) {
	output, err := a.complete(ctx, extractSystemPrompt, buildExtractPrompt(transcript, existingCategories, project))
	if err != nil {
		return nil, err
	}

	var response struct {
		SessionRelevance float64 `json:"session_relevance"`
		Insights         []struct {
			Content       string   `json:"content"`
			Category      string   `json:"category"`
			Significance  float64  `json:"significance"`
			InsightType   string   `json:"insight_type"`
			Keywords      []string `json:"keywords"`
			IsNewCategory bool     `json:"is_new_category"`
		} `json:"insights"`
	}
	if err := json.Unmarshal([]byte(extractJSON(output)), &response); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	extraction := &insight.Extraction{
		SessionRelevance: clamp01(response.SessionRelevance),
		Insights:         make([]insight.CandidateInsight, 0, len(response.Insights)),
	}
	for _, ins := range response.Insights {
		extraction.Insights = append(extraction.Insights, insight.CandidateInsight{
			Content:      ins.Content,
			Category:     strings.ToLower(strings.TrimSpace(ins.Category)),
			Significance: clamp01(ins.Significance),
			Type:         insight.Type(ins.InsightType),
			Keywords:     ins.Keywords,
			NewCategory:  ins.IsNewCategory,
		})
	}

	log.Printf("[ORACLE] Extracted %d insights, session relevance %.2f",
		len(extraction.Insights), extraction.SessionRelevance)
	return extraction, nil
}

// Decide implements merge.Oracle.
func (a *Anthropic) Decide(ctx context.Context, section *memory.MemorySection, ins insight.CandidateInsight, memoryContent string) (*merge.Decision, error) {
	output, err := a.complete(ctx, mergeSystemPrompt, buildMergePrompt(section, ins, memoryContent))
	if err != nil {
		return nil, err
	}

	var response struct {
		Conflict bool   `json:"conflict"`
		Title    string `json:"title"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal([]byte(extractJSON(output)), &response); err != nil {
		return nil, fmt.Errorf("parse merge response: %w", err)
	}
	if response.Content == "" {
		return nil, fmt.Errorf("merge response missing content")
	}

	return &merge.Decision{
		Conflict: response.Conflict,
		Title:    response.Title,
		Content:  response.Content,
	}, nil
}

const extractSystemPrompt = `You extract durable project knowledge from development conversations. You respond with JSON only.`

func buildExtractPrompt(transcript []core.Message, existingCategories []string, project core.ProjectContext) string {
	var sb strings.Builder

	sb.WriteString("Analyze this session and extract discrete, significant insights: decisions made, features discussed, and notable facts worth remembering across sessions.\n\n")

	sb.WriteString("Project: ")
	sb.WriteString(project.Name)
	sb.WriteString("\n")
	if project.Description != "" {
		sb.WriteString("Description: ")
		sb.WriteString(project.Description)
		sb.WriteString("\n")
	}
	if len(project.TechStack) > 0 {
		sb.WriteString("Tech stack: ")
		sb.WriteString(strings.Join(project.TechStack, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString("\nExisting categories: ")
	if len(existingCategories) > 0 {
		sb.WriteString(strings.Join(existingCategories, ", "))
	} else {
		sb.WriteString("(none yet)")
	}
	sb.WriteString("\n\nConversation:\n")
	for _, msg := range transcript {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return JSON:

{
  "session_relevance": 0.8,
  "insights": [
    {
      "content": "JWT authentication will use refresh tokens stored in Redis",
      "category": "security",
      "significance": 0.9,
      "insight_type": "decision",
      "keywords": ["jwt", "redis"],
      "is_new_category": false
    }
  ]
}

Rules:
- insight_type is one of: decision, feature, note
- significance and session_relevance are in [0.0, 1.0]
- Prefer an existing category; set is_new_category true only when none fits
- Skip small talk and transient debugging chatter
- Return {"session_relevance": 0.0, "insights": []} when nothing is worth keeping
`)
	return sb.String()
}

const mergeSystemPrompt = `You merge a new insight into an existing knowledge section. You respond with JSON only.`

func buildMergePrompt(section *memory.MemorySection, ins insight.CandidateInsight, memoryContent string) string {
	var sb strings.Builder

	sb.WriteString("A new insight targets this existing section. Decide whether it contradicts the section, then produce the updated section.\n\n")

	sb.WriteString("Existing section title: ")
	sb.WriteString(section.Title)
	sb.WriteString("\nExisting section content:\n")
	sb.WriteString(section.Content)
	sb.WriteString("\n\nNew insight:\n")
	sb.WriteString(ins.Content)
	sb.WriteString("\n\nFull category memory for context:\n")
	sb.WriteString(memoryContent)

	sb.WriteString(`

Return JSON:

{
  "conflict": false,
  "title": "updated section title",
  "content": "updated section content"
}

Rules:
- No conflict: blend the insight into the content without repeating existing text verbatim
- Conflict: the updated content supersedes the contradicted facts but keeps every unrelated detail
- Never drop information that the insight does not contradict
- The title must come from the existing title and the insight, not be invented
- If the insight adds nothing new, return the existing title and content unchanged
`)
	return sb.String()
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
