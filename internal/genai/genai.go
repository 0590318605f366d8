// Package genai provides GenAI-assisted authoring using the OpenAI API.
//
// The client only produces suggestions: enhanced copy, image prompts and
// full funnel drafts. It never mutates a stored document; callers decide
// whether to accept what it returns.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
)

// ErrNoChoicesReturned indicates the completion API returned an empty
// choice list.
var ErrNoChoicesReturned = fmt.Errorf("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChat adapts the OpenAI SDK service to chatService.
type openaiChat struct {
	completions openai.ChatCompletionService
}

func (c openaiChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := c.completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client wraps the OpenAI ChatCompletion service for authoring assistance.
type Client struct {
	chat chatService
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	// APIKey is the OpenAI API key. Falls back to the OPENAI_API_KEY
	// environment variable when empty.
	APIKey string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key explicitly.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// NewClient initializes a new GenAI client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{chat: openaiChat{completions: cli.Chat.Completions}}, nil
}

// GeneratePrompt generates a response based on the provided system and user prompts.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

const enhanceSystemPrompt = "Tu es un copywriter expert en tunnels de vente. " +
	"Réécris le texte fourni pour le rendre plus percutant et engageant, " +
	"dans la même langue que l'original. Réponds uniquement avec le texte réécrit, " +
	"sans guillemets ni commentaire."

// EnhanceCopy rewrites a piece of step copy in a more persuasive register.
// The original text is returned untouched by the caller when this fails.
func (c *Client) EnhanceCopy(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("nothing to enhance")
	}
	out, err := c.GeneratePrompt(ctx, enhanceSystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("failed to enhance copy: %w", err)
	}
	return strings.TrimSpace(out), nil
}

const imagePromptSystemPrompt = "Tu es un directeur artistique. À partir du contenu " +
	"d'une étape de tunnel marketing, écris un prompt d'image en anglais pour un " +
	"générateur d'images. Réponds uniquement avec le prompt."

// GenerateImagePrompt produces an image-generation prompt for a step.
func (c *Client) GenerateImagePrompt(ctx context.Context, title, description string) (string, error) {
	out, err := c.GeneratePrompt(ctx, imagePromptSystemPrompt, title+"\n"+description)
	if err != nil {
		return "", fmt.Errorf("failed to generate image prompt: %w", err)
	}
	return strings.TrimSpace(out), nil
}

const strategySystemPrompt = "Tu es un stratège en tunnels de vente. À partir de " +
	"l'objectif fourni, conçois un tunnel complet. Réponds uniquement avec un objet JSON " +
	"de la forme {\"name\":...,\"description\":...,\"steps\":[{\"type\":\"welcome|question|message|lead_capture|calendar\"," +
	"\"title\":...,\"description\":...,\"button_text\":...,\"options\":[{\"text\":...,\"score\":0-20}]}]}. " +
	"Termine par une étape lead_capture."

// strategyDoc is the JSON shape the model is asked to produce.
type strategyDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []struct {
		Type        string `json:"type"`
		Title       string `json:"title"`
		Description string `json:"description"`
		ButtonText  string `json:"button_text"`
		Options     []struct {
			Text  string `json:"text"`
			Score int    `json:"score"`
		} `json:"options"`
	} `json:"steps"`
}

// GenerateStrategy asks the model for a complete funnel draft matching the
// given goal. All ids are freshly generated here; callers validate the draft
// before accepting it into the store.
func (c *Client) GenerateStrategy(ctx context.Context, goal string) (models.Funnel, error) {
	out, err := c.GeneratePrompt(ctx, strategySystemPrompt, goal)
	if err != nil {
		return models.Funnel{}, fmt.Errorf("failed to generate strategy: %w", err)
	}

	var doc strategyDoc
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &doc); err != nil {
		slog.Error("GenAI strategy response is not valid JSON", "error", err)
		return models.Funnel{}, fmt.Errorf("failed to parse strategy response: %w", err)
	}
	if len(doc.Steps) == 0 {
		return models.Funnel{}, fmt.Errorf("strategy response contains no steps")
	}

	f := models.Funnel{
		Name:        doc.Name,
		Description: doc.Description,
		Status:      models.StatusDraft,
		Settings:    models.DefaultSettings(),
	}
	for _, s := range doc.Steps {
		st := models.StepType(s.Type)
		if !models.IsValidStepType(st) {
			slog.Debug("GenAI strategy step skipped, unknown type", "type", s.Type)
			continue
		}
		step := models.FunnelStep{
			ID:          util.GenerateStepID(),
			Type:        st,
			Title:       s.Title,
			Description: s.Description,
			ButtonText:  s.ButtonText,
		}
		if st == models.StepTypeQuestion {
			for _, o := range s.Options {
				step.Options = append(step.Options, models.QuestionOption{
					ID:    util.GenerateOptionID(),
					Text:  o.Text,
					Score: o.Score,
				})
			}
		}
		if st == models.StepTypeLeadCapture {
			step.Fields = []models.CapturedField{models.FieldName, models.FieldEmail}
		}
		f.Steps = append(f.Steps, step)
	}
	if len(f.Steps) == 0 {
		return models.Funnel{}, fmt.Errorf("strategy response contains no usable steps")
	}
	return f, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models add
// despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
