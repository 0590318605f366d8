package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/numtema/funnelforge/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp openai.ChatCompletion
	err  error
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	return m.resp, m.err
}

func completionWith(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGeneratePrompt_Success(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("Hello World")}}
	out, err := client.GeneratePrompt(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
}

func TestGeneratePrompt_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GeneratePrompt(context.Background(), "sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGeneratePrompt_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	_, err := client.GeneratePrompt(context.Background(), "sys", "usr")
	if err != ErrNoChoicesReturned {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}

func TestEnhanceCopy(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("  Texte amélioré  ")}}
	out, err := client.EnhanceCopy(context.Background(), "Texte fade")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Texte amélioré" {
		t.Errorf("expected trimmed rewrite, got '%s'", out)
	}
}

func TestEnhanceCopy_EmptyInput(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("unused")}}
	if _, err := client.EnhanceCopy(context.Background(), "   "); err == nil {
		t.Error("expected error for blank input, got nil")
	}
}

const strategyJSON = `{
  "name": "Tunnel coaching",
  "description": "Qualification de prospects",
  "steps": [
    {"type": "welcome", "title": "Bienvenue", "button_text": "Commencer"},
    {"type": "question", "title": "Votre budget ?", "options": [
      {"text": "Moins de 500€", "score": 5},
      {"text": "Plus de 500€", "score": 15}
    ]},
    {"type": "hologram", "title": "should be dropped"},
    {"type": "lead_capture", "title": "Vos coordonnées"}
  ]
}`

func TestGenerateStrategy(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith(strategyJSON)}}
	f, err := client.GenerateStrategy(context.Background(), "vendre du coaching")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.Name != "Tunnel coaching" || f.Status != models.StatusDraft {
		t.Errorf("unexpected draft header: %+v", f)
	}
	if len(f.Steps) != 3 {
		t.Fatalf("expected 3 usable steps, got %d", len(f.Steps))
	}
	q := f.Steps[1]
	if q.Type != models.StepTypeQuestion || len(q.Options) != 2 || q.Options[1].Score != 15 {
		t.Errorf("question step mismatch: %+v", q)
	}
	if q.ID == "" || q.Options[0].ID == "" {
		t.Error("expected freshly generated ids on draft steps")
	}
	capture := f.Steps[2]
	if capture.Type != models.StepTypeLeadCapture || !capture.HasField(models.FieldEmail) {
		t.Errorf("lead capture step mismatch: %+v", capture)
	}
	if len(f.Settings.Scoring.Segments) == 0 {
		t.Error("expected default settings on draft")
	}
}

func TestGenerateStrategy_CodeFenced(t *testing.T) {
	fenced := "```json\n" + strategyJSON + "\n```"
	client := &Client{chat: &mockChatService{resp: completionWith(fenced)}}
	f, err := client.GenerateStrategy(context.Background(), "vendre du coaching")
	if err != nil {
		t.Fatalf("expected fenced JSON to parse, got %v", err)
	}
	if len(f.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(f.Steps))
	}
}

func TestGenerateStrategy_BadJSON(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("je ne peux pas répondre")}}
	if _, err := client.GenerateStrategy(context.Background(), "objectif"); err == nil {
		t.Error("expected parse error, got nil")
	}
}

func TestGenerateStrategy_NoUsableSteps(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith(`{"name":"x","steps":[{"type":"hologram"}]}`)}}
	if _, err := client.GenerateStrategy(context.Background(), "objectif"); err == nil {
		t.Error("expected error when every step has an unknown type, got nil")
	}
}
