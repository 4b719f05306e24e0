package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func textResponse(texts ...string) *genai.GenerateContentResponse {
	var parts []genai.Part
	for _, t := range texts {
		parts = append(parts, genai.Text(t))
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: RoleModel, Parts: parts}},
		},
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "gemini-1.5-flash"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestResponseText(t *testing.T) {
	resp := textResponse("მუხლი 73 ადგენს ", "წარმომადგენლობის წესებს.")
	if got := responseText(resp); got != "მუხლი 73 ადგენს წარმომადგენლობის წესებს." {
		t.Fatalf("responseText = %q", got)
	}
}

func TestResponseTextNil(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Fatalf("expected empty for nil response, got %q", got)
	}
	empty := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: nil}}}
	if got := responseText(empty); got != "" {
		t.Fatalf("expected empty for nil content, got %q", got)
	}
}

func TestUsageFrom(t *testing.T) {
	resp := textResponse("პასუხი")
	resp.UsageMetadata = &genai.UsageMetadata{
		PromptTokenCount:     120,
		CandidatesTokenCount: 36,
		TotalTokenCount:      156,
	}
	u := usageFrom(resp)
	if u == nil {
		t.Fatal("expected usage")
	}
	if u.PromptTokens != 120 || u.OutputTokens != 36 || u.TotalTokens != 156 {
		t.Fatalf("usage = %+v", u)
	}
	if usageFrom(textResponse("x")) != nil {
		t.Fatal("expected nil usage without metadata")
	}
}

func TestToContents(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Text: "რა წერია 73-ე მუხლში?"},
		{Role: RoleModel, Text: "73-ე მუხლი წარმომადგენლობას ეხება."},
		{Role: "assistant", Text: "უცნობი როლი"},
		{Role: RoleUser, Text: ""},
	}
	contents := toContents(history)
	if len(contents) != 3 {
		t.Fatalf("expected 3 turns (empty dropped), got %d", len(contents))
	}
	if contents[0].Role != RoleUser || contents[1].Role != RoleModel {
		t.Fatalf("roles = %s, %s", contents[0].Role, contents[1].Role)
	}
	// Unknown roles default to user.
	if contents[2].Role != RoleUser {
		t.Fatalf("unknown role mapped to %s", contents[2].Role)
	}
	if text, ok := contents[0].Parts[0].(genai.Text); !ok || string(text) != "რა წერია 73-ე მუხლში?" {
		t.Fatalf("parts[0] = %#v", contents[0].Parts[0])
	}
}
