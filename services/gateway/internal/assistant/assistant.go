// Package assistant talks to the generative model behind the room
// assistant channel.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"google.golang.org/genai"
)

const (
	// HistoryLimit is how many assistant-channel messages are replayed.
	HistoryLimit = 20
	// MaxContextChars bounds the file content attached to a prompt.
	MaxContextChars = 20000
)

const SystemInstruction = `You are the assistant of a collaborative coding room.
Several developers share the files of the room and ask you questions together.
Answer concisely, prefer concrete code over prose, and use fenced code blocks
with a language tag. When a file is attached, treat it as the current state of
the code under discussion.`

type Turn struct {
	Role string
	Text string
}

type Generator interface {
	Generate(ctx context.Context, history []Turn, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (Generator, error) {
	if apiKey == "" {
		return nil, types.ErrAssistantDisabled
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &geminiGenerator{client: client, model: model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, history []Turn, prompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	return resp.Text(), nil
}

// HistoryFromMessages converts stored assistant-channel messages to turns.
func HistoryFromMessages(msgs []*types.Message) []Turn {
	if len(msgs) > HistoryLimit {
		msgs = msgs[len(msgs)-HistoryLimit:]
	}
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Text: m.Text})
	}
	return turns
}

// BuildPrompt attaches the file, if any, as fenced code context.
func BuildPrompt(prompt string, file *types.File) string {
	if file == nil {
		return prompt
	}

	content := file.Content
	truncated := false
	if runes := []rune(content); len(runes) > MaxContextChars {
		content = string(runes[:MaxContextChars])
		truncated = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File %q (%s):\n", file.Name, file.Language)
	fmt.Fprintf(&b, "```%s\n%s\n```\n", file.Language, content)
	if truncated {
		fmt.Fprintf(&b, "(file truncated to the first %d characters)\n", MaxContextChars)
	}
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}
