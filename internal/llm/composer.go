package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/execbrief/internal/cache"
	"github.com/hyperifyio/execbrief/internal/rewrite"
)

const composerSystem = `You write faithful Chinese news sentences for an executive briefing.
Rules:
- Output strict JSON: {"q1":"...","q2":"...","q3":"...","proof":"..."} and nothing else.
- q1 and q2 must each contain exactly one of the provided anchors, copied verbatim and wrapped in 「」. They must use different anchors.
- Write everything outside the anchors in Chinese. Never use ellipsis or filler advisory phrases.
- q3 is optional; leave it empty when there is no third anchor worth using.`

// Composer implements the rewriter assist on top of a chat backend,
// with an on-disk response cache keyed by model and prompt.
type Composer struct {
	Client Client
	Model  string
	Cache  *cache.LLMCache // optional
}

type composerPayload struct {
	Q1    string `json:"q1"`
	Q2    string `json:"q2"`
	Q3    string `json:"q3"`
	Proof string `json:"proof"`
}

// Compose asks the backend for the Q1/Q2/proof set. The prompt is fully
// determined by title and anchors, so cached runs are reproducible.
func (c *Composer) Compose(ctx context.Context, title string, anchors []string) (rewrite.Narrative, error) {
	user := buildComposerPrompt(title, anchors)
	key := cache.KeyFrom(c.Model, composerSystem+"\n\n"+user)

	if c.Cache != nil {
		if data, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
			if nar, err := parseNarrative(data); err == nil {
				return nar, nil
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: composerSystem},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
		N:           1,
	}
	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return rewrite.Narrative{}, fmt.Errorf("compose call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return rewrite.Narrative{}, fmt.Errorf("compose call: empty response")
	}
	raw := []byte(stripCodeFence(resp.Choices[0].Message.Content))
	nar, err := parseNarrative(raw)
	if err != nil {
		return rewrite.Narrative{}, err
	}
	if c.Cache != nil {
		_ = c.Cache.Save(ctx, key, raw)
	}
	return nar, nil
}

func buildComposerPrompt(title string, anchors []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story title: %s\n\nAnchors (verbatim, strongest first):\n", title)
	for i, a := range anchors {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	return b.String()
}

func parseNarrative(data []byte) (rewrite.Narrative, error) {
	var p composerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return rewrite.Narrative{}, fmt.Errorf("compose response parse: %w", err)
	}
	if p.Q1 == "" || p.Q2 == "" {
		return rewrite.Narrative{}, fmt.Errorf("compose response missing q1/q2")
	}
	return rewrite.Narrative{Q1: p.Q1, Q2: p.Q2, Q3: p.Q3, Proof: p.Proof}, nil
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence.
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
