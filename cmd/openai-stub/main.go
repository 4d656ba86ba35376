// openai-stub is an offline OpenAI-compatible chat endpoint for demo and
// calibration runs: point -llm.base at it and the composer gets
// deterministic Chinese narratives built from the anchors in the prompt,
// with no network or key required.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "stub-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		user := ""
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}
		payload := composeFromPrompt(user)
		b, _ := json.Marshal(payload)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "stub-1",
			"object":  "chat.completion",
			"model":   model,
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": string(b)}}},
		})
	})

	log.Printf("openai-stub listening on %s as model %q", addr, model)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// composeFromPrompt builds the strict-JSON narrative the composer expects,
// wrapping the first anchors from the numbered list in 「」.
func composeFromPrompt(user string) map[string]string {
	anchors := mineAnchors(user)
	out := map[string]string{"q1": "", "q2": "", "q3": "", "proof": ""}
	if len(anchors) >= 1 {
		out["q1"] = fmt.Sprintf("该公司今日公布重要进展,原文明确表示「%s」。", anchors[0])
		out["proof"] = fmt.Sprintf("原始报道中可直接核对的关键表述为「%s」。", anchors[0])
	}
	if len(anchors) >= 2 {
		out["q2"] = fmt.Sprintf("报道进一步指出「%s」,外界关注其落地节奏。", anchors[1])
	}
	if len(anchors) >= 3 {
		out["q3"] = fmt.Sprintf("此外,文中还提到「%s」。", anchors[2])
	}
	return out
}

// mineAnchors pulls the numbered anchor lines out of the composer prompt.
func mineAnchors(user string) []string {
	var anchors []string
	for _, line := range strings.Split(user, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 || line[0] < '1' || line[0] > '9' {
			continue
		}
		_, rest, ok := strings.Cut(line, ". ")
		if !ok {
			continue
		}
		if a := strings.TrimSpace(rest); a != "" {
			anchors = append(anchors, a)
		}
	}
	return anchors
}
