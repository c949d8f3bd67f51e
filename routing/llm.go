package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wealthops/advisory-mesh/messaging"
)

// ChatCompleter is the slice of the OpenAI client the LLM router
// needs. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMRouter asks a chat model for a structured routing decision. Any
// provider, parse, or validation failure is returned to the caller;
// wrap with FallbackRouter to degrade to keyword scoring instead.
type LLMRouter struct {
	client ChatCompleter
	model  string
	table  *Table
}

// NewLLMRouter creates an LLMRouter using the given client and model.
// A nil table means the built-in default; the table supplies the agent
// assignment and the intent catalogue shown to the model.
func NewLLMRouter(client ChatCompleter, model string, table *Table) *LLMRouter {
	if table == nil {
		table = DefaultTable()
	}
	return &LLMRouter{client: client, model: model, table: table}
}

// llmDecision is the JSON shape the model is instructed to produce.
type llmDecision struct {
	Intent    string   `json:"intent"`
	Agents    []string `json:"agents"`
	Reasoning string   `json:"reasoning"`
}

func (r *LLMRouter) Route(ctx context.Context, query string) (Decision, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("routing completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Decision{}, fmt.Errorf("routing completion returned no choices")
	}

	var decision llmDecision
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &decision); err != nil {
		return Decision{}, fmt.Errorf("failed to parse routing decision: %w", err)
	}

	intent := messaging.Intent(decision.Intent)
	if !intent.Valid() {
		return Decision{}, fmt.Errorf("model returned unknown intent %q", decision.Intent)
	}

	// The model's agent list is advisory; an empty one defers to the
	// routing table, an invalid one fails the decision.
	agents := make([]messaging.Agent, 0, len(decision.Agents))
	for _, name := range decision.Agents {
		agent := messaging.Agent(name)
		if !agent.Valid() {
			return Decision{}, fmt.Errorf("model returned unknown agent %q", name)
		}
		agents = append(agents, agent)
	}
	if len(agents) == 0 {
		agents = r.table.AgentsFor(intent)
	}

	return Decision{
		Intent:    intent,
		Agents:    agents,
		Reasoning: decision.Reasoning,
	}, nil
}

func (r *LLMRouter) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify a wealth-management advisor's query into exactly one intent.\n")
	b.WriteString("Known intents and example phrasings:\n")
	for _, e := range r.table.Entries() {
		fmt.Fprintf(&b, "- %s: %s\n", e.Intent, strings.Join(e.Keywords, ", "))
	}
	b.WriteString("Known agents: orchestrator, nl2sql, vector, api, frontend.\n")
	b.WriteString("Respond with a JSON object: {\"intent\": \"<intent>\", \"agents\": [\"<agent>\", ...], \"reasoning\": \"<one sentence>\"}.\n")
	b.WriteString("Leave agents empty to use the default routing. If nothing fits, use ExecSummary.")
	return b.String()
}
