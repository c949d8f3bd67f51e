package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wealthops/advisory-mesh/messaging"
)

// Entry binds one intent to its detection keywords and the agents that
// serve it. Declaration order matters: the keyword router breaks score
// ties in favor of the earliest entry.
type Entry struct {
	Intent   messaging.Intent
	Keywords []string
	Agents   []messaging.Agent
}

// Table is an ordered intent routing table.
type Table struct {
	entries []Entry
}

// DefaultTable returns the built-in routing table covering every
// advisory intent.
func DefaultTable() *Table {
	return &Table{entries: []Entry{
		{
			Intent: messaging.IntentTopCash,
			Keywords: []string{
				"top cash", "highest cash", "cash balance", "most cash",
				"cash positions", "liquid funds", "available cash",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL},
		},
		{
			Intent: messaging.IntentCRMPOI,
			Keywords: []string{
				"crm notes", "points of interest", "client notes", "advisor notes",
				"conversation history", "meeting notes", "discussion points",
			},
			Agents: []messaging.Agent{messaging.AgentVector},
		},
		{
			Intent: messaging.IntentCustodial18,
			Keywords: []string{
				"turned 18", "custodial", "age of majority", "minor account",
				"transition", "adult account", "custody transfer",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL, messaging.AgentVector},
		},
		{
			Intent: messaging.IntentRecon,
			Keywords: []string{
				"allocation", "mismatch", "drift", "rebalance", "target allocation",
				"asset allocation", "portfolio drift", "out of range",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL, messaging.AgentAPI},
		},
		{
			Intent: messaging.IntentExecSummary,
			Keywords: []string{
				"executive summary", "summary", "overview", "report summary",
				"household summary", "client summary", "portfolio summary",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL, messaging.AgentVector, messaging.AgentAPI},
		},
		{
			Intent: messaging.IntentMissingBen,
			Keywords: []string{
				"missing beneficiary", "beneficiary", "no beneficiary",
				"beneficiary information", "estate planning",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL},
		},
		{
			Intent: messaging.IntentRMD,
			Keywords: []string{
				"rmd", "required minimum distribution", "distribution deadline",
				"withdrawal required", "mandatory distribution",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL},
		},
		{
			Intent: messaging.IntentIRAReminder,
			Keywords: []string{
				"ira contribution", "contribution reminder", "ytd contribution",
				"annual contribution", "contribution limit", "no contributions",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL},
		},
		{
			Intent: messaging.IntentPerfSummary,
			Keywords: []string{
				"performance", "returns", "gain", "loss", "qoq", "qtd", "ytd",
				"performance summary", "investment performance",
			},
			Agents: []messaging.Agent{messaging.AgentNL2SQL, messaging.AgentAPI},
		},
	}}
}

// Entries returns the table's entries in declaration order.
func (t *Table) Entries() []Entry {
	return t.entries
}

// AgentsFor returns the agents serving an intent. Intents absent from
// the table route to nl2sql, which can answer most structured queries.
func (t *Table) AgentsFor(intent messaging.Intent) []messaging.Agent {
	for _, e := range t.entries {
		if e.Intent == intent {
			return e.Agents
		}
	}
	return []messaging.Agent{messaging.AgentNL2SQL}
}

// tableFile is the YAML shape of a routing table override.
type tableFile struct {
	Intents []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
		Agents   []string `yaml:"agents"`
	} `yaml:"intents"`
}

// LoadTable reads a routing table from a YAML file. The file replaces
// the built-in table entirely, so deployments can reword keywords or
// reroute intents without a rebuild.
func LoadTable(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing table: %w", err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse routing table: %w", err)
	}
	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("routing table %s declares no intents", filename)
	}

	table := &Table{entries: make([]Entry, 0, len(file.Intents))}
	for _, in := range file.Intents {
		intent := messaging.Intent(in.Name)
		if !intent.Valid() {
			return nil, fmt.Errorf("routing table %s: unknown intent %q", filename, in.Name)
		}
		agents := make([]messaging.Agent, 0, len(in.Agents))
		for _, name := range in.Agents {
			agent := messaging.Agent(name)
			if !agent.Valid() {
				return nil, fmt.Errorf("routing table %s: unknown agent %q", filename, name)
			}
			agents = append(agents, agent)
		}
		if len(agents) == 0 {
			return nil, fmt.Errorf("routing table %s: intent %q has no agents", filename, in.Name)
		}
		table.entries = append(table.entries, Entry{
			Intent:   intent,
			Keywords: in.Keywords,
			Agents:   agents,
		})
	}
	return table, nil
}
