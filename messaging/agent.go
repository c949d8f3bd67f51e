package messaging

// Agent identifies a participant in the mesh. The set is closed: every
// envelope names its sender and recipients from this enumeration.
type Agent string

const (
	AgentOrchestrator Agent = "orchestrator"
	AgentNL2SQL       Agent = "nl2sql"
	AgentVector       Agent = "vector"
	AgentAPI          Agent = "api"
	AgentFrontend     Agent = "frontend"
)

// Agents lists every known agent identity in declaration order.
func Agents() []Agent {
	return []Agent{AgentOrchestrator, AgentNL2SQL, AgentVector, AgentAPI, AgentFrontend}
}

// Valid reports whether a is a known agent identity.
func (a Agent) Valid() bool {
	switch a {
	case AgentOrchestrator, AgentNL2SQL, AgentVector, AgentAPI, AgentFrontend:
		return true
	}
	return false
}

func (a Agent) String() string {
	return string(a)
}

// Intent names a requested operation. The catalogue is closed but
// extensible: unknown intents still travel the wire and are answered by
// the broker's unknown-intent error path rather than rejected at parse
// time.
type Intent string

const (
	IntentTopCash     Intent = "TopCash"
	IntentCashBalance Intent = "CashBalance"
	IntentCRMPOI      Intent = "CRMPOI"
	IntentCustodial18 Intent = "Custodial18"
	IntentRecon       Intent = "Recon"
	IntentExecSummary Intent = "ExecSummary"
	IntentMissingBen  Intent = "MissingBen"
	IntentRMD         Intent = "RMD"
	IntentIRAReminder Intent = "IRAReminder"
	IntentPerfSummary Intent = "PerfSummary"
)

// Intents lists the known intent catalogue in declaration order.
func Intents() []Intent {
	return []Intent{
		IntentTopCash, IntentCashBalance, IntentCRMPOI, IntentCustodial18,
		IntentRecon, IntentExecSummary, IntentMissingBen, IntentRMD,
		IntentIRAReminder, IntentPerfSummary,
	}
}

// Valid reports whether i is in the known intent catalogue.
func (i Intent) Valid() bool {
	switch i {
	case IntentTopCash, IntentCashBalance, IntentCRMPOI, IntentCustodial18,
		IntentRecon, IntentExecSummary, IntentMissingBen, IntentRMD,
		IntentIRAReminder, IntentPerfSummary:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// Status tracks envelope lifecycle. Messages are created pending; the
// broker never mutates a request's status after send, so it is not
// authoritative once published. Responses carry only success or error.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Kind discriminates requests from responses on the wire. Every
// envelope carries it so receivers never have to sniff for
// response-shaped fields.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)
