package service

type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeSkip
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSkip:
		return "skip"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip and failure reasons, also used as metric labels.
const (
	ReasonFromMe          = "from_me"
	ReasonNoText          = "no_text"
	ReasonNoAddress       = "no_address"
	ReasonDuplicate       = "duplicate"
	ReasonBlocked         = "blocked"
	ReasonPersistContact  = "persist_contact"
	ReasonPersistConv     = "persist_conversation"
	ReasonPersistMessage  = "persist_message"
	ReasonPanic           = "panic"
	ReasonUnknownInstance = "unknown_instance"
)

// Outcome is the result of running one message envelope through the pipeline.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Route  Route
	Err    error
}

func OK(route Route) Outcome {
	return Outcome{Kind: OutcomeOK, Route: route}
}

func Skip(reason string) Outcome {
	return Outcome{Kind: OutcomeSkip, Reason: reason}
}

func Failed(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Err: err}
}
