package client

import "strings"

// GateState is the signing gate's decision for the current user.
type GateState string

// Gate states.
const (
	GateNotSignable   GateState = "NOT_SIGNABLE"
	GateSignable      GateState = "SIGNABLE"
	GateAlreadySigned GateState = "ALREADY_SIGNED"
)

// Gate messages.
const (
	MsgAlreadySigned = "You have already signed this document"
	MsgNotSignable   = "This document cannot be signed"
	MsgSignable      = "Your signature is requested on this document"
)

// GateView is what the signing gate renders.
type GateView struct {
	State          GateState
	Message        string
	ShowSignButton bool
}

// EvaluateGate decides whether the user with currentEmail may sign doc.
// A prior signature wins over every other input, so a signer of a document
// that has since been retired still sees that they signed it. The result is
// derived only from freshly fetched inputs; nothing is cached between calls.
func EvaluateGate(doc *Document, signatures []Signature, currentEmail string) GateState {
	if currentEmail != "" {
		for _, s := range signatures {
			if strings.EqualFold(s.User.Email, currentEmail) {
				return GateAlreadySigned
			}
		}
	}

	if doc == nil || doc.Status == StatusRetired || doc.LatestRevision == nil {
		return GateNotSignable
	}

	return GateSignable
}

// RenderGate returns the view for state. Only SIGNABLE offers a sign button.
func RenderGate(state GateState) GateView {
	switch state {
	case GateAlreadySigned:
		return GateView{State: state, Message: MsgAlreadySigned}
	case GateSignable:
		return GateView{State: state, Message: MsgSignable, ShowSignButton: true}
	default:
		return GateView{State: GateNotSignable, Message: MsgNotSignable}
	}
}
