package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func effectiveDoc(status string) *Document {
	return &Document{Code: "SOP-001", Status: status, LatestRevision: &Revision{Number: 1}}
}

func TestEvaluateGate(t *testing.T) {
	t.Parallel()

	mine := []Signature{{ID: "s1", User: SignatureUser{Email: "Ada@Example.com"}}}
	others := []Signature{{ID: "s2", User: SignatureUser{Email: "bob@example.com"}}}

	tests := []struct {
		name  string
		doc   *Document
		sigs  []Signature
		email string
		want  GateState
	}{
		{"effective unsigned", effectiveDoc(StatusEffective), others, "ada@example.com", GateSignable},
		{"draft unsigned", effectiveDoc(StatusDraft), nil, "ada@example.com", GateSignable},
		{"email matches case-insensitively", effectiveDoc(StatusEffective), mine, "ada@example.com", GateAlreadySigned},
		{"retired", effectiveDoc(StatusRetired), others, "ada@example.com", GateNotSignable},
		{"retired but signed", effectiveDoc(StatusRetired), mine, "ada@example.com", GateAlreadySigned},
		{"no revision", &Document{Status: StatusEffective}, nil, "ada@example.com", GateNotSignable},
		{"no revision but signed", &Document{Status: StatusEffective}, mine, "ADA@EXAMPLE.COM", GateAlreadySigned},
		{"missing document", nil, nil, "ada@example.com", GateNotSignable},
		{"signed out never matches", effectiveDoc(StatusEffective), []Signature{{}}, "", GateSignable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EvaluateGate(tt.doc, tt.sigs, tt.email))
		})
	}
}

func TestEvaluateGate_SignedWinsForEveryDocumentState(t *testing.T) {
	t.Parallel()

	sigs := []Signature{
		{User: SignatureUser{Email: "bob@example.com"}},
		{User: SignatureUser{Email: "ada@example.com"}},
	}
	docs := []*Document{
		nil,
		{Status: StatusRetired},
		{Status: StatusDraft},
		effectiveDoc(StatusInReview),
		effectiveDoc(StatusEffective),
		effectiveDoc(StatusRetired),
	}

	for _, doc := range docs {
		assert.Equal(t, GateAlreadySigned, EvaluateGate(doc, sigs, "Ada@example.com"))
	}
}

func TestRenderGate(t *testing.T) {
	t.Parallel()

	signed := RenderGate(GateAlreadySigned)
	assert.Equal(t, MsgAlreadySigned, signed.Message)
	assert.False(t, signed.ShowSignButton)

	signable := RenderGate(GateSignable)
	assert.True(t, signable.ShowSignButton)

	blocked := RenderGate(GateNotSignable)
	assert.Equal(t, MsgNotSignable, blocked.Message)
	assert.False(t, blocked.ShowSignButton)

	unknown := RenderGate("BOGUS")
	assert.Equal(t, GateNotSignable, unknown.State)
	assert.False(t, unknown.ShowSignButton)
}
