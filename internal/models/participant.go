package models

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/apperrors"
)

// Participant identifies one side of the mailbox, e.g. "marti" or "ella".
type Participant string

// Pair is the fixed couple of participants sharing the mailbox.
type Pair struct {
	A Participant
	B Participant
}

// NewPair normalizes both ids and rejects empty or identical ones.
func NewPair(a, b string) (Pair, error) {
	p := Pair{A: normalize(a), B: normalize(b)}
	if p.A == "" || p.B == "" {
		return Pair{}, errors.New("participant ids must not be empty")
	}
	if p.A == p.B {
		return Pair{}, errors.Errorf("participant ids must differ, both are %q", p.A)
	}
	return p, nil
}

// Parse trims and lowercases raw and returns the matching participant.
func (p Pair) Parse(raw string) (Participant, error) {
	id := normalize(raw)
	if id == p.A || id == p.B {
		return id, nil
	}
	return "", errors.Wrapf(apperrors.ErrInvalidParticipant, "%q", raw)
}

// Other returns the participant opposite to id. id must belong to the pair.
func (p Pair) Other(id Participant) Participant {
	switch id {
	case p.A:
		return p.B
	case p.B:
		return p.A
	}
	panic("models: participant " + string(id) + " is not part of the pair")
}

// Members returns both participants, A first.
func (p Pair) Members() [2]Participant {
	return [2]Participant{p.A, p.B}
}

func normalize(raw string) Participant {
	return Participant(strings.ToLower(strings.TrimSpace(raw)))
}
