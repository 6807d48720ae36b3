// Package presentment simulates the proximity-tap and dial-code channels.
// The core never depends on real timing or radio: a channel is just an
// Attempter that says whether the hand-off worked, after which the caller
// settles a receive as usual.
package presentment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
)

// Attempter is the narrow interface a presentment channel exposes to the
// core: did the interaction with the counterparty succeed.
type Attempter interface {
	Attempt(amount string, counterparty string) bool
}

// Simulated approves attempts at a fixed rate, the way the demo hardware
// flows do. Rate 1.0 always succeeds, 0.0 always fails.
type Simulated struct {
	SuccessRate float64
}

// NewSimulated builds a simulated channel with the given success rate.
func NewSimulated(successRate float64) *Simulated {
	return &Simulated{SuccessRate: successRate}
}

// Attempt rolls the dice. Amount and counterparty are ignored; the
// simulation carries no protocol semantics. The global source is safe for
// concurrent handlers.
func (s *Simulated) Attempt(amount string, counterparty string) bool {
	return mrand.Float64() < s.SuccessRate
}

// DialCode is a one-time dial-code handed to the payer.
type DialCode struct {
	Code      string `json:"ussdCode"`
	Amount    string `json:"amount"`
	ExpiresIn string `json:"expiresIn"`
}

// GenerateDialCode mints a *123*NNNNNN# code for the given amount. The
// six digits come from crypto/rand so codes are not guessable in sequence.
func GenerateDialCode(amount string) (*DialCode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return nil, fmt.Errorf("failed to generate dial code: %w", err)
	}
	return &DialCode{
		Code:      fmt.Sprintf("*123*%06d#", n.Int64()+100000),
		Amount:    amount,
		ExpiresIn: "5 minutes",
	}, nil
}
