// Package evaluator bridges resolved hands and the ledger state to an
// external expected-value process. It computes nothing itself.
package evaluator

import (
	"context"

	"github.com/ayusman/cardsight/internal/card"
)

// Request is sent to the evaluator process as JSON on stdin.
type Request struct {
	PlayerHands [][]string     `json:"player_hands"`
	DealerHand  []string       `json:"dealer_hand"`
	Counts      map[string]int `json:"counts"`
	TrueCount   float64        `json:"true_count"`
}

// Advice is the evaluator's answer for one player hand.
type Advice struct {
	Hand int                `json:"hand"`
	EVs  map[string]float64 `json:"evs"`
	Best string             `json:"best"`
}

// Response is read from the evaluator process stdout.
type Response struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Advice  []Advice `json:"advice,omitempty"`
}

// Evaluator produces advice for a table state.
type Evaluator interface {
	Evaluate(ctx context.Context, req *Request) (*Response, error)
}

// NewRequest converts ranks and ledger counts to a Request.
func NewRequest(hands [][]card.Rank, dealer []card.Rank, remaining map[card.Rank]int, trueCount float64) *Request {
	req := &Request{
		PlayerHands: make([][]string, len(hands)),
		DealerHand:  rankStrings(dealer),
		Counts:      make(map[string]int, len(remaining)),
		TrueCount:   trueCount,
	}
	for i, h := range hands {
		req.PlayerHands[i] = rankStrings(h)
	}
	for r, n := range remaining {
		req.Counts[r.String()] = n
	}
	return req
}

func rankStrings(ranks []card.Rank) []string {
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.String()
	}
	return out
}
