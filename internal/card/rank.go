// Package card defines the playing-card rank alphabet used by detections,
// the tracker and the depletion ledger.
package card

// Rank is a card rank symbol such as "A", "10" or "K".
type Rank string

// Rank symbols. Suits are not distinguished by the detector.
const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"

	// Unknown marks a detector class that maps to no rank.
	Unknown Rank = "?"
)

// NumRanks is the size of the rank alphabet.
const NumRanks = 13

// ranks is ordered by detector class index.
var ranks = [NumRanks]Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var hiLo = map[Rank]int{
	Two: 1, Three: 1, Four: 1, Five: 1, Six: 1,
	Seven: 0, Eight: 0, Nine: 0,
	Ten: -1, Jack: -1, Queen: -1, King: -1, Ace: -1,
}

// Ranks returns the rank alphabet in detector class-index order.
func Ranks() []Rank {
	out := make([]Rank, NumRanks)
	copy(out, ranks[:])
	return out
}

// FromClassIndex maps a detector class index (0 = A ... 12 = K) to a rank.
func FromClassIndex(idx int) Rank {
	if idx < 0 || idx >= NumRanks {
		return Unknown
	}
	return ranks[idx]
}

// ParseRank returns the rank named by s, or Unknown.
func ParseRank(s string) Rank {
	r := Rank(s)
	if r.Valid() {
		return r
	}
	return Unknown
}

// Valid reports whether r belongs to the rank alphabet.
func (r Rank) Valid() bool {
	_, ok := hiLo[r]
	return ok
}

// HiLo returns the Hi-Lo counting weight of r: +1 for 2-6, 0 for 7-9 and
// -1 for tens, faces and aces. Unknown weighs 0.
func (r Rank) HiLo() int {
	return hiLo[r]
}

func (r Rank) String() string {
	return string(r)
}
