package card

import "strconv"

// BlackjackValue returns the hard value of a single rank: aces count 1,
// faces 10. Unknown is worth 0.
func (r Rank) BlackjackValue() int {
	switch r {
	case Ace:
		return 1
	case Jack, Queen, King:
		return 10
	case Unknown:
		return 0
	}
	v, err := strconv.Atoi(string(r))
	if err != nil {
		return 0
	}
	return v
}

// HandTotal returns the blackjack total of a hand. Aces are promoted from 1
// to 11 one at a time while the total stays at or below 21.
func HandTotal(hand []Rank) int {
	total := 0
	aces := 0
	for _, r := range hand {
		if r == Ace {
			aces++
		}
		total += r.BlackjackValue()
	}

	for aces > 0 && total+10 <= 21 {
		total += 10
		aces--
	}

	return total
}
