package event

// Events raised inside a match tick and handled in the persist phase.

// CurrencyAwarded credits a user's wallet.
type CurrencyAwarded struct {
	MatchID  string
	UserID   string
	Bounty   int
	Metadata map[string]any
}

// XPAwarded adds experience to a user's active character.
type XPAwarded struct {
	MatchID string
	UserID  string
	XP      int
}

// ItemGranted adds an item to a user's inventory (NPC drop).
type ItemGranted struct {
	MatchID string
	UserID  string
	ItemID  int
}

// RoundEnded is emitted once per finished round.
type RoundEnded struct {
	MatchID string
	Round   int
	Reason  string
}
