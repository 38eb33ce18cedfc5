package ch

import "log/slog"

// Config tunes the contraction order and the witness searches.
type Config struct {
	// Witness search bounds. A search that hits a bound gives up, which can
	// only add shortcuts, never lose a shortest path.
	WitnessMaxSettled int
	WitnessMaxHops    int

	// PeriodicUpdateInterval recomputes every remaining priority after this
	// many contractions. 0 disables periodic updates.
	PeriodicUpdateInterval int

	// Priority term weights.
	EdgeDifferenceWeight      int
	ContractedNeighborsWeight int
	OriginalEdgesWeight       int
	LevelWeight               int

	Logger *slog.Logger
}

// DefaultConfig returns the weights used by most road graphs.
func DefaultConfig() Config {
	return Config{
		WitnessMaxSettled:         500,
		WitnessMaxHops:            5,
		PeriodicUpdateInterval:    0,
		EdgeDifferenceWeight:      2,
		ContractedNeighborsWeight: 1,
		OriginalEdgesWeight:       1,
		LevelWeight:               5,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
