// Package model defines shared data structures.
package model

import "time"

// Game identifies a game variant.
type Game string

// Supported game variants.
const (
	GameRecall Game = "recall"
	GameOddOne Game = "oddone"
)

// RecallConfig defines settings for the object-location game.
type RecallConfig struct {
	Rounds      int
	MinItems    int
	MaxItems    int
	GridCols    int
	GridRows    int
	Bias        float64
	CatalogPath string
}

// OddOneConfig defines settings for the odd-one-out game.
type OddOneConfig struct {
	Rounds      int
	Bias        float64
	CatalogPath string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Game        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Plain       bool
}

// Progress holds the per-game fields that survive across sessions.
type Progress struct {
	Game              Game
	LastAccuracy      float64
	LastAvgResponseMs float64
	SessionsToday     int
	LastSessionDate   string
	TotalSessions     int
}

// SessionRecord captures a completed play session.
type SessionRecord struct {
	StartedAt    time.Time
	EndedAt      time.Time
	Game         Game
	Rounds       int
	Trials       int
	Correct      int
	Confusable   int
	Miss         int
	AvgLatencyMs int64
	EndedEarly   bool
}

// RoundRecord stores per-round results within a session.
type RoundRecord struct {
	Index        int
	Strategy     string
	Trials       int
	Correct      int
	Incorrect    int
	Confusable   int
	AvgLatencyMs int64
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID    int64
	EndedAt      time.Time
	Game         Game
	Rounds       int
	Correct      int
	Incorrect    int
	Confusable   int
	AvgLatencyMs int64
	DurationMs   int64
	EndedEarly   bool
}

// RoundAggregate aggregates round results by round index across sessions.
type RoundAggregate struct {
	Index        int
	Plays        int
	Correct      int
	Incorrect    int
	Confusable   int
	LatencySumMs int64
}
