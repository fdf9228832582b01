package entity

// Match is a paired two-player game as announced by the service.
type Match struct {
	ID      string            `json:"match_id"`
	Players map[string]Symbol `json:"players"`
	Size    int               `json:"board_size"`
}

func (that *Match) SymbolOf(deviceID string) Symbol {
	return that.Players[deviceID]
}

// OpponentOf - returns the other device id, empty when deviceID is not a player.
func (that *Match) OpponentOf(deviceID string) string {
	if _, ok := that.Players[deviceID]; !ok {
		return ""
	}

	for id := range that.Players {
		if id != deviceID {
			return id
		}
	}

	return ""
}

// MatchState is the authoritative state of a match at the moment it was fetched.
type MatchState struct {
	MatchID      string            `json:"match_id"`
	Board        Board             `json:"board"`
	Turn         string            `json:"turn,omitempty"`
	Winner       Symbol            `json:"winner,omitempty"`
	Players      map[string]Symbol `json:"players,omitempty"`
	OpponentLeft bool              `json:"opponent_left,omitempty"`
}

func (that *MatchState) IsFinished() bool {
	return that.Winner != SymbolNone
}

func (that *MatchState) IsTurnOf(deviceID string) bool {
	return deviceID != "" && that.Turn == deviceID
}

// MoveResult is the service answer to an accepted move.
type MoveResult struct {
	Board    Board
	NextTurn string
	Winner   Symbol
}

type DeviceInfo struct {
	Connected bool    `json:"connected"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Ratio     float64 `json:"ratio"`
}

type StatsReset struct {
	Message string `json:"message"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
}
