package gamesource

import (
	"bytes"
	"fmt"
	"strconv"

	"lobbywatch/internal/store"

	"github.com/goccy/go-json"
)

// ParseTeams decodes playerTeams, which is either a party label ("Duos",
// "Trios", "Quads"), a team count, or absent for free-for-all.
func ParseTeams(raw json.RawMessage) (store.TeamsMode, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return store.FFA(), nil
	}
	if raw[0] == '"' {
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return store.FFA(), err
		}
		switch label {
		case "Duos":
			return store.Parties(2), nil
		case "Trios":
			return store.Parties(3), nil
		case "Quads":
			return store.Parties(4), nil
		}
		if n, err := strconv.Atoi(label); err == nil && n > 0 {
			return store.Teams(n), nil
		}
		return store.FFA(), fmt.Errorf("unknown playerTeams %q", label)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return store.FFA(), fmt.Errorf("playerTeams %s: %w", raw, err)
	}
	if n <= 0 {
		return store.FFA(), fmt.Errorf("playerTeams %d out of range", n)
	}
	return store.Teams(n), nil
}

// Teams is ParseTeams on the config's playerTeams.
func (c GameConfig) Teams() (store.TeamsMode, error) {
	return ParseTeams(c.PlayerTeams)
}
