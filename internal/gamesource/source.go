// Package gamesource talks to the public game service: the open-lobby list,
// finished game results and player histories.
package gamesource

import (
	"context"

	"github.com/goccy/go-json"
)

// Source is the read-only view of the external game service.
type Source interface {
	ListOpenLobbies(ctx context.Context) ([]Lobby, error)
	// FetchGameResult returns the raw result document. Error documents such
	// as {"error":"Not found"} are returned as payloads, not errors.
	FetchGameResult(ctx context.Context, gameID string) (json.RawMessage, error)
	FetchPlayerGames(ctx context.Context, playerID string) ([]PlayerGame, error)
}

type Lobby struct {
	GameID       string
	NumClients   int
	MsUntilStart int64
	Config       GameConfig
	// RawConfig is the lobby's gameConfig object as received.
	RawConfig json.RawMessage
}

type GameConfig struct {
	GameMap     string          `json:"gameMap"`
	GameType    string          `json:"gameType"`
	GameMode    string          `json:"gameMode"`
	MaxPlayers  int             `json:"maxPlayers"`
	PlayerTeams json.RawMessage `json:"playerTeams,omitempty"`
}

type PlayerGame struct {
	GameID   string `json:"gameId"`
	ClientID string `json:"clientId"`
}

type lobbiesResponse struct {
	Lobbies []Lobby `json:"lobbies"`
}

type playerResponse struct {
	Games []PlayerGame `json:"games"`
}

func (l *Lobby) UnmarshalJSON(b []byte) error {
	var wire struct {
		GameID       string          `json:"gameID"`
		NumClients   int             `json:"numClients"`
		MsUntilStart int64           `json:"msUntilStart"`
		GameConfig   json.RawMessage `json:"gameConfig"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*l = Lobby{
		GameID:       wire.GameID,
		NumClients:   wire.NumClients,
		MsUntilStart: wire.MsUntilStart,
	}
	if len(wire.GameConfig) == 0 || string(wire.GameConfig) == "null" {
		return nil
	}
	if err := json.Unmarshal(wire.GameConfig, &l.Config); err != nil {
		return err
	}
	l.RawConfig = append(json.RawMessage(nil), wire.GameConfig...)
	return nil
}
