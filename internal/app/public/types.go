package public

import (
	"encoding/json"

	"lobbywatch/internal/store"
)

type LobbiesResponse struct {
	Items  []LobbyItem `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type LobbyItem struct {
	GameID           string          `json:"game_id"`
	Teams            store.TeamsMode `json:"teams"`
	MaxPlayers       int             `json:"max_players"`
	MapName          string          `json:"map_name"`
	ApproxNumPlayers int             `json:"approx_num_players"`
	FirstSeenUnixSec int64           `json:"first_seen_unix_sec"`
	LastSeenUnixSec  int64           `json:"last_seen_unix_sec"`
	Completed        bool            `json:"completed"`
}

// LobbyDetail adds the raw lobby configuration and any analysis state.
type LobbyDetail struct {
	LobbyItem
	Config   json.RawMessage `json:"lobby_config,omitempty"`
	Analysis *AnalysisItem   `json:"analysis,omitempty"`
}

type GameResponse struct {
	GameID          string          `json:"game_id"`
	IsOK            bool            `json:"is_ok"`
	RecordedUnixSec int64           `json:"recorded_unix_sec"`
	Result          json.RawMessage `json:"result"`
}

type AnalysisItem struct {
	GameID           string `json:"game_id"`
	Status           string `json:"status"`
	RequestedUnixSec int64  `json:"requested_unix_sec"`
	StartedUnixSec   *int64 `json:"started_unix_sec,omitempty"`
}

type AnalysisQueueResponse struct {
	Items []AnalysisQueueItem `json:"items"`
}

type AnalysisQueueItem struct {
	GameID       string `json:"game_id"`
	Status       string `json:"status"`
	QueuedForSec int64  `json:"queued_for_sec"`
}

type PlayerStatsResponse struct {
	GameID string      `json:"game_id"`
	Ticks  []TickStats `json:"ticks"`
}

type TickStats struct {
	Tick    int16         `json:"tick"`
	Players []PlayerStats `json:"players"`
}

type PlayerStats struct {
	SmallID    int16   `json:"small_id"`
	ClientID   *string `json:"client_id,omitempty"`
	Name       string  `json:"name"`
	TilesOwned uint64  `json:"tiles_owned"`
	Gold       uint64  `json:"gold"`
	Workers    uint64  `json:"workers"`
	Troops     uint64  `json:"troops"`
}
