package store

import (
	"encoding/json"
	"fmt"
)

type Lobby struct {
	GameID           string          `json:"game_id"`
	Teams            TeamsMode       `json:"teams"`
	MaxPlayers       int             `json:"max_players"`
	MapName          string          `json:"map_name"`
	ApproxNumPlayers int             `json:"approx_num_players"`
	FirstSeenUnixSec int64           `json:"first_seen_unix_sec"`
	LastSeenUnixSec  int64           `json:"last_seen_unix_sec"`
	Completed        bool            `json:"completed"`
	ConfigJSON       json.RawMessage `json:"lobby_config"`
}

type FinishedGame struct {
	GameID          string          `json:"game_id"`
	ResultJSON      json.RawMessage `json:"result"`
	IsOK            bool            `json:"is_ok"`
	RecordedUnixSec int64           `json:"recorded_unix_sec"`
}

type AnalysisEntry struct {
	ID               string         `json:"id"`
	GameID           string         `json:"game_id"`
	RequestedBy      *string        `json:"requested_by,omitempty"`
	RequestedUnixSec int64          `json:"requested_unix_sec"`
	StartedUnixSec   *int64         `json:"started_unix_sec,omitempty"`
	Status           AnalysisStatus `json:"status"`
}

type LobbyFilter struct {
	Completed *bool
	MapName   string
	// Bounds on first_seen_unix_sec, zero means unbounded.
	After  int64
	Before int64
	Limit  int
	Offset int
}

// PlayerUpdate is one packed per-tick row; counters are codec-encoded.
type PlayerUpdate struct {
	Tick       int16
	SmallID    int16
	ClientID   *string
	Name       string
	TilesOwned int16
	Gold       int16
	Workers    int16
	Troops     int16
}

type TeamsKind uint8

const (
	TeamsFFA TeamsKind = iota
	TeamsFixed
	TeamsParties
)

// TeamsMode is FFA, Teams{n} or Parties{size}. Size is the team count for
// TeamsFixed and the party size for TeamsParties.
type TeamsMode struct {
	Kind TeamsKind
	Size int
}

func FFA() TeamsMode { return TeamsMode{Kind: TeamsFFA} }
func Teams(n int) TeamsMode { return TeamsMode{Kind: TeamsFixed, Size: n} }
func Parties(size int) TeamsMode { return TeamsMode{Kind: TeamsParties, Size: size} }

// Int is the column encoding: FFA=0, Teams=n, Parties=-size.
func (t TeamsMode) Int() int32 {
	switch t.Kind {
	case TeamsFixed:
		return int32(t.Size)
	case TeamsParties:
		return -int32(t.Size)
	default:
		return 0
	}
}

func TeamsFromInt(v int32) TeamsMode {
	switch {
	case v > 0:
		return Teams(int(v))
	case v < 0:
		return Parties(int(-v))
	default:
		return FFA()
	}
}

func (t TeamsMode) String() string {
	switch t.Kind {
	case TeamsFixed:
		return fmt.Sprintf("teams(%d)", t.Size)
	case TeamsParties:
		return fmt.Sprintf("parties(%d)", t.Size)
	default:
		return "ffa"
	}
}

func (t TeamsMode) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TeamsFixed:
		return json.Marshal(struct {
			Group    string `json:"group"`
			NumTeams int    `json:"num_teams"`
		}{"Teams", t.Size})
	case TeamsParties:
		return json.Marshal(struct {
			Group     string `json:"group"`
			PartySize int    `json:"party_size"`
		}{"Parties", t.Size})
	default:
		return []byte(`{"group":"FFA"}`), nil
	}
}

type AnalysisStatus string

const (
	AnalysisPending          AnalysisStatus = "Pending"
	AnalysisRunning          AnalysisStatus = "Running"
	AnalysisCompleted        AnalysisStatus = "Completed"
	AnalysisNotFound         AnalysisStatus = "NotFound"
	AnalysisFailed           AnalysisStatus = "Failed"
	AnalysisStalled          AnalysisStatus = "Stalled"
	AnalysisCancelled        AnalysisStatus = "Cancelled"
	AnalysisCompletedAlready AnalysisStatus = "CompletedAlready"
)

var analysisTransitions = map[AnalysisStatus][]AnalysisStatus{
	AnalysisPending: {AnalysisRunning, AnalysisFailed, AnalysisNotFound, AnalysisCancelled},
	AnalysisRunning: {
		AnalysisCompleted, AnalysisFailed, AnalysisStalled,
		AnalysisNotFound, AnalysisCompletedAlready, AnalysisCancelled,
	},
}

func (s AnalysisStatus) Valid() bool {
	switch s {
	case AnalysisPending, AnalysisRunning, AnalysisCompleted, AnalysisNotFound,
		AnalysisFailed, AnalysisStalled, AnalysisCancelled, AnalysisCompletedAlready:
		return true
	}
	return false
}

// Requeueable reports whether a new request may put an entry in status s
// back to Pending: the analysis ended without a result.
func (s AnalysisStatus) Requeueable() bool {
	switch s {
	case AnalysisStalled, AnalysisFailed, AnalysisNotFound:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s AnalysisStatus) Terminal() bool {
	return len(analysisTransitions[s]) == 0
}

func (s AnalysisStatus) CanTransition(to AnalysisStatus) bool {
	for _, next := range analysisTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// predecessors lists the statuses from which to is reachable in one step.
func predecessors(to AnalysisStatus) []string {
	var out []string
	for _, from := range []AnalysisStatus{AnalysisPending, AnalysisRunning} {
		if from.CanTransition(to) {
			out = append(out, string(from))
		}
	}
	return out
}
