package tracker

import (
	"context"
	"errors"
	"time"

	"lobbywatch/internal/gamesource"
	"lobbywatch/internal/store"

	"github.com/rs/zerolog/log"
)

var ErrNoLobbiesFound = errors.New("no open lobbies found")

const (
	minPollMs    = 3500
	maxPollMs    = 15500
	pollMarginMs = 500
)

// NextPollDelay is how long to wait before polling the lobby list again:
// sooner as the lobby fills or nears its start, bounded to [3s, 15s].
func NextPollDelay(msUntilStart int64, numClients, maxPlayers int) time.Duration {
	remaining := int64(maxPlayers - numClients)
	if remaining < 0 {
		remaining = 0
	}
	ms := min(msUntilStart, maxPollMs, remaining*1000)
	ms = max(ms, minPollMs) - pollMarginMs
	return time.Duration(ms) * time.Millisecond
}

// Discovery follows the head of the open-lobby list. Its cursor is private
// to the task and reset whenever Run starts over.
type Discovery struct {
	source gamesource.Source
	store  LobbyWriter
	now    func() time.Time
	sleep  sleepFunc

	lastGameID     string
	expectRollover bool
}

func NewDiscovery(source gamesource.Source, st LobbyWriter) *Discovery {
	return &Discovery{
		source: source,
		store:  st,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Run polls until ctx ends or a step fails.
func (d *Discovery) Run(ctx context.Context) error {
	d.lastGameID = ""
	d.expectRollover = true
	for {
		delay, err := d.Step(ctx)
		if err != nil {
			return err
		}
		if err := d.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Step performs one poll and returns the delay before the next.
func (d *Discovery) Step(ctx context.Context) (time.Duration, error) {
	lobbies, err := d.source.ListOpenLobbies(ctx)
	if err != nil {
		return 0, err
	}
	if len(lobbies) == 0 {
		return 0, ErrNoLobbiesFound
	}
	head := lobbies[0]

	if head.GameID != d.lastGameID {
		log.Info().
			Str("game_id", head.GameID).
			Bool("expected", d.expectRollover).
			Msg("new lobby")
		if !d.expectRollover && d.lastGameID != "" {
			// The previous lobby closed before its start time; assume it filled.
			if err := d.store.MarkLobbyFull(ctx, d.lastGameID); err != nil {
				return 0, err
			}
			rolloverRepairs.Inc()
		}
		d.lastGameID = head.GameID
	}

	teams, err := head.Config.Teams()
	if err != nil {
		log.Warn().Err(err).Str("game_id", head.GameID).Msg("unrecognized team mode, storing as ffa")
	}
	if err := d.store.UpsertLobby(ctx, store.Lobby{
		GameID:           head.GameID,
		Teams:            teams,
		MaxPlayers:       head.Config.MaxPlayers,
		MapName:          head.Config.GameMap,
		ApproxNumPlayers: head.NumClients,
		LastSeenUnixSec:  d.now().Unix(),
		ConfigJSON:       head.RawConfig,
	}); err != nil {
		return 0, err
	}
	lobbyObservations.Inc()

	delay := NextPollDelay(head.MsUntilStart, head.NumClients, head.Config.MaxPlayers)
	d.expectRollover = delay.Milliseconds() > head.MsUntilStart
	log.Debug().
		Str("game_id", head.GameID).
		Str("map", head.Config.GameMap).
		Str("teams", teams.String()).
		Int("players", head.NumClients).
		Int("max_players", head.Config.MaxPlayers).
		Int64("starts_in_ms", head.MsUntilStart).
		Int64("wait_ms", delay.Milliseconds()).
		Msg("lobby observed")
	return delay, nil
}
