package gamesource

import (
	"context"
	"errors"
	"sync"

	"github.com/goccy/go-json"
)

var notFoundPayload = json.RawMessage(`{"error":"Not found"}`)

// Fake is a scripted Source. ListOpenLobbies replays Polls in order and then
// repeats the last one; results default to the not-found payload.
type Fake struct {
	mu      sync.Mutex
	polls   []FakePoll
	next    int
	games   map[string]json.RawMessage
	gameErr map[string]error
	players map[string][]PlayerGame
	fetched []string
}

type FakePoll struct {
	Lobbies []Lobby
	Err     error
}

func NewFake() *Fake {
	return &Fake{
		games:   map[string]json.RawMessage{},
		gameErr: map[string]error{},
		players: map[string][]PlayerGame{},
	}
}

func (f *Fake) AddPoll(p FakePoll) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls = append(f.polls, p)
}

func (f *Fake) SetGame(gameID string, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games[gameID] = json.RawMessage(payload)
}

func (f *Fake) SetGameError(gameID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gameErr[gameID] = err
}

func (f *Fake) SetPlayerGames(playerID string, games []PlayerGame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[playerID] = games
}

// Fetched lists game ids passed to FetchGameResult, in call order.
func (f *Fake) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func (f *Fake) ListOpenLobbies(ctx context.Context) ([]Lobby, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.polls) == 0 {
		return nil, nil
	}
	p := f.polls[f.next]
	if f.next < len(f.polls)-1 {
		f.next++
	}
	return p.Lobbies, p.Err
}

func (f *Fake) FetchGameResult(ctx context.Context, gameID string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, gameID)
	if err := f.gameErr[gameID]; err != nil {
		return nil, err
	}
	if payload, ok := f.games[gameID]; ok {
		return payload, nil
	}
	return notFoundPayload, nil
}

func (f *Fake) FetchPlayerGames(ctx context.Context, playerID string) ([]PlayerGame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	games, ok := f.players[playerID]
	if !ok {
		return nil, errors.New("player not found")
	}
	return append([]PlayerGame(nil), games...), nil
}
