package tracker

import (
	"context"
	"time"

	"lobbywatch/internal/gamesource"

	"github.com/rs/zerolog/log"
)

// PlayerCrawl records the recent games of tracked players. A player that
// fails to load is logged and skipped until the next recheck.
type PlayerCrawl struct {
	source    gamesource.Source
	store     PlayerStore
	recheck   time.Duration
	itemDelay time.Duration
	now       func() time.Time
	sleep     sleepFunc
}

func NewPlayerCrawl(source gamesource.Source, st PlayerStore, recheck time.Duration) *PlayerCrawl {
	if recheck <= 0 {
		recheck = 30 * time.Minute
	}
	return &PlayerCrawl{
		source:    source,
		store:     st,
		recheck:   recheck,
		itemDelay: time.Second,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func (c *PlayerCrawl) Run(ctx context.Context) error {
	now := c.now()
	ids, err := c.store.ClaimTrackedPlayersDue(ctx, now.Add(-c.recheck), now)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	log.Info().Int("count", len(ids)).Msg("checking tracked players")
	for i, playerID := range ids {
		if err := c.crawlOne(ctx, playerID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("player_id", playerID).Msg("tracked player update failed")
		}
		if i < len(ids)-1 {
			if err := c.sleep(ctx, c.itemDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *PlayerCrawl) crawlOne(ctx context.Context, playerID string) error {
	games, err := c.source.FetchPlayerGames(ctx, playerID)
	if err != nil {
		return err
	}
	for _, g := range games {
		if g.GameID == "" || g.ClientID == "" {
			continue
		}
		added, err := c.store.LinkTrackedPlayerGame(ctx, playerID, g.GameID, g.ClientID)
		if err != nil {
			return err
		}
		if added {
			log.Info().Str("player_id", playerID).Str("game_id", g.GameID).Str("client_id", g.ClientID).Msg("tracked player game recorded")
		}
	}
	return nil
}
