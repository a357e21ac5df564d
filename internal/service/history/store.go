package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sandevgo/finbot/internal/config"
	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/pkg/log"
)

// cacheSize bounds how many per-user logs stay in memory. Evicted logs are
// transparently reloaded from the repository on next access.
const cacheSize = 512

// Store keeps the working copy of each user's conversation and writes it
// through to the durable repository at reply boundaries.
type Store struct {
	repo core.TurnsRepository

	mu    sync.Mutex
	cache *lru.Cache[int64, []core.Turn]
	now   func() time.Time
}

func NewStore(repo core.TurnsRepository) (*Store, error) {
	cache, err := lru.New[int64, []core.Turn](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	return &Store{repo: repo, cache: cache, now: time.Now}, nil
}

// Ensure makes the user's log available in memory. A user with no durable
// history gets a fresh log seeded with the role prompt and the current wall
// clock; neither seed turn is ever shown to the user.
func (s *Store) Ensure(ctx context.Context, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, userID)
}

// loadLocked returns the user's log, reloading it from the repository when
// the cache has dropped it. The durable log is the source of truth after an
// eviction; seeding applies only to users with no durable history at all.
// Callers hold s.mu.
func (s *Store) loadLocked(ctx context.Context, userID int64) []core.Turn {
	if turns, ok := s.cache.Get(userID); ok {
		return turns
	}

	turns, err := s.repo.Load(ctx, userID)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to load history, starting fresh")
		turns = nil
	}

	if len(turns) == 0 {
		turns = []core.Turn{
			{Role: core.RoleUser, Content: rolePrompt},
			{Role: core.RoleUser, Content: fmt.Sprintf("Сейчас %s.", s.now().Format(seedTimeLayout))},
		}
	}

	s.cache.Add(userID, turns)
	return turns
}

// Append records one turn and evicts the oldest beyond the history cap.
func (s *Store) Append(ctx context.Context, userID int64, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.loadLocked(ctx, userID)
	turns = append(turns, core.Turn{Role: role, Content: content})
	if len(turns) > core.MaxHistory {
		turns = turns[len(turns)-core.MaxHistory:]
	}
	s.cache.Add(userID, turns)
}

// Prompt flattens the whole log into the single completion prompt.
func (s *Store) Prompt(ctx context.Context, userID int64) string {
	s.mu.Lock()
	turns := s.loadLocked(ctx, userID)
	s.mu.Unlock()

	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	prompt := strings.Join(parts, "\n")

	if config.IsDebug() {
		log.FromCtx(ctx).Debug().
			Int64("user_id", userID).
			Int("turns", len(turns)).
			Int("tokens", countTokens(prompt)).
			Msg("assembled prompt")
	}
	return prompt
}

// Persist writes the in-memory log through to the repository. Failures are
// logged and swallowed so a storage hiccup never loses the user's reply.
func (s *Store) Persist(ctx context.Context, userID int64) {
	s.mu.Lock()
	turns, ok := s.cache.Get(userID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := s.repo.Save(ctx, userID, turns); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to persist history")
		return
	}
	log.FromCtx(ctx).Info().Int64("user_id", userID).Msg("history persisted")
}

// Reset drops the user's log from memory and from durable storage. Resetting
// an absent log succeeds.
func (s *Store) Reset(ctx context.Context, userID int64) error {
	s.mu.Lock()
	s.cache.Remove(userID)
	s.mu.Unlock()

	return s.repo.Delete(ctx, userID)
}
