package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	domsvc "BitDCA/internal/domain/service"
	"BitDCA/internal/service/cache"
	"BitDCA/internal/services/risk"
)

// Session pins one ingestion so amount edits recompute without refetching.
// It is immutable once opened.
type Session struct {
	ID         string            `json:"id"`
	Strategy   string            `json:"strategy"`
	Assessment models.Assessment `json:"assessment"`
	CreatedAt  time.Time         `json:"created_at"`

	strategy domsvc.RiskStrategy
}

// Recommend maps a raw amount to a recommendation from the pinned score.
// A nil recommendation with nil error means the amount was empty or zero.
func (s *Session) Recommend(raw string) (*models.Recommendation, error) {
	amount, present, err := risk.ValidateAmount(raw)
	if err != nil || !present {
		return nil, err
	}
	score := s.Assessment.Score
	return risk.Recommend(amount, s.Assessment.Signals.SpotPrice, &score, s.strategy), nil
}

// SessionManager opens sessions and recomputes recommendations from them.
type SessionManager struct {
	ing      *Ingestor
	sessions *cache.TTLCache[*Session]
	metrics  domrepo.Metrics
}

func NewSessionManager(ing *Ingestor, ttl time.Duration, m domrepo.Metrics) *SessionManager {
	if m == nil {
		m = nopMetrics{}
	}
	return &SessionManager{ing: ing, sessions: cache.NewTTLCache[*Session](ttl), metrics: m}
}

// Open performs the session's single ingestion.
func (m *SessionManager) Open(ctx context.Context, strategy string) (*Session, error) {
	a, strat, err := m.ing.Assess(ctx, strategy)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:         uuid.NewString(),
		Strategy:   strat.Name(),
		Assessment: a,
		CreatedAt:  a.AsOf,
		strategy:   strat,
	}
	m.sessions.Set(s.ID, s)
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrSessionNotFound)
	}
	return s, nil
}

// Recommend recomputes synchronously from the session's cached state.
func (m *SessionManager) Recommend(id, raw string) (*models.Recommendation, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	rec, err := s.Recommend(raw)
	if rec != nil {
		m.metrics.RecordRecommendation(rec.Strategy)
	}
	return rec, err
}

// Quote is the one-shot path: validate, ingest, recommend.
func (m *SessionManager) Quote(ctx context.Context, strategy, raw string) (models.Assessment, *models.Recommendation, error) {
	if _, _, err := risk.ValidateAmount(raw); err != nil {
		return models.Assessment{}, nil, err
	}
	a, strat, err := m.ing.Assess(ctx, strategy)
	if err != nil {
		return models.Assessment{}, nil, err
	}
	s := &Session{Assessment: a, strategy: strat}
	rec, err := s.Recommend(raw)
	if rec != nil {
		m.metrics.RecordRecommendation(rec.Strategy)
	}
	return a, rec, err
}

// Sweep drops expired sessions.
func (m *SessionManager) Sweep() int { return m.sessions.Sweep() }

// RunSweeper sweeps every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}
