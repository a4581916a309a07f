// Package store is a supplemental durable audit trail for completed
// sessions, adapted from the teacher's internal/database.Database: same
// gorm-over-sqlite shape, trimmed down to the two tables this system
// needs and without the postgres branch the teacher carried for a
// different deployment target.
package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// SessionRecord is the durable row for one completed game.
type SessionRecord struct {
	GameID       string `gorm:"primaryKey"`
	StartTick    int64
	EndTick      int64
	PeakPrice    decimal.Decimal `gorm:"type:decimal(20,9)"`
	RuggedAtTick *int64
	Truncated    bool
	CreatedAt    time.Time
}

// TradeRecord is the durable row for one closed position or resolved
// sidebet, kept for post-session analysis.
type TradeRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	GameID     string `gorm:"index"`
	Kind       string // "position" or "sidebet"
	AmountSOL  decimal.Decimal `gorm:"type:decimal(20,9)"`
	EntryPrice decimal.Decimal `gorm:"type:decimal(20,9)"`
	ExitPrice  decimal.Decimal `gorm:"type:decimal(20,9)"`
	PnLSOL     decimal.Decimal `gorm:"type:decimal(20,9)"`
	Outcome    string
	CreatedAt  time.Time
}

type Store struct {
	db *gorm.DB

	mu            sync.Mutex
	currentGameID string
}

func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SessionRecord{}, &TradeRecord{}); err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("store: session audit database initialized (sqlite)")
	return &Store{db: db}, nil
}

// SaveSession upserts a completed game's summary.
func (s *Store) SaveSession(session model.GameSession) error {
	rec := SessionRecord{
		GameID:       session.GameID,
		StartTick:    session.StartTick,
		EndTick:      session.EndTick,
		PeakPrice:    session.PeakPrice,
		RuggedAtTick: session.RuggedAtTick,
		Truncated:    session.Truncated,
		CreatedAt:    time.Now(),
	}
	return s.db.Save(&rec).Error
}

// SavePosition records a closed position for later analysis.
func (s *Store) SavePosition(gameID string, pos model.Position) error {
	rec := TradeRecord{
		GameID:     gameID,
		Kind:       "position",
		AmountSOL:  pos.AmountSOL,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  pos.ExitPrice,
		PnLSOL:     pos.RealizedPnLSOL,
		Outcome:    string(pos.CloseReason),
		CreatedAt:  time.Now(),
	}
	return s.db.Create(&rec).Error
}

// SaveSidebet records a resolved sidebet for later analysis.
func (s *Store) SaveSidebet(gameID string, sb model.Sidebet) error {
	rec := TradeRecord{
		GameID:    gameID,
		Kind:      "sidebet",
		AmountSOL: sb.AmountSOL,
		PnLSOL:    sb.SidebetPnL,
		Outcome:   sb.Status.String(),
		CreatedAt: time.Now(),
	}
	return s.db.Create(&rec).Error
}

// RecentSessions satisfies ringbuffer.WarmStarter.
func (s *Store) RecentSessions(limit int) ([]model.GameSession, error) {
	var recs []SessionRecord
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}

	// Newest-first from the query; returned oldest-to-newest.
	out := make([]model.GameSession, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = model.GameSession{
			GameID:       r.GameID,
			StartTick:    r.StartTick,
			EndTick:      r.EndTick,
			PeakPrice:    r.PeakPrice,
			RuggedAtTick: r.RuggedAtTick,
			Truncated:    r.Truncated,
		}
	}
	return out, nil
}

// Subscribe wires the store to the bus so it durably records every
// PositionClosed, SidebetResolved, and GameEnd event without the ledger
// or replay engine needing to know it exists. Game ID is tracked off the
// GameStart event since the ledger's own payloads are scoped to a single
// game and don't carry one.
func (s *Store) Subscribe(b *bus.Bus) {
	_, startCh := b.Subscribe(bus.GameStart)
	_, posCh := b.Subscribe(bus.PositionClosed)
	_, sbCh := b.Subscribe(bus.SidebetResolved)
	_, endCh := b.Subscribe(bus.GameEnd)

	go func() {
		for ev := range startCh {
			start, ok := ev.Payload.(model.GameStartPayload)
			if !ok {
				continue
			}
			s.mu.Lock()
			s.currentGameID = start.GameID
			s.mu.Unlock()
		}
	}()
	go func() {
		for ev := range posCh {
			p, ok := ev.Payload.(ledger.PositionEventPayload)
			if !ok {
				continue
			}
			if err := s.SavePosition(s.gameID(), p.Position); err != nil {
				log.Warn().Err(err).Msg("store: failed to persist closed position")
			}
		}
	}()
	go func() {
		for ev := range sbCh {
			p, ok := ev.Payload.(ledger.SidebetEventPayload)
			if !ok {
				continue
			}
			if err := s.SaveSidebet(s.gameID(), p.Sidebet); err != nil {
				log.Warn().Err(err).Msg("store: failed to persist resolved sidebet")
			}
		}
	}()
	go func() {
		for ev := range endCh {
			summary, ok := ev.Payload.(model.Summary)
			if !ok {
				continue
			}
			session := model.GameSession{
				GameID:       summary.GameID,
				PeakPrice:    summary.PeakPrice,
				RuggedAtTick: summary.RuggedAtTick,
				EndTick:      summary.TotalTicks,
			}
			if err := s.SaveSession(session); err != nil {
				log.Warn().Err(err).Msg("store: failed to persist session summary")
			}
		}
	}()
}

func (s *Store) gameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentGameID
}
