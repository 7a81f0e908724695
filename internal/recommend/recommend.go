// Package recommend ranks festivals for a user from their ticket and review
// history.
//
// The catalog snapshot (active festivals, their ratings and popularity) is
// built once at process start and swapped atomically on Refresh; per-user
// history is read on every call.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/models"

	"gorm.io/gorm"
)

var ErrNotReady = errors.New("recommendation engine not initialized")

// Score weights.
const (
	subcategoryWeight = 1.0
	categoryWeight    = 0.5
	ratingWeight      = 0.3
	popularityWeight  = 0.2
)

type candidate struct {
	ID            uint
	SubcategoryID uint
	CategoryID    uint
	AvgRating     float64
	Tickets       int64
}

type snapshot struct {
	candidates []candidate
	maxTickets int64
	builtAt    time.Time
}

type Engine struct {
	db *gorm.DB

	once    sync.Once
	initErr error

	refreshMu sync.Mutex
	snap      atomic.Pointer[snapshot]
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Init builds the first snapshot. Concurrent and repeated calls share one build.
func (e *Engine) Init(ctx context.Context) error {
	e.once.Do(func() {
		e.initErr = e.Refresh(ctx)
	})
	return e.initErr
}

// Refresh rebuilds the catalog snapshot.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	var rows []candidate
	err := e.db.WithContext(ctx).
		Table("festivals").
		Select(`festivals.id AS id,
			festivals.subcategory_id AS subcategory_id,
			subcategories.category_id AS category_id,
			COALESCE((SELECT AVG(CAST(reviews.rating AS FLOAT)) FROM reviews WHERE reviews.festival_id = festivals.id), 0.0) AS avg_rating,
			(SELECT COUNT(*) FROM tickets WHERE tickets.festival_id = festivals.id) AS tickets`).
		Joins("JOIN subcategories ON subcategories.id = festivals.subcategory_id").
		Where("festivals.is_active = ?", true).
		Order("festivals.id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to build recommendation snapshot: %w", err)
	}

	snap := &snapshot{candidates: rows, builtAt: time.Now()}
	for _, c := range rows {
		snap.maxTickets = max(snap.maxTickets, c.Tickets)
	}
	e.snap.Store(snap)

	logging.Debug().Int("festivals", len(rows)).Msg("recommendation snapshot rebuilt")
	return nil
}

// Run refreshes the snapshot every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("recommendation refresh failed")
			}
		}
	}
}

type historyRow struct {
	FestivalID    uint
	SubcategoryID uint
	CategoryID    uint
	Rating        int
}

// Recommend returns up to limit festival ids the user holds no ticket for,
// best match first. Users without history get the popularity ranking.
func (e *Engine) Recommend(ctx context.Context, userID uint, limit int) ([]uint, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}

	db := e.db.WithContext(ctx)
	var users int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if users == 0 {
		return nil, crud.ErrNotFound
	}

	var tickets []historyRow
	err := db.Table("tickets").
		Select("tickets.festival_id, festivals.subcategory_id, subcategories.category_id").
		Joins("JOIN festivals ON festivals.id = tickets.festival_id").
		Joins("JOIN subcategories ON subcategories.id = festivals.subcategory_id").
		Where("tickets.user_id = ?", userID).
		Scan(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket history: %w", err)
	}

	var reviews []historyRow
	err = db.Table("reviews").
		Select("reviews.festival_id, reviews.rating, festivals.subcategory_id, subcategories.category_id").
		Joins("JOIN festivals ON festivals.id = reviews.festival_id").
		Joins("JOIN subcategories ON subcategories.id = festivals.subcategory_id").
		Where("reviews.user_id = ?", userID).
		Scan(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load review history: %w", err)
	}

	return rank(snap, tickets, reviews, limit), nil
}

func rank(snap *snapshot, tickets, reviews []historyRow, limit int) []uint {
	attended := make(map[uint]bool, len(tickets))
	subAffinity := make(map[uint]float64)
	catAffinity := make(map[uint]float64)

	for _, t := range tickets {
		attended[t.FestivalID] = true
		subAffinity[t.SubcategoryID] += 1
		catAffinity[t.CategoryID] += 1
	}
	// A 3-star review is neutral; 5 counts like a ticket, 1 counts against.
	for _, r := range reviews {
		w := float64(r.Rating-3) / 2
		subAffinity[r.SubcategoryID] += w
		catAffinity[r.CategoryID] += w
	}

	type scored struct {
		id    uint
		score float64
	}
	results := make([]scored, 0, len(snap.candidates))
	for _, c := range snap.candidates {
		if attended[c.ID] {
			continue
		}
		score := subcategoryWeight*subAffinity[c.SubcategoryID] +
			categoryWeight*catAffinity[c.CategoryID] +
			ratingWeight*(c.AvgRating/5)
		if snap.maxTickets > 0 {
			score += popularityWeight * float64(c.Tickets) / float64(snap.maxTickets)
		}
		results = append(results, scored{id: c.ID, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	ids := make([]uint, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}
