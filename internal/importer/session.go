package importer

import (
	"context"
	"strings"

	"networth-tracker/internal/models"
)

// holdingFinder looks up an existing holding by its natural key.
type holdingFinder func(ctx context.Context, userID, key string) (*models.Holding, error)

// session resolves holdings for a single import run. Rows are processed in order so
// two rows naming the same new symbol or fund share one created holding.
type session struct {
	userID   string
	holdings map[string]*models.Holding
	find     holdingFinder
	create   func(ctx context.Context, h *models.Holding) error
}

func newSession(userID string, find holdingFinder, create func(ctx context.Context, h *models.Holding) error) *session {
	return &session{
		userID:   userID,
		holdings: make(map[string]*models.Holding),
		find:     find,
		create:   create,
	}
}

// resolve returns the holding cached under key, then one from the store,
// and finally creates the holding built by build.
func (s *session) resolve(ctx context.Context, key, lookup string, build func() *models.Holding) (*models.Holding, error) {
	if h, ok := s.holdings[key]; ok {
		return h, nil
	}

	h, err := s.find(ctx, s.userID, lookup)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = build()
		h.UserID = s.userID
		h.IsActive = true
		h.IsDormant = false
		if err := s.create(ctx, h); err != nil {
			return nil, err
		}
	}

	s.holdings[key] = h
	return h, nil
}

// rowCurrency uppercases the row's currency, falling back to the default.
func rowCurrency(c *string) models.Currency {
	if c != nil {
		if v := strings.ToUpper(strings.TrimSpace(*c)); v != "" {
			return models.Currency(v)
		}
	}
	return models.DefaultCurrency
}
