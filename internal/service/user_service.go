// Package service contains the application services: user profiles and the
// deal-finding flow that ties search, valuation, and scoring together.
package service

import (
	"context"
	"fmt"

	"github.com/valoriste/valoriste/internal/domain"
)

// UserService serves shopper profiles. Without a backing store it falls back
// to the built-in demo profiles.
type UserService struct {
	store domain.UserStore // optional
	demo  map[string]domain.User
	order []string
}

// NewUserService creates a UserService. store may be nil, in which case only
// the demo profiles exist.
func NewUserService(store domain.UserStore) *UserService {
	demo := demoUsers()
	s := &UserService{
		store: store,
		demo:  make(map[string]domain.User, len(demo)),
	}
	for _, u := range demo {
		s.demo[u.ID] = u
		s.order = append(s.order, u.ID)
	}
	return s
}

// Get returns the user with the given ID, consulting the store first and the
// demo profiles second.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	if s.store != nil {
		u, err := s.store.Get(ctx, id)
		if err == nil {
			return u, nil
		}
	}
	if u, ok := s.demo[id]; ok {
		return u, nil
	}
	return domain.User{}, fmt.Errorf("service: user %q: %w", id, domain.ErrNotFound)
}

// List returns all known users. Store-backed users take precedence over demo
// profiles with the same ID.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	byID := make(map[string]domain.User, len(s.demo))
	order := make([]string, 0, len(s.demo))

	for _, id := range s.order {
		byID[id] = s.demo[id]
		order = append(order, id)
	}

	if s.store != nil {
		stored, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("service: list users: %w", err)
		}
		for _, u := range stored {
			if _, exists := byID[u.ID]; !exists {
				order = append(order, u.ID)
			}
			byID[u.ID] = u
		}
	}

	out := make([]domain.User, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// demoUsers are the built-in shopper profiles used before a database is
// configured.
func demoUsers() []domain.User {
	womenExclusions := []string{
		"men", "mens", "male", "boys",
		"fake", "replica", "inspired", "wholesale", "lot", "bulk",
	}
	menExclusions := []string{
		"women", "womens", "female", "girls",
		"fake", "replica", "inspired", "wholesale", "lot", "bulk",
	}
	menBrands := []string{"Lululemon", "Norse Projects", "APC", "Theory"}

	return []domain.User{
		{
			ID:     "rose",
			Name:   "Rose",
			Gender: domain.GenderWomen,
			Sizes: domain.Sizes{
				Tops:          []string{"S", "M"},
				BottomsWaist:  []string{"26", "27", "28"},
				BottomsLetter: []string{"S", "M"},
				Outerwear:     []string{"S", "M"},
			},
			Preferences: domain.Preferences{
				Brands: []string{
					"Stylenanda", "ADER Error", "87MM", "Charm's",
					"Musinsa Standard", "Meshki", "Revolve",
					"House of CB", "Oh Polly", "Bardot", "Cult Gaia",
					"Matin Kim", "Low Classic", "Recto", "TheOpen Product",
				},
				MinROI:           30,
				MaxPrice:         300,
				ExcludedKeywords: womenExclusions,
			},
		},
		{
			ID:     "thai",
			Name:   "Thai",
			Gender: domain.GenderMen,
			Sizes: domain.Sizes{
				Tops:          []string{"M", "L"},
				BottomsWaist:  []string{"33", "34"},
				BottomsLetter: []string{"M", "L"},
				Outerwear:     []string{"M", "L"},
			},
			Preferences: domain.Preferences{
				Brands:           menBrands,
				MinROI:           30,
				MaxPrice:         300,
				ExcludedKeywords: menExclusions,
			},
		},
		{
			ID:     "andy",
			Name:   "Andy",
			Gender: domain.GenderMen,
			Sizes: domain.Sizes{
				Tops:          []string{"S", "M"},
				BottomsWaist:  []string{"28", "29"},
				BottomsLetter: []string{"S", "M"},
				Outerwear:     []string{"S", "M"},
			},
			Preferences: domain.Preferences{
				Brands:           menBrands,
				MinROI:           30,
				MaxPrice:         300,
				ExcludedKeywords: menExclusions,
			},
		},
	}
}
