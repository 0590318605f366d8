// Package store provides storage backends for FunnelForge.
//
// This file implements an in-memory store used by tests and ephemeral runs.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
)

// InMemoryStore keeps funnels and leads in process memory. Safe for
// concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	funnels map[string]models.Funnel
	leads   []models.Lead
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{funnels: make(map[string]models.Funnel)}
}

func (s *InMemoryStore) SaveFunnel(f models.Funnel) (models.Funnel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if f.ID == "" {
		f.ID = util.GenerateFunnelID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	s.funnels[f.ID] = f.Clone()
	return f, nil
}

func (s *InMemoryStore) GetFunnel(id string) (*models.Funnel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.funnels[id]
	if !ok {
		return nil, nil
	}
	out := f.Clone()
	return &out, nil
}

func (s *InMemoryStore) GetFunnelByShareToken(token string) (*models.Funnel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return nil, nil
	}
	for _, f := range s.funnels {
		if f.ShareToken == token {
			out := f.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListFunnels() ([]models.Funnel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Funnel, 0, len(s.funnels))
	for _, f := range s.funnels {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) DeleteFunnel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.funnels, id)
	return nil
}

func (s *InMemoryStore) IncrementViews(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.funnels[id]; ok {
		f.Views++
		s.funnels[id] = f
	}
	return nil
}

func (s *InMemoryStore) IncrementConversions(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.funnels[id]; ok {
		f.Conversions++
		s.funnels[id] = f
	}
	return nil
}

func (s *InMemoryStore) AddLead(l models.Lead) (models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = util.GenerateLeadID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	s.leads = append(s.leads, l)
	return l, nil
}

func (s *InMemoryStore) ListLeads() ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLeads(""), nil
}

func (s *InMemoryStore) ListLeadsByFunnel(funnelID string) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLeads(funnelID), nil
}

func (s *InMemoryStore) sortedLeads(funnelID string) []models.Lead {
	out := make([]models.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if funnelID == "" || l.FunnelID == funnelID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *InMemoryStore) Close() error {
	return nil
}
