package infrastructure

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// MemoryRepository implements domain.Repository in process memory. Updates
// of one case are serialized by a per-case lock; different cases proceed in
// parallel.
type MemoryRepository struct {
	mu     sync.RWMutex
	cases  map[types.ID]*domain.Case
	locks  map[types.ID]*sync.Mutex
	events map[types.ID][]domain.CaseEvent
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		cases:  make(map[types.ID]*domain.Case),
		locks:  make(map[types.ID]*sync.Mutex),
		events: make(map[types.ID][]domain.CaseEvent),
	}
}

// Save stores a new case
func (r *MemoryRepository) Save(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cases[c.ID]; exists {
		return errors.Conflict("case already exists")
	}
	if c.Version == 0 {
		c.Version = 1
	}
	r.cases[c.ID] = c.Clone()
	r.locks[c.ID] = &sync.Mutex{}
	r.events[c.ID] = append(r.events[c.ID], c.PendingEvents()...)
	return nil
}

// FindByID returns a copy of the stored case
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cases[id]
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}
	return c.Clone(), nil
}

// Update applies fn to a working copy under the case lock and stores the
// copy only if fn succeeds.
func (r *MemoryRepository) Update(ctx context.Context, id types.ID, fn func(c *domain.Case) error) (*domain.Case, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	working := r.cases[id].Clone()
	r.mu.RUnlock()

	if err := fn(working); err != nil {
		return nil, err
	}
	working.Version++

	r.mu.Lock()
	r.cases[id] = working.Clone()
	r.events[id] = append(r.events[id], working.PendingEvents()...)
	r.mu.Unlock()

	return working, nil
}

// List returns cases matching filter, newest first
func (r *MemoryRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	matched := []domain.Case{}
	for _, c := range r.cases {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.Source != nil && c.Source != *filter.Source {
			continue
		}
		if filter.Severity != nil && c.Severity != *filter.Severity {
			continue
		}
		if !filter.Detective.IsZero() && c.AssignedDetective != filter.Detective {
			continue
		}
		if !filter.Participant.IsZero() && !c.IsParticipant(filter.Participant) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		matched = append(matched, *c.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}
	if filter.Offset >= total {
		return []domain.Case{}, total, nil
	}
	end := filter.Offset + limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

// GetEvents returns the case journal, newest first
func (r *MemoryRepository) GetEvents(ctx context.Context, caseID types.ID, limit, offset int) ([]domain.CaseEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	stored := r.events[caseID]
	out := make([]domain.CaseEvent, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	if offset >= len(out) {
		return []domain.CaseEvent{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

// CaseIDForInterrogation resolves an interrogation to its case
func (r *MemoryRepository) CaseIDForInterrogation(ctx context.Context, interrogationID types.ID) (types.ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.cases {
		if c.FindInterrogation(interrogationID) != nil {
			return id, nil
		}
	}
	return "", errors.NotFound("interrogation", interrogationID.String())
}

// CaseIDForSubmission resolves a main-suspect submission to its case
func (r *MemoryRepository) CaseIDForSubmission(ctx context.Context, submissionID types.ID) (types.ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.cases {
		if c.FindSubmission(submissionID) != nil {
			return id, nil
		}
	}
	return "", errors.NotFound("suspect submission", submissionID.String())
}

// ListWantedSuspects returns wanted suspects of active cases
func (r *MemoryRepository) ListWantedSuspects(ctx context.Context) ([]domain.SuspectRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.SuspectRecord
	for _, c := range r.cases {
		if c.Status.IsTerminal() {
			continue
		}
		for _, s := range c.Suspects {
			if !s.Status.IsWanted() {
				continue
			}
			records = append(records, domain.SuspectRecord{
				Suspect:      s,
				CaseStatus:   c.Status,
				CaseSeverity: c.Severity,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Suspect.MarkedAt.Before(records[j].Suspect.MarkedAt)
	})
	return records, nil
}
