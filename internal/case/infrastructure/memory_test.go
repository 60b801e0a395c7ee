package infrastructure

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

func openSceneCase(t *testing.T, creator types.ID, severity domain.Severity) *domain.Case {
	t.Helper()
	reported := time.Now().Add(-time.Hour)
	c, err := domain.NewSceneCase(creator, "Armed robbery", "Bank on 5th street", severity, &reported,
		[]domain.Witness{{FullName: "Sara Ahmadi", Phone: "0912"}}, true)
	require.NoError(t, err)
	return c
}

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	c := openSceneCase(t, types.NewID(), domain.SeverityLevel1)

	require.NoError(t, repo.Save(ctx, c))
	assert.True(t, errors.Is(repo.Save(ctx, c), errors.ErrConflict))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, found.Title)
	assert.Equal(t, 1, found.Version)
	assert.Len(t, found.Witnesses, 1)

	found.Title = "changed"
	again, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Armed robbery", again.Title)

	_, err = repo.FindByID(ctx, types.NewID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMemoryRepository_UpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	c := openSceneCase(t, types.NewID(), domain.SeverityLevel1)
	require.NoError(t, repo.Save(ctx, c))

	_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
		c.Title = "half-written"
		return errors.InvalidState("nope")
	})
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Armed robbery", found.Title)
	assert.Equal(t, 1, found.Version)

	updated, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
		return c.TakeCase(types.NewID())
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusInvestigating, updated.Status)
	assert.Equal(t, 2, updated.Version)
	assert.Len(t, updated.PendingEvents(), 1)

	events, err := repo.GetEvents(ctx, c.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.CaseEventDetectiveAssigned, events[0].Type)
	assert.Equal(t, domain.CaseEventSceneReported, events[1].Type)
}

func TestMemoryRepository_ConcurrentTakeSerialized(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	c := openSceneCase(t, types.NewID(), domain.SeverityLevel2)
	require.NoError(t, repo.Save(ctx, c))

	var wg sync.WaitGroup
	var succeeded, rejected int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
				return c.TakeCase(types.NewID())
			})
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
			} else if errors.Is(err, errors.ErrInvalidState) {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(19), rejected)
}

func TestMemoryRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	citizen := types.NewID()
	other := types.NewID()

	complaint, err := domain.NewComplaintCase(citizen, "Noise", "Loud party every night", domain.SeverityLevel3, []types.ID{other})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, complaint))
	require.NoError(t, repo.Save(ctx, openSceneCase(t, types.NewID(), domain.SeverityCritical)))

	cases, total, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, cases, 2)

	cases, total, err = repo.List(ctx, domain.ListFilter{Participant: other})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, complaint.ID, cases[0].ID)

	critical := domain.SeverityCritical
	_, total, err = repo.List(ctx, domain.ListFilter{Severity: &critical})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	cases, total, err = repo.List(ctx, domain.ListFilter{Search: "PARTY"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, complaint.ID, cases[0].ID)

	cases, total, err = repo.List(ctx, domain.ListFilter{Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, cases)
}

func TestMemoryRepository_WantedAndHighAlert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	c := openSceneCase(t, types.NewID(), domain.SeverityLevel1)
	require.NoError(t, repo.Save(ctx, c))

	detective := types.NewID()
	var suspectID types.ID
	_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
		if err := c.TakeCase(detective); err != nil {
			return err
		}
		s, err := c.AddSuspect(detective, domain.SuspectInput{FullName: "Ali Rostami", NationalID: "0098765432"})
		if err != nil {
			return err
		}
		suspectID = s.ID
		return nil
	})
	require.NoError(t, err)

	records, err := repo.ListWantedSuspects(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.SeverityLevel1, records[0].CaseSeverity)

	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		c.MarkHighAlert([]types.ID{suspectID}, time.Now())
		return nil
	})
	require.NoError(t, err)
	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuspectHighAlert, found.FindSuspect(suspectID).Status)

	records, err = repo.ListWantedSuspects(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1, "high alert suspects are still wanted")
}

func TestMemoryRepository_ChildLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	c := openSceneCase(t, types.NewID(), domain.SeverityLevel2)
	require.NoError(t, repo.Save(ctx, c))

	detective := types.NewID()
	var submissionID, interrogationID types.ID
	_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
		if err := c.TakeCase(detective); err != nil {
			return err
		}
		s, err := c.AddSuspect(detective, domain.SuspectInput{FullName: "Suspect"})
		if err != nil {
			return err
		}
		sub, err := c.SubmitMainSuspects(detective, []types.ID{s.ID}, "caught on camera")
		if err != nil {
			return err
		}
		submissionID = sub.ID
		if _, err := c.ReviewSubmission(types.NewID(), sub.ID, true, ""); err != nil {
			return err
		}
		score := 6
		it, _, err := c.RecordAssessment(detective, s.ID, domain.Assessment{DetectiveScore: &score})
		if err != nil {
			return err
		}
		interrogationID = it.ID
		return nil
	})
	require.NoError(t, err)

	id, err := repo.CaseIDForSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	id, err = repo.CaseIDForInterrogation(ctx, interrogationID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	_, err = repo.CaseIDForInterrogation(ctx, types.NewID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
