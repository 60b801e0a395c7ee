package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/shared/database"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// setupTestDatabase starts a PostgreSQL container and applies the embedded
// migrations.
func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("citypd_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(connStr, zap.NewNop()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func insertUsers(t *testing.T, pool *pgxpool.Pool, n int) []types.ID {
	t.Helper()
	ids := make([]types.ID, n)
	for i := range ids {
		ids[i] = types.NewID()
		_, err := pool.Exec(context.Background(),
			`INSERT INTO personnel.users (id, username) VALUES ($1, $2)`,
			ids[i], "user-"+ids[i].String())
		require.NoError(t, err)
	}
	return ids
}

func TestPostgresRepository_ComplaintRoundTrip(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	users := insertUsers(t, pool, 4)
	citizen, second, cadet, officer := users[0], users[1], users[2], users[3]

	c, err := domain.NewComplaintCase(citizen, "Stolen car", "Taken from the parking lot", domain.SeverityLevel2, []types.ID{second})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Complaint)
	assert.Equal(t, domain.CaseStatusUnderReview, found.Status)
	assert.Equal(t, domain.StageToCadet, found.Complaint.Stage)
	assert.Len(t, found.Complainants, 2)
	assert.True(t, found.AssignedDetective.IsZero())

	updated, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
		for _, cc := range c.Complainants {
			if _, err := c.ReviewComplainant(cadet, cc.ID, true, ""); err != nil {
				return err
			}
		}
		if err := c.InternApprove(cadet, "looks complete"); err != nil {
			return err
		}
		return c.OfficerApprove(officer, "")
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusOpen, updated.Status)
	assert.Equal(t, 2, updated.Version)

	found, err = repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusOpen, found.Status)
	assert.Equal(t, domain.StageFormed, found.Complaint.Stage)
	assert.Equal(t, 2, found.CountComplainants(domain.ComplainantApproved))

	cases, total, err := repo.List(ctx, domain.ListFilter{Participant: second})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, c.ID, cases[0].ID)

	events, err := repo.GetEvents(ctx, c.ID, 50, 0)
	require.NoError(t, err)
	var eventTypes []domain.CaseEventType
	for _, e := range events {
		eventTypes = append(eventTypes, e.Type)
	}
	assert.Contains(t, eventTypes, domain.CaseEventOfficerApproved)
	assert.Contains(t, eventTypes, domain.CaseEventComplaintSubmitted)
}

func TestPostgresRepository_InvestigationRoundTrip(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	users := insertUsers(t, pool, 5)
	chief, detective, sergeant, captain, judge := users[0], users[1], users[2], users[3], users[4]

	reported := time.Now().Add(-2 * time.Hour)
	c, err := domain.NewSceneCase(chief, "Homicide", "Body found at the docks", domain.SeverityCritical, &reported,
		[]domain.Witness{{FullName: "Dock worker", Statement: "heard shots"}}, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	var suspectID, submissionID, interrogationID types.ID
	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		if err := c.AssignDetective(chief, detective); err != nil {
			return err
		}
		s, err := c.AddSuspect(detective, domain.SuspectInput{FullName: "Night caller", NationalID: "0011223344"})
		if err != nil {
			return err
		}
		suspectID = s.ID
		sub, err := c.SubmitMainSuspects(detective, []types.ID{s.ID}, "phone records")
		if err != nil {
			return err
		}
		submissionID = sub.ID
		return nil
	})
	require.NoError(t, err)

	id, err := repo.CaseIDForSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	records, err := repo.ListWantedSuspects(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.SeverityCritical, records[0].CaseSeverity)

	seven, eight := 7, 8
	notes := "admitted presence"
	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		if _, err := c.ReviewSubmission(sergeant, submissionID, true, ""); err != nil {
			return err
		}
		if _, _, err := c.RecordAssessment(detective, suspectID, domain.Assessment{DetectiveScore: &seven, Notes: &notes}); err != nil {
			return err
		}
		it, _, err := c.RecordAssessment(sergeant, suspectID, domain.Assessment{
			SergeantScore: &eight,
			KeyValues:     map[string]string{"alibi": "none"},
		})
		if err != nil {
			return err
		}
		interrogationID = it.ID
		return nil
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	it := found.FindInterrogation(interrogationID)
	require.NotNil(t, it)
	assert.Equal(t, 7, *it.DetectiveScore)
	assert.Equal(t, 8, *it.SergeantScore)
	assert.Equal(t, "none", it.KeyValues["alibi"])
	assert.Equal(t, []types.ID{suspectID}, found.SuspectSubmissions[0].SuspectIDs)
	assert.Equal(t, domain.SuspectArrested, found.FindSuspect(suspectID).Status)

	id, err = repo.CaseIDForInterrogation(ctx, interrogationID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	approve := true
	score := 9
	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		if _, err := c.CaptainDecide(captain, interrogationID, domain.CaptainInput{Approved: &approve, Score: &score, Note: "strong"}); err != nil {
			return err
		}
		_, err := c.ChiefReview(chief, interrogationID, domain.ChiefInput{Approved: &approve})
		return err
	})
	require.NoError(t, err)

	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		_, err := c.RecordVerdict(judge, domain.VerdictInput{SuspectID: suspectID, Verdict: domain.VerdictGuilty, PunishmentTitle: "Life"})
		return err
	})
	require.NoError(t, err)

	found, err = repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusClosed, found.Status)
	assert.Equal(t, domain.SuspectCriminal, found.FindSuspect(suspectID).Status)
	require.Len(t, found.CourtSessions, 1)
	assert.Equal(t, domain.ChiefApproved, found.FindInterrogation(interrogationID).ChiefDecision)

	records, err = repo.ListWantedSuspects(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPostgresRepository_UpdateSerializesWriters(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	users := insertUsers(t, pool, 6)

	reported := time.Now()
	c, err := domain.NewSceneCase(users[0], "Arson", "Warehouse fire", domain.SeverityLevel1, &reported, nil, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for _, detective := range users[1:] {
		wg.Add(1)
		go func(detective types.ID) {
			defer wg.Done()
			_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
				return c.TakeCase(detective)
			})
			results <- err
		}(detective)
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		if err == nil {
			ok++
		} else if errors.Is(err, errors.ErrInvalidState) {
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 4, rejected)

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Version)
}

func TestPostgresRepository_NotFound(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, types.NewID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = repo.Update(ctx, types.NewID(), func(c *domain.Case) error { return nil })
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPostgresRepository_HighAlertSurvivesConcurrentUpdate(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	users := insertUsers(t, pool, 2)
	chief, detective := users[0], users[1]

	reported := time.Now()
	c, err := domain.NewSceneCase(chief, "Kidnapping", "Child missing from the park", domain.SeverityLevel2, &reported, nil, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	var suspectID types.ID
	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		if err := c.TakeCase(detective); err != nil {
			return err
		}
		s, err := c.AddSuspect(detective, domain.SuspectInput{FullName: "Van driver"})
		if err != nil {
			return err
		}
		suspectID = s.ID
		return nil
	})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
			close(entered)
			<-release
			_, err := c.AddSuspect(detective, domain.SuspectInput{FullName: "Accomplice"})
			return err
		})
		assert.NoError(t, err)
	}()

	<-entered
	marked := make(chan []types.ID, 1)
	go func() {
		defer wg.Done()
		var ids []types.ID
		_, err := repo.Update(ctx, c.ID, func(c *domain.Case) error {
			ids = c.MarkHighAlert([]types.ID{suspectID}, time.Now())
			return nil
		})
		assert.NoError(t, err)
		marked <- ids
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []types.ID{suspectID}, <-marked)
	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, found.Suspects, 2)
	assert.Equal(t, domain.SuspectHighAlert, found.FindSuspect(suspectID).Status)

	_, err = repo.Update(ctx, c.ID, func(c *domain.Case) error {
		_, err := c.AddSuspect(detective, domain.SuspectInput{FullName: "Lookout"})
		return err
	})
	require.NoError(t, err)
	found, err = repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuspectHighAlert, found.FindSuspect(suspectID).Status)
}
