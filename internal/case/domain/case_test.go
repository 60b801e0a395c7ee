package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

func newComplaint(t *testing.T, extra ...types.ID) (*Case, types.ID) {
	t.Helper()
	creator := types.NewID()
	c, err := NewComplaintCase(creator, "Stolen bicycle", "Taken from the yard overnight", SeverityLevel2, extra)
	require.NoError(t, err)
	return c, creator
}

func approveAllComplainants(t *testing.T, c *Case, cadet types.ID) {
	t.Helper()
	for _, cc := range c.Complainants {
		_, err := c.ReviewComplainant(cadet, cc.ID, true, "identity checked")
		require.NoError(t, err)
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestNewComplaintCase(t *testing.T) {
	other := types.NewID()
	c, creator := newComplaint(t, other, other, "")

	assert.Equal(t, CaseStatusUnderReview, c.Status)
	assert.Equal(t, SourceComplaint, c.Source)
	require.NotNil(t, c.Complaint)
	assert.Equal(t, StageToCadet, c.Complaint.Stage)
	assert.Equal(t, 0, c.Complaint.AttemptCount)
	require.Len(t, c.Complainants, 2)
	assert.Equal(t, creator, c.Complainants[0].User)
	assert.Equal(t, ComplainantPending, c.Complainants[1].Status)
	assert.Len(t, c.PendingEvents(), 1)
}

func TestNewComplaintCaseValidation(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		severity    Severity
	}{
		{"empty title", "", "desc", SeverityLevel1},
		{"empty description", "title", "  ", SeverityLevel1},
		{"severity too low", "title", "desc", 0},
		{"severity too high", "title", "desc", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComplaintCase(types.NewID(), tt.title, tt.description, tt.severity, nil)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestComplaint_HappyPath(t *testing.T) {
	c, _ := newComplaint(t)
	cadet, officer := types.NewID(), types.NewID()

	err := c.InternApprove(cadet, "")
	assert.True(t, errors.Is(err, errors.ErrValidation), "pending complainant blocks approval")

	approveAllComplainants(t, c, cadet)
	require.NoError(t, c.InternApprove(cadet, "looks fine"))
	assert.Equal(t, StageToOfficer, c.Complaint.Stage)
	assert.Equal(t, CaseStatusUnderReview, c.Status)

	require.NoError(t, c.OfficerApprove(officer, ""))
	assert.Equal(t, StageFormed, c.Complaint.Stage)
	assert.Equal(t, CaseStatusOpen, c.Status)
}

func TestComplaint_ThreeRejectionsVoid(t *testing.T) {
	c, creator := newComplaint(t)
	cadet := types.NewID()

	for attempt := 1; attempt <= 2; attempt++ {
		require.NoError(t, c.InternReject(cadet, "missing details"))
		assert.Equal(t, CaseStatusDraft, c.Status)
		assert.Equal(t, StageReturnedToComplainant, c.Complaint.Stage)
		assert.Equal(t, attempt, c.Complaint.AttemptCount)
		assert.Equal(t, "missing details", c.Complaint.LastErrorMessage)

		require.NoError(t, c.Resubmit(creator, ResubmitChanges{}))
		assert.Equal(t, CaseStatusUnderReview, c.Status)
		assert.Equal(t, StageToCadet, c.Complaint.Stage)
	}

	require.NoError(t, c.InternReject(cadet, "still missing"))
	assert.Equal(t, CaseStatusVoid, c.Status)
	assert.Equal(t, StageVoided, c.Complaint.Stage)
	assert.Equal(t, 3, c.Complaint.AttemptCount)

	assert.True(t, errors.Is(c.Resubmit(creator, ResubmitChanges{}), errors.ErrInvalidState))
	assert.True(t, errors.Is(c.InternApprove(cadet, ""), errors.ErrInvalidState))
	_, err := c.AddComplainant(creator, types.NewID())
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestComplaint_RejectRequiresNote(t *testing.T) {
	c, _ := newComplaint(t)
	err := c.InternReject(types.NewID(), "   ")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, 0, c.Complaint.AttemptCount)
}

func TestComplaint_OfficerRejectReturnsToCadet(t *testing.T) {
	c, _ := newComplaint(t)
	cadet := types.NewID()
	approveAllComplainants(t, c, cadet)
	require.NoError(t, c.InternApprove(cadet, ""))

	require.NoError(t, c.OfficerReject(types.NewID(), "witness list incomplete"))
	assert.Equal(t, StageReturnedToCadet, c.Complaint.Stage)
	assert.Equal(t, CaseStatusUnderReview, c.Status)
	assert.Equal(t, 0, c.Complaint.AttemptCount)

	require.NoError(t, c.InternApprove(cadet, "fixed"))
	assert.Equal(t, StageToOfficer, c.Complaint.Stage)
	assert.Empty(t, c.Complaint.LastErrorMessage)
}

func TestComplaint_OfficerNeedsApprovedComplainant(t *testing.T) {
	c, _ := newComplaint(t)
	cadet := types.NewID()
	for _, cc := range c.Complainants {
		_, err := c.ReviewComplainant(cadet, cc.ID, false, "not the victim")
		require.NoError(t, err)
	}
	require.NoError(t, c.InternApprove(cadet, ""))

	err := c.OfficerApprove(types.NewID(), "")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, StageToOfficer, c.Complaint.Stage)
}

func TestComplaint_ResubmitEdits(t *testing.T) {
	c, creator := newComplaint(t)
	require.NoError(t, c.InternReject(types.NewID(), "title unclear"))
	require.Equal(t, "title unclear", c.Complaint.LastErrorMessage)

	title := "Stolen red bicycle"
	sev := SeverityLevel1
	extra := types.NewID()
	require.NoError(t, c.Resubmit(creator, ResubmitChanges{
		Title:                  &title,
		Severity:               &sev,
		AdditionalComplainants: []types.ID{extra, creator},
	}))
	assert.Equal(t, title, c.Title)
	assert.Equal(t, SeverityLevel1, c.Severity)
	assert.True(t, c.IsComplainant(extra))
	assert.Len(t, c.Complainants, 2)
	assert.Equal(t, StageToCadet, c.Complaint.Stage)
	assert.Empty(t, c.Complaint.LastErrorMessage)

	empty := ""
	require.NoError(t, c.InternReject(types.NewID(), "again"))
	err := c.Resubmit(creator, ResubmitChanges{Title: &empty})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestComplaint_ReviewUnknownComplainant(t *testing.T) {
	c, _ := newComplaint(t)
	_, err := c.ReviewComplainant(types.NewID(), types.NewID(), true, "")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSceneCase(t *testing.T) {
	reported := time.Now().Add(-2 * time.Hour)

	_, err := NewSceneCase(types.NewID(), "Robbery", "Shop robbed", SeverityLevel1, nil, nil, false)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	c, err := NewSceneCase(types.NewID(), "Robbery", "Shop robbed", SeverityLevel1, &reported,
		[]Witness{{FullName: "Sara Amini", Phone: "0912"}}, false)
	require.NoError(t, err)
	assert.Equal(t, CaseStatusUnderReview, c.Status)
	require.Len(t, c.Witnesses, 1)
	assert.Equal(t, c.ID, c.Witnesses[0].CaseID)

	require.NoError(t, c.ApproveScene(types.NewID(), ""))
	assert.Equal(t, CaseStatusOpen, c.Status)
	assert.True(t, errors.Is(c.ApproveScene(types.NewID(), ""), errors.ErrInvalidState))

	opened, err := NewSceneCase(types.NewID(), "Arson", "Warehouse fire", SeverityCritical, &reported, nil, true)
	require.NoError(t, err)
	assert.Equal(t, CaseStatusOpen, opened.Status)
}

func TestSceneCase_Deny(t *testing.T) {
	reported := time.Now()
	c, err := NewSceneCase(types.NewID(), "Noise", "Loud party", SeverityLevel3, &reported, nil, false)
	require.NoError(t, err)

	require.NoError(t, c.DenyScene(types.NewID(), "not a crime"))
	assert.Equal(t, CaseStatusVoid, c.Status)

	_, err = c.AddComplainant(types.NewID(), types.NewID())
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestSceneCase_AddComplainantDuplicate(t *testing.T) {
	reported := time.Now()
	c, err := NewSceneCase(types.NewID(), "Assault", "Street fight", SeverityLevel1, &reported, nil, true)
	require.NoError(t, err)

	user := types.NewID()
	_, err = c.AddComplainant(types.NewID(), user)
	require.NoError(t, err)
	_, err = c.AddComplainant(types.NewID(), user)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestTransitions_TerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []CaseStatus{CaseStatusClosed, CaseStatusVoid} {
		t.Run(string(terminal), func(t *testing.T) {
			c, _ := newComplaint(t)
			c.Status = terminal

			assert.True(t, errors.Is(c.AssignDetective(types.NewID(), types.NewID()), errors.ErrInvalidState))
			assert.True(t, errors.Is(c.SendToCourt(types.NewID(), ""), errors.ErrInvalidState))
			assert.True(t, errors.Is(c.InternReject(types.NewID(), "x"), errors.ErrInvalidState))
			assert.True(t, errors.Is(c.transition(CaseStatusOpen, types.NewID(), CaseEventClosed, "", nil), errors.ErrInvalidState))
			assert.Equal(t, terminal, c.Status)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(CaseStatusUnderReview, CaseStatusOpen))
	assert.True(t, CanTransition(CaseStatusInvestigating, CaseStatusInvestigating))
	assert.False(t, CanTransition(CaseStatusOpen, CaseStatusSentToCourt))
	assert.False(t, CanTransition(CaseStatusDraft, CaseStatusOpen))
	assert.False(t, CanTransition(CaseStatusClosed, CaseStatusOpen))
}

// investigatingCase returns a case under investigation with one arrested
// suspect.
func investigatingCase(t *testing.T, severity Severity) (*Case, types.ID, types.ID) {
	t.Helper()
	reported := time.Now()
	c, err := NewSceneCase(types.NewID(), "Burglary", "Jewellery store", severity, &reported, nil, true)
	require.NoError(t, err)

	detective := types.NewID()
	require.NoError(t, c.TakeCase(detective))
	s, err := c.AddSuspect(detective, SuspectInput{FullName: "Reza Karimi", NationalID: "0012345678"})
	require.NoError(t, err)
	_, err = c.ArrestSuspect(detective, s.ID)
	require.NoError(t, err)
	return c, detective, s.ID
}

func TestSuspectSubmission(t *testing.T) {
	reported := time.Now()
	c, err := NewSceneCase(types.NewID(), "Fraud", "Fake invoices", SeverityLevel1, &reported, nil, true)
	require.NoError(t, err)
	detective, sergeant := types.NewID(), types.NewID()
	require.NoError(t, c.AssignDetective(types.NewID(), detective))

	s1, err := c.AddSuspect(detective, SuspectInput{FullName: "A"})
	require.NoError(t, err)
	s2, err := c.AddSuspect(detective, SuspectInput{FullName: "B"})
	require.NoError(t, err)

	_, err = c.SubmitMainSuspects(detective, []types.ID{types.NewID()}, "hunch")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	sub, err := c.SubmitMainSuspects(detective, []types.ID{s1.ID, s2.ID}, "fingerprints match")
	require.NoError(t, err)
	_, err = c.SubmitMainSuspects(detective, []types.ID{s1.ID}, "again")
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	_, err = c.ReviewSubmission(sergeant, sub.ID, true, "agreed")
	require.NoError(t, err)
	assert.Equal(t, SuspectArrested, c.FindSuspect(s1.ID).Status)
	assert.Equal(t, SuspectArrested, c.FindSuspect(s2.ID).Status)
	assert.Equal(t, []types.ID{sergeant}, c.ApprovingSergeants(s1.ID))

	_, err = c.ReviewSubmission(sergeant, sub.ID, false, "changed my mind")
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestInterrogation_NonCriticalApprovalSendsToCourt(t *testing.T) {
	c, detective, suspectID := investigatingCase(t, SeverityLevel1)
	sergeant, captain := types.NewID(), types.NewID()

	it, ready, err := c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(7)})
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, ChiefNotRequired, it.ChiefDecision)

	_, err = c.CaptainDecide(captain, it.ID, CaptainInput{Approved: boolPtr(true), Score: intPtr(8), Note: "solid"})
	assert.True(t, errors.Is(err, errors.ErrInvalidState), "sergeant score missing")

	it, ready, err = c.RecordAssessment(sergeant, suspectID, Assessment{SergeantScore: intPtr(8)})
	require.NoError(t, err)
	assert.True(t, ready)

	it, err = c.CaptainDecide(captain, it.ID, CaptainInput{Approved: boolPtr(true), Score: intPtr(8), Note: "solid"})
	require.NoError(t, err)
	assert.Equal(t, CaptainOutcomeApproved, it.CaptainOutcome)
	assert.Equal(t, ChiefNotRequired, it.ChiefDecision)
	assert.Equal(t, CaseStatusSentToCourt, c.Status)

	_, err = c.ChiefReview(types.NewID(), it.ID, ChiefInput{Approved: boolPtr(true)})
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestInterrogation_CriticalNeedsChief(t *testing.T) {
	c, detective, suspectID := investigatingCase(t, SeverityCritical)
	sergeant, captain, chief := types.NewID(), types.NewID(), types.NewID()

	_, _, err := c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(9)})
	require.NoError(t, err)
	it, _, err := c.RecordAssessment(sergeant, suspectID, Assessment{SergeantScore: intPtr(9)})
	require.NoError(t, err)

	it, err = c.CaptainDecide(captain, it.ID, CaptainInput{Approved: boolPtr(true), Score: intPtr(9), Note: "confession"})
	require.NoError(t, err)
	assert.Equal(t, ChiefPending, it.ChiefDecision)
	assert.Equal(t, CaseStatusInvestigating, c.Status)

	_, err = c.ChiefReview(chief, it.ID, ChiefInput{Approved: boolPtr(false)})
	assert.True(t, errors.Is(err, errors.ErrValidation), "rejection needs a note")

	it, err = c.ChiefReview(chief, it.ID, ChiefInput{Approved: boolPtr(true), Note: "proceed"})
	require.NoError(t, err)
	assert.Equal(t, ChiefApproved, it.ChiefDecision)
	assert.Equal(t, CaseStatusSentToCourt, c.Status)
}

func TestInterrogation_ChiefRejectionReopensRound(t *testing.T) {
	c, detective, suspectID := investigatingCase(t, SeverityCritical)
	sergeant, captain, chief := types.NewID(), types.NewID(), types.NewID()

	_, _, err := c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(5)})
	require.NoError(t, err)
	it, _, err := c.RecordAssessment(sergeant, suspectID, Assessment{SergeantScore: intPtr(5)})
	require.NoError(t, err)
	it, err = c.CaptainDecide(captain, it.ID, CaptainInput{Approved: boolPtr(true), Score: intPtr(5), Note: "ok"})
	require.NoError(t, err)

	_, _, err = c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(6)})
	assert.True(t, errors.Is(err, errors.ErrInvalidState), "approval in force")

	it, err = c.ChiefReview(chief, it.ID, ChiefInput{Approved: boolPtr(false), Note: "weak evidence"})
	require.NoError(t, err)
	assert.Equal(t, ChiefRejected, it.ChiefDecision)
	assert.Equal(t, CaseStatusInvestigating, c.Status)

	it, ready, err := c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(8)})
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, CaptainPending, it.CaptainDecision)
	assert.Equal(t, ChiefNotRequired, it.ChiefDecision)
}

func TestInterrogation_CaptainRejection(t *testing.T) {
	c, detective, suspectID := investigatingCase(t, SeverityLevel2)
	_, _, err := c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(3), SergeantScore: intPtr(4)})
	require.NoError(t, err)
	it := c.InterrogationFor(suspectID)

	_, err = c.CaptainDecide(types.NewID(), it.ID, CaptainInput{Approved: boolPtr(false), Score: intPtr(2)})
	assert.True(t, errors.Is(err, errors.ErrValidation), "note is mandatory")

	it, err = c.CaptainDecide(types.NewID(), it.ID, CaptainInput{Approved: boolPtr(false), Score: intPtr(2), Note: "insufficient"})
	require.NoError(t, err)
	assert.Equal(t, CaptainOutcomeRejected, it.CaptainOutcome)
	assert.Equal(t, ChiefNotRequired, it.ChiefDecision)
	assert.Equal(t, CaseStatusInvestigating, c.Status)

	_, err = c.CaptainDecide(types.NewID(), it.ID, CaptainInput{Approved: boolPtr(true), Score: intPtr(2), Note: "again"})
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestInterrogation_Validation(t *testing.T) {
	c, detective, suspectID := investigatingCase(t, SeverityLevel1)

	_, _, err := c.RecordAssessment(detective, suspectID, Assessment{DetectiveScore: intPtr(11)})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	_, _, err = c.RecordAssessment(detective, suspectID, Assessment{SergeantScore: intPtr(0)})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	_, _, err = c.RecordAssessment(detective, types.NewID(), Assessment{DetectiveScore: intPtr(5)})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	wanted, err := c.AddSuspect(detective, SuspectInput{FullName: "Not caught"})
	require.NoError(t, err)
	_, _, err = c.RecordAssessment(detective, wanted.ID, Assessment{DetectiveScore: intPtr(5)})
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestRecordVerdict(t *testing.T) {
	c, detective, first := investigatingCase(t, SeverityLevel1)
	second, err := c.AddSuspect(detective, SuspectInput{FullName: "Accomplice"})
	require.NoError(t, err)
	_, err = c.ArrestSuspect(detective, second.ID)
	require.NoError(t, err)
	judge := types.NewID()

	_, err = c.RecordVerdict(judge, VerdictInput{SuspectID: first, Verdict: VerdictGuilty})
	assert.True(t, errors.Is(err, errors.ErrInvalidState), "not sent to court yet")

	require.NoError(t, c.SendToCourt(detective, "evidence complete"))

	_, err = c.RecordVerdict(judge, VerdictInput{SuspectID: first, Verdict: "maybe"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = c.RecordVerdict(judge, VerdictInput{SuspectID: first, Verdict: VerdictGuilty, PunishmentTitle: "5 years"})
	require.NoError(t, err)
	assert.Equal(t, SuspectCriminal, c.FindSuspect(first).Status)
	assert.Equal(t, CaseStatusSentToCourt, c.Status)

	_, err = c.RecordVerdict(judge, VerdictInput{SuspectID: first, Verdict: VerdictNotGuilty})
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	_, err = c.RecordVerdict(judge, VerdictInput{SuspectID: second.ID, Verdict: VerdictNotGuilty})
	require.NoError(t, err)
	assert.Equal(t, SuspectCleared, c.FindSuspect(second.ID).Status)
	assert.Equal(t, CaseStatusClosed, c.Status)
}

func TestRecordVerdict_WholeCase(t *testing.T) {
	c, detective, suspectID := investigatingCase(t, SeverityLevel2)
	require.NoError(t, c.SendToCourt(detective, ""))

	session, err := c.RecordVerdict(types.NewID(), VerdictInput{Verdict: VerdictGuilty, PunishmentTitle: "Fine"})
	require.NoError(t, err)
	assert.True(t, session.SuspectID.IsZero())
	assert.Equal(t, SuspectCriminal, c.FindSuspect(suspectID).Status)
	assert.Equal(t, CaseStatusClosed, c.Status)
}

func TestDaysWanted(t *testing.T) {
	now := time.Now()
	s := Suspect{Status: SuspectWanted, MarkedAt: now.Add(-40 * 24 * time.Hour)}
	assert.Equal(t, 40, s.DaysWanted(now))

	s.Status = SuspectArrested
	assert.Equal(t, 0, s.DaysWanted(now))
}

func TestRankWanted(t *testing.T) {
	now := time.Now()
	days := func(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }
	caseA, caseB := types.NewID(), types.NewID()

	records := []SuspectRecord{
		{Suspect: Suspect{ID: types.NewID(), CaseID: caseA, FullName: "Ali", NationalID: "111", Status: SuspectWanted, MarkedAt: days(40)}, CaseStatus: CaseStatusInvestigating, CaseSeverity: SeverityLevel2},
		{Suspect: Suspect{ID: types.NewID(), CaseID: caseB, FullName: "Ali", NationalID: "111", Status: SuspectWanted, MarkedAt: days(10)}, CaseStatus: CaseStatusInvestigating, CaseSeverity: SeverityCritical},
		{Suspect: Suspect{ID: types.NewID(), CaseID: caseA, FullName: "Mina", NationalID: "222", Status: SuspectWanted, MarkedAt: days(5)}, CaseStatus: CaseStatusInvestigating, CaseSeverity: SeverityLevel1},
		{Suspect: Suspect{ID: types.NewID(), CaseID: caseB, FullName: "Old", NationalID: "333", Status: SuspectWanted, MarkedAt: days(90)}, CaseStatus: CaseStatusClosed, CaseSeverity: SeverityCritical},
		{Suspect: Suspect{ID: types.NewID(), CaseID: caseB, FullName: "Caught", NationalID: "444", Status: SuspectArrested, MarkedAt: days(90)}, CaseStatus: CaseStatusInvestigating, CaseSeverity: SeverityCritical},
	}

	entries := RankWanted(records, now)
	require.Len(t, entries, 2)

	ali := entries[0]
	assert.Equal(t, "111", ali.NationalID)
	assert.Equal(t, 40, ali.MaxDaysWanted)
	assert.Equal(t, SeverityCritical, ali.MaxSeverity)
	assert.Equal(t, 160, ali.RankScore)
	assert.Equal(t, int64(160*RewardPerRankPoint), ali.Reward)
	assert.True(t, ali.HighAlert)
	assert.Len(t, ali.CaseIDs, 2)

	mina := entries[1]
	assert.Equal(t, 15, mina.RankScore)
	assert.False(t, mina.HighAlert)
}

func TestMarkHighAlert(t *testing.T) {
	c, detective, arrested := investigatingCase(t, SeverityLevel2)
	wanted, err := c.AddSuspect(detective, SuspectInput{FullName: "Hamed S."})
	require.NoError(t, err)
	other, err := c.AddSuspect(detective, SuspectInput{FullName: "Kian D."})
	require.NoError(t, err)
	c.GetDomainEvents()

	marked := c.MarkHighAlert([]types.ID{wanted.ID, arrested}, time.Now())
	assert.Equal(t, []types.ID{wanted.ID}, marked)
	assert.Equal(t, SuspectHighAlert, c.FindSuspect(wanted.ID).Status)
	assert.Equal(t, SuspectArrested, c.FindSuspect(arrested).Status)
	assert.Equal(t, SuspectWanted, c.FindSuspect(other.ID).Status)

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, CaseEventSuspectHighAlert, events[0].Type)

	assert.Empty(t, c.MarkHighAlert([]types.ID{wanted.ID}, time.Now()), "already marked")
	assert.Empty(t, c.GetDomainEvents())

	c.Status = CaseStatusClosed
	assert.Empty(t, c.MarkHighAlert([]types.ID{other.ID}, time.Now()))
	assert.Equal(t, SuspectWanted, c.FindSuspect(other.ID).Status)
}

func TestClone_IsIndependent(t *testing.T) {
	c, _ := newComplaint(t)
	clone := c.Clone()
	clone.Complaint.Stage = StageFormed
	clone.Complainants[0].Status = ComplainantApproved

	assert.Equal(t, StageToCadet, c.Complaint.Stage)
	assert.Equal(t, ComplainantPending, c.Complainants[0].Status)
	assert.Empty(t, clone.PendingEvents())
}
