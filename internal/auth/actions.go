package auth

import (
	"fmt"
	"sort"
)

// Action is a dot-namespaced capability token. The set is closed: role
// grants loaded from storage are rejected if they name an unknown action.
type Action string

// Case intake and review actions
const (
	ActionCaseSubmitComplaint        Action = "case.submit_complaint"
	ActionCaseComplaintInternReview  Action = "case.complaint.intern_review"
	ActionCaseComplaintOfficerReview Action = "case.complaint.officer_review"
	ActionCaseSceneCreate            Action = "case.scene.create"
	ActionCaseSceneAddComplainant    Action = "case.scene.add_complainant"
	ActionCaseAssignDetective        Action = "case.assign_detective"
	ActionCaseSendToCourt            Action = "case.send_to_court"
	ActionCaseReadAll                Action = "case.read_all"
)

// Investigation actions
const (
	ActionInvestigationBoardManage     Action = "investigation.board.manage"
	ActionSuspectManage                Action = "suspect.manage"
	ActionInterrogationManage          Action = "interrogation.manage"
	ActionInterrogationCaptainDecision Action = "interrogation.captain_decision"
	ActionInterrogationChiefReview     Action = "interrogation.chief_review"
	ActionJudiciaryVerdict             Action = "judiciary.verdict"
)

// Evidence, tips and rewards. Granted by the role table and carried here so
// the token set stays complete, even though no case operation checks them.
const (
	ActionEvidenceManage           Action = "evidence.manage"
	ActionEvidenceBiologicalReview Action = "evidence.biological.review"
	ActionTipSubmit                Action = "tip.submit"
	ActionTipOfficerReview         Action = "tip.officer_review"
	ActionTipDetectiveReview       Action = "tip.detective_review"
	ActionRewardVerify             Action = "reward.verify"
)

// Administration actions
const (
	ActionRBACManage    Action = "rbac.manage"
	ActionDashboardRead Action = "dashboard.read"
)

var knownActions = map[Action]struct{}{
	ActionCaseSubmitComplaint:          {},
	ActionCaseComplaintInternReview:    {},
	ActionCaseComplaintOfficerReview:   {},
	ActionCaseSceneCreate:              {},
	ActionCaseSceneAddComplainant:      {},
	ActionCaseAssignDetective:          {},
	ActionCaseSendToCourt:              {},
	ActionCaseReadAll:                  {},
	ActionInvestigationBoardManage:     {},
	ActionSuspectManage:                {},
	ActionInterrogationManage:          {},
	ActionInterrogationCaptainDecision: {},
	ActionInterrogationChiefReview:     {},
	ActionJudiciaryVerdict:             {},
	ActionEvidenceManage:               {},
	ActionEvidenceBiologicalReview:     {},
	ActionTipSubmit:                    {},
	ActionTipOfficerReview:             {},
	ActionTipDetectiveReview:           {},
	ActionRewardVerify:                 {},
	ActionRBACManage:                   {},
	ActionDashboardRead:                {},
}

// ParseAction validates a token against the known action set.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := knownActions[a]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// AllActions returns every known action in lexical order.
func AllActions() []Action {
	out := make([]Action, 0, len(knownActions))
	for a := range knownActions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ActionSet is an immutable-by-convention set of actions.
type ActionSet map[Action]struct{}

// NewActionSet builds a set from a list of actions.
func NewActionSet(actions ...Action) ActionSet {
	s := make(ActionSet, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether the set contains a.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the members in lexical order.
func (s ActionSet) Sorted() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
