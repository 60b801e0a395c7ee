// Package auth provides the role, action and rank model that gates every
// case transition.
package auth

import "strings"

// Role is a named bundle of actions. Names are matched case-insensitively.
type Role string

// Citizen-facing roles
const (
	RoleBaseUser    Role = "base user"
	RoleComplainant Role = "complainant"
	RoleWitness     Role = "witness"
	RoleSuspect     Role = "suspect"
	RoleCriminal    Role = "criminal"
)

// Police roles, lowest rank first
const (
	RoleCadet         Role = "cadet"
	RolePatrolOfficer Role = "patrol officer"
	RolePoliceOfficer Role = "police officer"
	RoleDetective     Role = "detective"
	RoleSergeant      Role = "sergeant"
	RoleCaptain       Role = "captain"
	RoleChief         Role = "chief"
)

// Other staff
const (
	RoleAdministrator Role = "administrator"
	RoleJudge         Role = "judge"
	RoleCoroner       Role = "coroner"
)

// Normalize lower-cases and trims a role name.
func (r Role) Normalize() Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}

// DefaultRoleActions is the seeded role table.
var DefaultRoleActions = map[Role][]Action{
	RoleBaseUser: {
		ActionTipSubmit, ActionCaseSubmitComplaint,
	},
	RoleAdministrator: {
		ActionRBACManage, ActionDashboardRead, ActionCaseReadAll,
	},
	RoleChief: {
		ActionCaseAssignDetective, ActionCaseSceneCreate, ActionCaseSendToCourt,
		ActionInterrogationChiefReview, ActionCaseReadAll, ActionDashboardRead,
		ActionCaseSceneAddComplainant,
	},
	RoleCaptain: {
		ActionCaseAssignDetective, ActionCaseSendToCourt, ActionInterrogationCaptainDecision,
		ActionCaseReadAll, ActionDashboardRead, ActionCaseSceneAddComplainant,
	},
	RoleSergeant: {
		ActionCaseAssignDetective, ActionCaseComplaintOfficerReview, ActionSuspectManage,
		ActionInterrogationManage, ActionCaseReadAll, ActionCaseSceneAddComplainant,
	},
	RoleDetective: {
		ActionInvestigationBoardManage, ActionSuspectManage, ActionInterrogationManage,
		ActionTipDetectiveReview, ActionCaseReadAll, ActionCaseSceneAddComplainant,
	},
	RolePoliceOfficer: {
		ActionCaseSceneCreate, ActionCaseComplaintOfficerReview, ActionEvidenceManage,
		ActionTipOfficerReview, ActionRewardVerify, ActionCaseReadAll,
		ActionCaseSceneAddComplainant,
	},
	RolePatrolOfficer: {
		ActionCaseSceneCreate, ActionEvidenceManage, ActionCaseReadAll,
		ActionCaseSceneAddComplainant,
	},
	RoleCadet: {
		ActionCaseComplaintInternReview, ActionCaseReadAll,
	},
	RoleComplainant: {
		ActionCaseSubmitComplaint, ActionTipSubmit,
	},
	RoleWitness: {
		ActionTipSubmit,
	},
	RoleSuspect:  {},
	RoleCriminal: {},
	RoleJudge: {
		ActionJudiciaryVerdict, ActionCaseReadAll,
	},
	RoleCoroner: {
		ActionEvidenceBiologicalReview, ActionEvidenceManage, ActionCaseReadAll,
	},
}

// HasAnyRole checks if the user has any of the specified roles.
func HasAnyRole(userRoles []Role, requiredRoles ...Role) bool {
	for _, ur := range userRoles {
		for _, rr := range requiredRoles {
			if ur.Normalize() == rr.Normalize() {
				return true
			}
		}
	}
	return false
}
