package auth

// Rank orders police roles. Zero means the principal holds no police role.
type Rank int

// MinPoliceRank is the lowest rank above cadet; holders may file scene
// reports without the explicit scene action.
const MinPoliceRank Rank = 2

var rankTable = map[Role]Rank{
	RoleCadet:         1,
	RolePatrolOfficer: 2,
	RolePoliceOfficer: 3,
	RoleDetective:     3,
	RoleSergeant:      4,
	RoleCaptain:       5,
	RoleChief:         6,
}

// RankOf returns the rank of a single role.
func RankOf(role Role) Rank {
	return rankTable[role.Normalize()]
}

// RankOfRoles returns the highest rank among roles, or 0.
func RankOfRoles(roles []Role) Rank {
	var best Rank
	for _, role := range roles {
		if r := RankOf(role); r > best {
			best = r
		}
	}
	return best
}

// PrincipalRank returns the rank of p. Action grants play no part.
func PrincipalRank(p Principal) Rank {
	return RankOfRoles(p.Roles)
}

// IsSuperior reports whether a strictly outranks b.
func IsSuperior(a, b Principal) bool {
	return PrincipalRank(a) > PrincipalRank(b)
}

// IsNonCadetPolice reports whether p holds a police role above cadet.
func IsNonCadetPolice(p Principal) bool {
	return PrincipalRank(p) >= MinPoliceRank
}

// IsChief reports whether p holds the chief rank.
func IsChief(p Principal) bool {
	return PrincipalRank(p) >= RankOf(RoleChief)
}
