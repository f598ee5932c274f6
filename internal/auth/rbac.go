package auth

import "strings"

type Role string

const (
	RoleAttendee  Role = "ATTENDEE"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// NormalizeRole maps arbitrary input to a known role. Unknown values
// degrade to attendee, the least-privileged role.
func NormalizeRole(role string) Role {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleOrganizer):
		return RoleOrganizer
	case string(RoleAttendee):
		return RoleAttendee
	default:
		return RoleAttendee
	}
}

// KnownRole reports whether the input names one of the defined roles.
func KnownRole(role string) bool {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case string(RoleAdmin), string(RoleOrganizer), string(RoleAttendee):
		return true
	default:
		return false
	}
}

func HasRole(role string, allowed ...Role) bool {
	if len(allowed) == 0 {
		return false
	}
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}
