package events

import "github.com/gatherhall/server/internal/auth"

// Policy predicates are pure functions over (actor, resource). They are
// layered: the router applies the coarse role gates, the service applies
// the fine-grained ownership checks, and either layer can be tested on
// its own.

// CanCreate reports whether the actor may create events.
func CanCreate(actor *auth.Claims) bool {
	if actor == nil {
		return false
	}
	return auth.HasRole(actor.Role, auth.RoleOrganizer, auth.RoleAdmin)
}

// CanModify reports whether the actor may update or delete the event.
// Admins satisfy every ownership check.
func CanModify(actor *auth.Claims, event *Event) bool {
	if actor == nil || event == nil {
		return false
	}
	if auth.IsAdmin(actor.Role) {
		return true
	}
	return actor.UserID() == event.OrganizerID
}

// CanApprove reports whether the actor may run the approval transition.
func CanApprove(actor *auth.Claims) bool {
	if actor == nil {
		return false
	}
	return auth.IsAdmin(actor.Role)
}

// VisibleScope shapes the list query for the actor: admins see every
// event, everyone else sees only approved ones. An organizer's own
// unapproved events are excluded from their list view like anyone
// else's.
func VisibleScope(actor *auth.Claims) Filters {
	if actor != nil && auth.IsAdmin(actor.Role) {
		return Filters{}
	}
	return Filters{ApprovedOnly: true}
}
