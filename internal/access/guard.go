// Package access implements the role-based routing guard. Decide is the
// single place the "who may see what" rules live; every protected route and
// the role middleware call it rather than re-implementing redirects.
package access

import "github.com/Tiisu/eco-action-hub/internal/domain"

// Kind enumerates the possible guard outcomes.
type Kind int

const (
	// Wait means the session is still loading; not a terminal decision.
	Wait Kind = iota
	// Render means the caller may show the protected content.
	Render
	// RedirectLogin means no identity is present.
	RedirectLogin
	// RedirectPending means an unapproved agent asked for the agent area.
	RedirectPending
	// RedirectDashboard means the role does not match; Target holds the
	// caller's own dashboard path.
	RedirectDashboard
	// RedirectHome means the profile role is unrecognized.
	RedirectHome
)

func (k Kind) String() string {
	switch k {
	case Wait:
		return "wait"
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectPending:
		return "redirect_pending"
	case RedirectDashboard:
		return "redirect_dashboard"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Decision is the guard verdict. Target is set for redirect kinds.
type Decision struct {
	Kind   Kind
	Target string
}

// Input captures everything Decide looks at. Required empty means the route
// has no role requirement beyond authentication being optional.
type Input struct {
	Loading       bool
	Authenticated bool
	Role          domain.Role
	Approved      bool
	Required      domain.Role
}

// DashboardPath maps a role to its own dashboard route.
func DashboardPath(role domain.Role) (string, bool) {
	switch role {
	case domain.RoleUser:
		return "/user-dashboard", true
	case domain.RoleAgent:
		return "/agent-dashboard", true
	case domain.RoleAdmin:
		return "/admin-dashboard", true
	default:
		return "", false
	}
}

// Decide is total and deterministic: every input yields exactly one
// decision. Rules are evaluated strictly in order.
func Decide(in Input) Decision {
	if in.Loading {
		return Decision{Kind: Wait}
	}
	if !in.Authenticated {
		return Decision{Kind: RedirectLogin, Target: "/login"}
	}
	if in.Required == "" {
		return Decision{Kind: Render}
	}
	if in.Required == domain.RoleAgent && in.Role == domain.RoleAgent && !in.Approved {
		return Decision{Kind: RedirectPending, Target: "/pending-approval"}
	}
	if in.Role != in.Required {
		if path, ok := DashboardPath(in.Role); ok {
			return Decision{Kind: RedirectDashboard, Target: path}
		}
		return Decision{Kind: RedirectHome, Target: "/"}
	}
	return Decision{Kind: Render}
}
