// internal/lifecycle/policy.go
package lifecycle

import (
	"fmt"

	"citizen-services/internal/models"
)

// StatusPolicy maps a target status to the roles allowed to apply it.
// The policy is data passed in at engine construction, not conditionals
// scattered through handlers.
type StatusPolicy map[models.ApplicationStatus][]models.Role

// Allows reports whether the role may move an application to the status.
// SUBMITTED is reachable only through Create and is never granted here.
func (p StatusPolicy) Allows(role models.Role, status models.ApplicationStatus) bool {
	for _, r := range p[status] {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultPolicy mirrors the deployment's review pipeline: GN decides
// first-line outcomes, DS holds, forwards and closes.
func DefaultPolicy() StatusPolicy {
	return StatusPolicy{
		models.StatusApprovedByGN: {models.RoleGN},
		models.StatusRejectedByGN: {models.RoleGN},
		models.StatusOnHoldByDS:   {models.RoleDS},
		models.StatusSentToDRP:    {models.RoleDS},
		models.StatusCompleted:    {models.RoleDS},
	}
}

// PolicyFromConfig builds a StatusPolicy from the raw config map,
// rejecting unknown statuses and roles.
func PolicyFromConfig(raw map[string][]string) (StatusPolicy, error) {
	if len(raw) == 0 {
		return DefaultPolicy(), nil
	}
	policy := make(StatusPolicy, len(raw))
	for statusStr, roleStrs := range raw {
		status := models.ApplicationStatus(statusStr)
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status in policy: %s", statusStr)
		}
		if status == models.StatusSubmitted {
			return nil, fmt.Errorf("SUBMITTED is reachable only through Create")
		}
		roles := make([]models.Role, 0, len(roleStrs))
		for _, rs := range roleStrs {
			role := models.Role(rs)
			if !role.Valid() {
				return nil, fmt.Errorf("unknown role in policy for %s: %s", statusStr, rs)
			}
			roles = append(roles, role)
		}
		policy[status] = roles
	}
	return policy, nil
}
