// Package authz evaluates whether an actor may perform an action on a
// resource. The workflow engine only gates on the boolean result; the
// role/permission matrix lives here.
package authz

import "github.com/hrops/casetrack/internal/domain"

// Resource and action names used across the case workflow.
const (
	ResourceIncident   = "incident"
	ResourceNotice     = "notice"
	ResourceResolution = "resolution"
	ResourceStage      = "stage"

	ActionCreate      = "create"
	ActionReview      = "review"
	ActionConvert     = "convert"
	ActionIssue       = "issue"
	ActionApprove     = "approve"
	ActionRespond     = "respond"
	ActionClose       = "close"
	ActionAcknowledge = "acknowledge"
	ActionFinalize    = "finalize"
	ActionOverride    = "override"
	ActionComment     = "comment"
)

var rolePermissions = map[domain.Role][]string{
	domain.RoleEmployee: {
		"incident.create",
		"notice.respond",
		"resolution.acknowledge",
		"incident.comment",
	},
	domain.RoleHR: {
		"incident.create",
		"incident.review",
		"incident.convert",
		"incident.close",
		"incident.comment",
		"notice.issue",
		"notice.close",
		"notice.respond",
		"resolution.create",
		"resolution.finalize",
		"resolution.acknowledge",
		"stage.override",
	},
	domain.RoleManager: {
		"incident.create",
		"incident.comment",
		"notice.approve",
		"resolution.approve",
	},
	domain.RoleDirector: {
		"incident.create",
		"incident.review",
		"incident.convert",
		"incident.close",
		"incident.comment",
		"notice.issue",
		"notice.approve",
		"notice.close",
		"resolution.create",
		"resolution.approve",
		"resolution.finalize",
		"stage.override",
	},
}

// Evaluator answers can(actor, resource, action) from a static
// role-permission matrix.
type Evaluator struct {
	perms map[domain.Role]map[string]struct{}
}

func NewEvaluator() *Evaluator {
	perms := make(map[domain.Role]map[string]struct{}, len(rolePermissions))
	for role, keys := range rolePermissions {
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
		}
		perms[role] = set
	}
	return &Evaluator{perms: perms}
}

// Can reports whether the actor may perform action on resource.
func (e *Evaluator) Can(actor domain.Actor, resource, action string) bool {
	set, ok := e.perms[actor.Role]
	if !ok {
		return false
	}
	_, ok = set[resource+"."+action]
	return ok
}
