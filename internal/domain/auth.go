package domain

import (
	"fmt"
	"strings"
)

// Registry actions a subject can be authorized for.
const (
	ActionPull   = "pull"
	ActionPush   = "push"
	ActionDelete = "delete"
	ActionAll    = "*"
)

// Subject identifies the caller as established by the authorizer. The zero
// value is the anonymous caller.
type Subject struct {
	Name   string
	Scopes []Scope
}

// Anonymous reports whether no identity was established.
func (s Subject) Anonymous() bool {
	return s.Name == ""
}

// Scope represents a registry scope (repository:name:actions).
// Format follows the distribution token scope specification.
type Scope struct {
	Type    string   // "repository" for repository access
	Name    string   // repository name, "org/*" prefix, or "*" for all
	Actions []string // ["pull", "push", "delete", "*"]
}

// ParseScope parses a scope string of the form type:name:action1,action2.
func ParseScope(s string) (Scope, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Scope{}, fmt.Errorf("invalid scope format: %s", s)
	}

	scope := Scope{
		Type: parts[0],
		Name: parts[1],
	}
	for _, action := range strings.Split(parts[2], ",") {
		if action = strings.TrimSpace(action); action != "" {
			scope.Actions = append(scope.Actions, action)
		}
	}

	return scope, nil
}

// Allows checks whether the scope grants action on the repository.
// Supports exact names, "*" and org-level "org/*" prefixes.
func (s Scope) Allows(repository, action string) bool {
	if s.Type != "repository" {
		return false
	}

	if s.Name != "*" && s.Name != repository {
		prefix, ok := strings.CutSuffix(s.Name, "/*")
		if !ok || !strings.HasPrefix(repository, prefix+"/") {
			return false
		}
	}

	for _, a := range s.Actions {
		if a == ActionAll || a == action {
			return true
		}
	}

	return false
}

// String returns the scope in its wire format.
func (s Scope) String() string {
	return fmt.Sprintf("%s:%s:%s", s.Type, s.Name, strings.Join(s.Actions, ","))
}
