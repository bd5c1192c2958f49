package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantScope Scope
		wantErr   bool
	}{
		{
			name:      "simple repository scope",
			input:     "repository:myrepo:pull",
			wantScope: Scope{Type: "repository", Name: "myrepo", Actions: []string{"pull"}},
		},
		{
			name:      "multiple actions with spaces",
			input:     "repository:myrepo:push, pull,delete",
			wantScope: Scope{Type: "repository", Name: "myrepo", Actions: []string{"push", "pull", "delete"}},
		},
		{
			name:      "org wildcard",
			input:     "repository:myorg/*:*",
			wantScope: Scope{Type: "repository", Name: "myorg/*", Actions: []string{"*"}},
		},
		{name: "missing actions", input: "repository:myrepo", wantErr: true},
		{name: "empty name", input: "repository::pull", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := ParseScope(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScope, scope)
		})
	}
}

func TestScope_Allows(t *testing.T) {
	tests := []struct {
		name   string
		scope  Scope
		repo   string
		action string
		want   bool
	}{
		{"exact match", Scope{"repository", "myrepo", []string{"pull"}}, "myrepo", ActionPull, true},
		{"wrong action", Scope{"repository", "myrepo", []string{"pull"}}, "myrepo", ActionPush, false},
		{"wrong repository", Scope{"repository", "myrepo", []string{"pull"}}, "other", ActionPull, false},
		{"wildcard repository", Scope{"repository", "*", []string{"pull"}}, "myorg/app", ActionPull, true},
		{"wildcard action", Scope{"repository", "myrepo", []string{"*"}}, "myrepo", ActionDelete, true},
		{"org prefix", Scope{"repository", "myorg/*", []string{"push"}}, "myorg/team/app", ActionPush, true},
		{"org prefix does not match sibling", Scope{"repository", "myorg/*", []string{"push"}}, "myorgx/app", ActionPush, false},
		{"org prefix does not match org itself", Scope{"repository", "myorg/*", []string{"push"}}, "myorg", ActionPush, false},
		{"non repository type", Scope{"registry", "catalog", []string{"*"}}, "catalog", ActionPull, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Allows(tt.repo, tt.action))
		})
	}
}

func TestScope_StringRoundTrip(t *testing.T) {
	in := "repository:myorg/app:pull,push"
	scope, err := ParseScope(in)
	require.NoError(t, err)
	assert.Equal(t, in, scope.String())
}

func TestSubject_Anonymous(t *testing.T) {
	assert.True(t, Subject{}.Anonymous())
	assert.False(t, Subject{Name: "alice"}.Anonymous())
}
