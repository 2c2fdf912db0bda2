package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	participant := &Claims{Subject: "p-1", Role: "participant", Scopes: map[string]struct{}{ScopeActivitiesWrite: {}}}
	admin := &Claims{Subject: "a-1", Role: RoleAdmin}

	assert.True(t, Allowed(participant, ScopeActivitiesWrite))
	assert.False(t, Allowed(participant, ScopeBonusesAward))
	assert.True(t, Allowed(admin, ScopeBonusesAward))
	assert.False(t, Allowed(nil, ScopeActivitiesRead))
}

func TestActsFor(t *testing.T) {
	participant := &Claims{Subject: "p-1", Role: "participant"}
	admin := &Claims{Subject: "a-1", Role: RoleAdmin}

	assert.True(t, ActsFor(participant, "p-1"))
	assert.False(t, ActsFor(participant, "p-2"))
	assert.True(t, ActsFor(admin, "p-2"))
	assert.False(t, ActsFor(nil, "p-1"))
}
