package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAndLeave(t *testing.T) {
	var changes int
	r := New(func([]Member) { changes++ })

	member := r.Join("s1", "engineering", "Kira")
	assert.Equal(t, "engineering", member.Station)
	assert.Len(t, r.List(), 1)
	assert.Equal(t, 1, changes)

	r.Join("s2", "helm", "Dax")
	assert.Len(t, r.List(), 2)

	r.Leave("s1")
	assert.Len(t, r.List(), 1)
	assert.Equal(t, 3, changes)
}

func TestRejoinReplacesSession(t *testing.T) {
	r := New(nil)
	r.Join("s1", "engineering", "Kira")
	r.Join("s1", "tactical", "Kira")

	members := r.List()
	require.Len(t, members, 1)
	assert.Equal(t, "tactical", members[0].Station)
}

func TestLeaveUnknownSessionIsSilent(t *testing.T) {
	var changes int
	r := New(func([]Member) { changes++ })
	r.Leave("ghost")
	assert.Zero(t, changes)
}

func TestStationFilter(t *testing.T) {
	r := New(nil)
	r.Join("s1", "engineering", "Kira")
	r.Join("s2", "engineering", "Miles")
	r.Join("s3", "helm", "Dax")

	assert.Len(t, r.Station("engineering"), 2)
	assert.Len(t, r.Station("helm"), 1)
	assert.Empty(t, r.Station("science"))
}
