package permission

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	cases := []struct {
		has, required string
		want          bool
	}{
		{"admin.ban", "admin.ban", true},
		{"ADMIN.Ban", "admin.ban", true},
		{"admin.*", "admin.ban.temp", true},
		{"admin.*", "admin.ban", true},
		{"*", "anything.at.all", true},
		{"admin", "admin.ban", false},
		{"admin.ban", "admin", false},
		{"admin.*", "admin", false},
		{"admin.kick", "admin.ban", false},
		{"mod.*", "mod.kick", true},
		{"mod.kick.soft", "mod.kick", false},
		{"admin.ban.*", "admin.kick.x", false},
		{"admin.", "admin", true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_vs_%s", tc.has, tc.required), func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.has, tc.required))
		})
	}
}

func TestStoreOpenPermissions(t *testing.T) {
	s := NewStore()
	assert.True(t, s.Has("nobody", "none"))
	assert.True(t, s.Has("nobody", ""))
	assert.False(t, s.Has("nobody", "admin"))
}

func TestStoreAnyGrantWins(t *testing.T) {
	s := NewStore()
	s.Grant("u1", "music.play")
	s.Grant("u1", "mod.*")
	s.Grant("u1", "mod.*")

	assert.True(t, s.Has("u1", "mod.kick"))
	assert.True(t, s.Has("u1", "music.play"))
	assert.False(t, s.Has("u1", "admin.ban"))
	assert.False(t, s.Has("u2", "mod.kick"))
	assert.Equal(t, []string{"music.play", "mod.*", "mod.*"}, s.Grants("u1"))
}

func TestStoreGrantAllAndUsers(t *testing.T) {
	s := NewStore()
	s.GrantAll(map[string][]string{
		"b": {"x.y"},
		"a": {"z"},
	})
	assert.Equal(t, []string{"a", "b"}, s.Users())
	assert.True(t, s.Has("b", "x.y"))
}

func TestStoreConcurrentGrantAndCheck(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Grant(fmt.Sprintf("u%d", i%5), fmt.Sprintf("perm.%d", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = s.Has(fmt.Sprintf("u%d", i%5), "perm.1")
		}(i)
	}
	wg.Wait()

	total := 0
	for _, id := range s.Users() {
		total += len(s.Grants(id))
	}
	require.Equal(t, 50, total)
}
