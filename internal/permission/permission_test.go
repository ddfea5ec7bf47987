package permission

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GrantRevoke(t *testing.T) {
	r := NewRegistry(Ignore)

	assert.False(t, r.Has("76561198000000001", Ignore))

	require.NoError(t, r.Grant("76561198000000001", Ignore))
	assert.True(t, r.Has("76561198000000001", Ignore))
	assert.False(t, r.Has("76561198000000002", Ignore))

	held, err := r.Revoke("76561198000000001", Ignore)
	require.NoError(t, err)
	assert.True(t, held)
	assert.False(t, r.Has("76561198000000001", Ignore))

	held, err = r.Revoke("76561198000000001", Ignore)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRegistry_UnknownPermission(t *testing.T) {
	r := NewRegistry(Ignore)

	err := r.Grant("uid", "siegelimit.admin")
	assert.True(t, errors.Is(err, ErrUnknownPermission))

	_, err = r.Revoke("uid", "siegelimit.admin")
	assert.True(t, errors.Is(err, ErrUnknownPermission))

	assert.False(t, r.Has("uid", "siegelimit.admin"))
}

func TestRegistry_EmptyUID(t *testing.T) {
	r := NewRegistry(Ignore)
	assert.Error(t, r.Grant("", Ignore))
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry(Ignore)
	require.NoError(t, r.Grant("old", Ignore))

	require.NoError(t, r.Replace(Ignore, []string{"b", "a", ""}))

	assert.Equal(t, []string{"a", "b"}, r.Holders(Ignore))
	assert.False(t, r.Has("old", Ignore))
}

func TestRegistry_RegisterTwiceKeepsGrants(t *testing.T) {
	r := NewRegistry(Ignore)
	require.NoError(t, r.Grant("a", Ignore))

	r.Register(Ignore)

	assert.True(t, r.Has("a", Ignore))
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(Ignore)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Grant("uid", Ignore)
				r.Has("uid", Ignore)
				_, _ = r.Revoke("uid", Ignore)
			}
		}(i)
	}
	wg.Wait()
}
