package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDefaults(t *testing.T) {
	c := Builtin()
	keys, err := c.Select(Selection{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSet, keys)

	keys, err = c.Select(Selection{Defaults: []string{"london", "paris"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"london", "paris"}, keys)
}

func TestSelectCombinesAndDedupes(t *testing.T) {
	c := Builtin()
	keys, err := c.Select(Selection{Keys: []string{"paris", "tokyo"}, Default: true})
	require.NoError(t, err)
	assert.Equal(t, "paris", keys[0])
	assert.Equal(t, "tokyo", keys[1])
	assert.Len(t, keys, 2+len(DefaultSet)-2)
}

func TestSelectAllAndRegion(t *testing.T) {
	c := Builtin()
	all, err := c.Select(Selection{All: true})
	require.NoError(t, err)
	// 跨 provider 的重复键值只保留一次
	assert.Less(t, len(all), len(c.AllKeys()))

	linode, err := c.Select(Selection{All: true, Provider: ProviderLinode})
	require.NoError(t, err)
	assert.Equal(t, c.Keys(ProviderLinode), linode)

	europe, err := c.Select(Selection{Region: RegionEurope, Provider: ProviderVultr})
	require.NoError(t, err)
	assert.Equal(t, c.InRegion(ProviderVultr, RegionEurope), europe)

	_, err = c.Select(Selection{Region: "antarctica"})
	assert.Error(t, err)
}
