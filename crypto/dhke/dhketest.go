package dhke

import (
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScheme runs the tests every Scheme must pass.
func TestScheme[Priv, Pub any](t *testing.T, scheme Scheme[Priv, Pub]) {
	generate := func(i int) (Pub, Priv) {
		rng := mrand.New(mrand.NewSource(int64(i)))
		pub, priv, err := scheme.Generate(rng)
		require.NoError(t, err)
		return pub, priv
	}
	marshal := func(pub Pub) []byte {
		data, err := scheme.AppendPublic(nil, &pub)
		require.NoError(t, err)
		return data
	}
	t.Run("Name", func(t *testing.T) {
		require.NotEmpty(t, scheme.Name())
	})
	t.Run("DerivePublic", func(t *testing.T) {
		pub1, priv := generate(0)
		pub2 := scheme.DerivePublic(&priv)
		require.Equal(t, marshal(pub1), marshal(pub2))
	})
	t.Run("AppendParsePublic", func(t *testing.T) {
		pub, _ := generate(0)
		data := marshal(pub)
		pub2, err := scheme.ParsePublic(data)
		require.NoError(t, err)
		require.Equal(t, data, marshal(pub2))
	})
	t.Run("ComputeShared", func(t *testing.T) {
		pub1, priv1 := generate(1)
		pub2, priv2 := generate(2)
		shared1, err := scheme.ComputeShared(&priv1, &pub2)
		require.NoError(t, err)
		shared2, err := scheme.ComputeShared(&priv2, &pub1)
		require.NoError(t, err)
		require.Equal(t, shared1, shared2)
		require.NotEmpty(t, shared1)

		pub3, _ := generate(3)
		shared3, err := scheme.ComputeShared(&priv1, &pub3)
		require.NoError(t, err)
		require.NotEqual(t, shared1, shared3)
	})
}
