package bignum

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBignum(t *testing.T) {

	t.Run("DivRound", func(t *testing.T) {
		for _, tc := range []struct{ a, b, want int64 }{
			{7, 2, 4}, {-7, 2, -4}, {5, 3, 2}, {4, 3, 1}, {-5, 3, -2}, {0, 9, 0},
		} {
			i := new(big.Int)
			DivRound(NewInt(tc.a), NewInt(tc.b), i)
			require.Equal(t, tc.want, i.Int64(), "%d/%d", tc.a, tc.b)
		}
	})

	t.Run("Center", func(t *testing.T) {
		Q := NewInt(11)
		require.Equal(t, int64(5), Center(NewInt(5), Q).Int64())
		require.Equal(t, int64(-5), Center(NewInt(6), Q).Int64())
		require.Equal(t, int64(-1), Center(NewInt(-1), Q).Int64())
		require.Equal(t, uint64(10), ModUint64(NewInt(-1), 11))
	})

	t.Run("Log2", func(t *testing.T) {
		require.InDelta(t, 60.0, Log2(new(big.Int).Lsh(NewInt(1), 60), 128), 1e-12)
		x := NewInt("0x1fffffffffffffffffffffffff")
		require.InDelta(t, 101.0, Log2(x, 128), 1e-9)
		require.InDelta(t, math.Log2(65537), Log2(NewInt(65537), 128), 1e-12)
	})
}
