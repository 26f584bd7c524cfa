package bignum

import (
	"fmt"
	"math/big"

	"github.com/ALTree/bigfloat"
)

// NewFloat creates a new *big.Float with the given precision.
// Accepted types are: int, int64, uint64, float64, *big.Int or *big.Float.
func NewFloat(x interface{}, prec uint) (y *big.Float) {

	y = new(big.Float)
	y.SetPrec(prec)

	if x == nil {
		return
	}

	switch x := x.(type) {
	case int:
		y.SetInt64(int64(x))
	case int64:
		y.SetInt64(x)
	case uint64:
		y.SetUint64(x)
	case float64:
		y.SetFloat64(x)
	case *big.Int:
		y.SetInt(x)
	case *big.Float:
		y.Set(x)
	default:
		panic(fmt.Sprintf("cannot NewFloat: accepted types are int, int64, uint64, float64, *big.Int, *big.Float, but is %T", x))
	}

	return
}

// Log returns ln(x) at the precision of x.
func Log(x *big.Float) (ln *big.Float) {
	return bigfloat.Log(x)
}

// Log2 returns log2(x) as a float64, computed with prec bits of precision.
// x must be strictly positive.
func Log2(x *big.Int, prec uint) float64 {

	if x.Sign() <= 0 {
		panic(fmt.Errorf("cannot Log2: x must be strictly positive but is %v", x))
	}

	ln2 := Log(NewFloat(2, prec))
	lnx := Log(NewFloat(x, prec))

	f, _ := lnx.Quo(lnx, ln2).Float64()
	return f
}
