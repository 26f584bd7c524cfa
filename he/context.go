package he

import (
	"fmt"
)

// Context is the modulus switching chain of a set of [EncryptionParameters]: the key level
// holds the full coefficient modulus and each following level drops its last prime.
// The levels are stored in chain order, from the key level to the last level, and indexed
// by their [ParmsID]. A Context is read-only and safe for concurrent use.
type Context struct {
	chain []*ContextData
	index map[ParmsID]int

	firstPos          int
	usingKeySwitching bool
	sec               SecurityLevel
}

// NewContext validates the parameters for the requested security level and builds the chain.
//
// The first level, used for ciphertexts and plaintexts, is derived from the key level by
// dropping the last prime when there is more than one; it is the key level itself otherwise,
// or if the derived parameters are not valid. If expandModChain is true, primes are then
// dropped one at a time until a single prime remains or the derived parameters are not valid.
//
// It returns the validation error of the key level, as a [*ConfigError], if any.
func NewContext(parms EncryptionParameters, expandModChain bool, sec SecurityLevel) (ctx *Context, err error) {

	var key *ContextData
	if key, err = Validate(parms, sec); err != nil {
		return nil, fmt.Errorf("cannot NewContext: %w", err)
	}

	ctx = &Context{
		index: map[ParmsID]int{},
		sec:   sec,
	}

	ctx.push(key)

	if parms.QCount() > 1 && ctx.extend() {

		ctx.firstPos = 1

		if expandModChain {
			for ctx.LastContextData().parms.QCount() > 1 {
				if !ctx.extend() {
					break
				}
			}
		}
	}

	ctx.usingKeySwitching = ctx.firstPos != 0

	for pos, cd := range ctx.chain {
		cd.chainIndex = len(ctx.chain) - 1 - pos
	}

	return
}

func (ctx *Context) push(cd *ContextData) {
	cd.context = ctx
	cd.pos = len(ctx.chain)
	ctx.index[cd.ParmsID()] = cd.pos
	ctx.chain = append(ctx.chain, cd)
}

// extend validates the parameters of the last level without their last prime
// and appends them to the chain if they are valid.
func (ctx *Context) extend() bool {

	next, err := Validate(ctx.LastContextData().parms.dropLastModulus(), ctx.sec)
	if err != nil {
		return false
	}

	ctx.push(next)
	return true
}

// KeyContextData returns the context data of the key level.
func (ctx *Context) KeyContextData() *ContextData {
	return ctx.chain[0]
}

// FirstContextData returns the context data of the first level used for ciphertexts and plaintexts.
func (ctx *Context) FirstContextData() *ContextData {
	return ctx.chain[ctx.firstPos]
}

// LastContextData returns the context data of the last level of the chain.
func (ctx *Context) LastContextData() *ContextData {
	return ctx.chain[len(ctx.chain)-1]
}

// GetContextData returns the context data of the given identifier, or nil if it is not in the chain.
func (ctx *Context) GetContextData(id ParmsID) *ContextData {
	if pos, ok := ctx.index[id]; ok {
		return ctx.chain[pos]
	}
	return nil
}

// KeyParmsID returns the identifier of the key level.
func (ctx *Context) KeyParmsID() ParmsID {
	return ctx.KeyContextData().ParmsID()
}

// FirstParmsID returns the identifier of the first level.
func (ctx *Context) FirstParmsID() ParmsID {
	return ctx.FirstContextData().ParmsID()
}

// LastParmsID returns the identifier of the last level.
func (ctx *Context) LastParmsID() ParmsID {
	return ctx.LastContextData().ParmsID()
}

// ChainLength returns the number of levels of the chain, key level included.
func (ctx *Context) ChainLength() int {
	return len(ctx.chain)
}

// UsingKeySwitching returns true if the first level differs from the key level.
func (ctx *Context) UsingKeySwitching() bool {
	return ctx.usingKeySwitching
}

// ParametersSet returns true if the parameters of the first level are valid.
func (ctx *Context) ParametersSet() bool {
	return ctx.FirstContextData().qualifiers.ParametersSet()
}

// SecurityLevel returns the requested security level.
func (ctx *Context) SecurityLevel() SecurityLevel {
	return ctx.sec
}
