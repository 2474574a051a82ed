// Package proofstub is the default, in-process txproto.Builder: a
// gnark/groth16-backed prover adapted from the teacher's
// internal/zkp.CircuitManager and TransactionCircuit, generalized from a
// fixed-shape circuit compiled once at startup into one compiled per
// spend/output count actually requested (transactions in this domain
// rarely repeat a fixed arity the way the teacher's did).
package proofstub

import (
	"errors"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// ErrCircuitNotCompiled mirrors the teacher's sentinel for a requested
// proof shape that has not been compiled yet.
var ErrCircuitNotCompiled = errors.New("proofstub: circuit not compiled")

// balanceCircuit constrains value conservation: the sum of spent amounts
// must equal the sum of output amounts plus the fee. It is deliberately
// narrower than the teacher's TransactionCircuit (which also sketches
// Merkle-path and nullifier checks as unimplemented future work); here
// the arithmetic circuit is the one constraint this stub actually
// proves. The fee is the only public input; Merkle paths and nullifiers
// are not inputs to the circuit at all.
type balanceCircuit struct {
	Spends  []frontend.Variable `gnark:",secret"`
	Outputs []frontend.Variable `gnark:",secret"`
	Fee     frontend.Variable   `gnark:",public"`
}

func (c *balanceCircuit) Define(api frontend.API) error {
	var spendSum, outputSum frontend.Variable = 0, 0
	for _, v := range c.Spends {
		spendSum = api.Add(spendSum, v)
	}
	for _, v := range c.Outputs {
		outputSum = api.Add(outputSum, v)
	}
	api.AssertIsEqual(spendSum, api.Add(outputSum, c.Fee))
	return nil
}

// compiledShape holds everything needed to prove and verify one
// (numSpends, numOutputs) circuit shape.
type compiledShape struct {
	ccs frontend.CompiledConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// shapeKey identifies a circuit arity.
type shapeKey struct {
	spends  int
	outputs int
}

// CircuitCache compiles and caches balance circuits per arity, the way
// the teacher's CircuitManager caches circuits per ProofType, so that
// repeated transactions of the same shape skip Setup.
type CircuitCache struct {
	mu     sync.Mutex
	shapes map[shapeKey]*compiledShape
}

// NewCircuitCache returns an empty cache.
func NewCircuitCache() *CircuitCache {
	return &CircuitCache{shapes: make(map[shapeKey]*compiledShape)}
}

func (cc *CircuitCache) get(numSpends, numOutputs int) (*compiledShape, error) {
	key := shapeKey{spends: numSpends, outputs: numOutputs}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if shape, ok := cc.shapes[key]; ok {
		return shape, nil
	}

	circuit := &balanceCircuit{
		Spends:  make([]frontend.Variable, numSpends),
		Outputs: make([]frontend.Variable, numOutputs),
	}

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}

	shape := &compiledShape{ccs: ccs, pk: pk, vk: vk}
	cc.shapes[key] = shape
	return shape, nil
}
