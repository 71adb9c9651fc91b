package opc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/signalcore/internal/logging"
)

// multicall3Address is the well-known multicall3 deployment address used
// across EVM chains (§6 "batched multicall aggregator").
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Call is one read against a contract, batched through multicall3.
type Call struct {
	Target common.Address
	Data   []byte
}

// RPCPool multiplexes several JSON-RPC endpoints, each guarded by its own
// circuit breaker, picking the first healthy one to serve a batched call
// (§4.2 "Discovery runs across three RPC endpoints; the first successful
// response wins").
type RPCPool struct {
	clients  []*ethclient.Client
	breakers []*gobreaker.CircuitBreaker
	timeout  time.Duration
	log      zerolog.Logger
}

// NewRPCPool dials every endpoint eagerly; a dial failure for one endpoint
// does not prevent the pool from serving calls through the others.
func NewRPCPool(endpoints []string, timeout time.Duration) (*RPCPool, error) {
	log := logging.Component("opc.rpc")
	pool := &RPCPool{timeout: timeout, log: log}

	for _, ep := range endpoints {
		client, err := ethclient.Dial(ep)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", ep).Msg("failed to dial RPC endpoint")
			continue
		}
		pool.clients = append(pool.clients, client)
		pool.breakers = append(pool.breakers, gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        ep,
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		}))
	}

	if len(pool.clients) == 0 {
		return nil, fmt.Errorf("on-chain price connector: no RPC endpoint reachable")
	}
	return pool, nil
}

// Aggregate executes calls through multicall3's aggregate(Call[]) method,
// racing across endpoints and returning the first success.
func (p *RPCPool) Aggregate(ctx context.Context, calls []Call) ([][]byte, error) {
	packed, err := packAggregate(calls)
	if err != nil {
		return nil, fmt.Errorf("packing multicall aggregate: %w", err)
	}

	var lastErr error
	for i, client := range p.clients {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		result, err := p.breakers[i].Execute(func() (interface{}, error) {
			return client.CallContract(callCtx, ethereum.CallMsg{To: &multicall3Address, Data: packed}, nil)
		})
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return unpackAggregate(result.([]byte))
	}
	return nil, fmt.Errorf("all RPC endpoints failed, last error: %w", lastErr)
}

// packAggregate ABI-encodes aggregate((address,bytes)[]) -> (uint256,bytes[]).
func packAggregate(calls []Call) ([]byte, error) {
	addressBytesTy, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "target", Type: "address"},
		{Name: "callData", Type: "bytes"},
	})
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: addressBytesTy}}

	type aggCall struct {
		Target   common.Address
		CallData []byte
	}
	packed := make([]aggCall, len(calls))
	for i, c := range calls {
		packed[i] = aggCall{Target: c.Target, CallData: c.Data}
	}

	data, err := args.Pack(packed)
	if err != nil {
		return nil, err
	}

	selector := methodSelector("aggregate((address,bytes)[])")
	return append(selector, data...), nil
}

func unpackAggregate(raw []byte) ([][]byte, error) {
	bytesArrTy, err := abi.NewType("bytes[]", "", nil)
	if err != nil {
		return nil, err
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: uint256Ty}, {Type: bytesArrTy}}

	values, err := args.Unpack(raw)
	if err != nil || len(values) != 2 {
		return nil, fmt.Errorf("unexpected multicall response shape: %w", err)
	}
	results, ok := values[1].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected multicall return type")
	}
	return results, nil
}

// BigFromWei is a small helper kept near the RPC boundary since every
// on-chain read arrives as wei-scaled integers.
func BigFromWei(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
