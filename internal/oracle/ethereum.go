// Package oracle supplies cross-venue reference prices and transfer cost
// estimates for the cross-venue analyzer.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// getReserves() selector on a Uniswap V2 style pair contract.
var getReservesSelector = crypto.Keccak256([]byte("getReserves()"))[:4]

// ChainConfig describes one chain the oracle reads prices from. Pairs maps a
// token symbol to the address of a token/stable AMM pair contract on that
// chain; TokenIsToken0 records the token's slot in the pair.
type ChainConfig struct {
	Name          string
	RPCURL        string
	Pairs         map[string]string
	TokenIsToken0 map[string]bool
}

type chain struct {
	cfg    ChainConfig
	client *ethclient.Client
}

// AMMOracle implements domain.PriceOracle by reading spot reserves from AMM
// pair contracts over JSON-RPC. Both sides of a pair are assumed to carry the
// same decimals; pairs that do not must not be configured.
type AMMOracle struct {
	mu     sync.RWMutex
	chains map[string]*chain
	logger *slog.Logger
}

// NewAMMOracle dials every configured chain. A chain that fails to dial is
// skipped with a warning so one bad RPC endpoint does not disable the rest.
func NewAMMOracle(ctx context.Context, cfgs []ChainConfig, logger *slog.Logger) (*AMMOracle, error) {
	o := &AMMOracle{
		chains: make(map[string]*chain, len(cfgs)),
		logger: logger.With(slog.String("component", "oracle")),
	}

	for _, cfg := range cfgs {
		name := strings.ToLower(cfg.Name)
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			o.logger.Warn("chain dial failed, skipping",
				slog.String("chain", name),
				slog.String("error", err.Error()))
			continue
		}
		o.chains[name] = &chain{cfg: cfg, client: client}
	}

	if len(o.chains) == 0 {
		return nil, fmt.Errorf("oracle: no chains reachable")
	}
	return o, nil
}

var _ domain.PriceOracle = (*AMMOracle)(nil)

// CrossVenuePrice returns the spot price of token in the stable quote asset
// on the named chain. It returns domain.ErrNoPrice when the chain or pair is
// not configured; RPC failures are returned as-is so callers can tell
// transport trouble from an absent listing.
func (o *AMMOracle) CrossVenuePrice(ctx context.Context, venue, token string) (float64, error) {
	o.mu.RLock()
	ch, ok := o.chains[strings.ToLower(venue)]
	o.mu.RUnlock()
	if !ok {
		return 0, domain.ErrNoPrice
	}

	pairAddr, ok := ch.cfg.Pairs[token]
	if !ok {
		return 0, domain.ErrNoPrice
	}

	reserve0, reserve1, err := getReserves(ctx, ch.client, common.HexToAddress(pairAddr))
	if err != nil {
		return 0, fmt.Errorf("oracle: getReserves %s on %s: %w", token, venue, err)
	}

	tokenReserve, quoteReserve := reserve0, reserve1
	if !ch.cfg.TokenIsToken0[token] {
		tokenReserve, quoteReserve = reserve1, reserve0
	}
	if tokenReserve.Sign() == 0 {
		return 0, domain.ErrNoPrice
	}

	num := new(big.Float).SetInt(quoteReserve)
	den := new(big.Float).SetInt(tokenReserve)
	price, _ := new(big.Float).Quo(num, den).Float64()
	return price, nil
}

// Chains returns the names of the chains that dialed successfully.
func (o *AMMOracle) Chains() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.chains))
	for name := range o.chains {
		names = append(names, name)
	}
	return names
}

// Close releases all RPC connections.
func (o *AMMOracle) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.chains {
		ch.client.Close()
	}
	o.chains = map[string]*chain{}
}

func getReserves(ctx context.Context, client *ethclient.Client, pair common.Address) (*big.Int, *big.Int, error) {
	out, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &pair,
		Data: getReservesSelector,
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	// getReserves returns (uint112 reserve0, uint112 reserve1, uint32 ts),
	// ABI-encoded as three 32-byte words.
	if len(out) < 64 {
		return nil, nil, fmt.Errorf("short getReserves response: %d bytes", len(out))
	}
	reserve0 := new(big.Int).SetBytes(out[:32])
	reserve1 := new(big.Int).SetBytes(out[32:64])
	return reserve0, reserve1, nil
}
