// Package resolver is the name-resolution collaborator: *.eth names resolve
// against the mainnet registry, *.base.eth names against the Base registry.
package resolver

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/singleflight"

	"github.com/arshiaxbt/Aura/internal/remote"
	"github.com/arshiaxbt/Aura/pkg/cache"
	"github.com/arshiaxbt/Aura/pkg/identifier"
)

// ErrUnresolvable means the name has no address record.
var ErrUnresolvable = errors.New("name does not resolve")

// Resolver maps a dotted name to a 0x address. Input is case-insensitive;
// implementations are idempotent and safe to retry.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

const (
	// ENSRegistry is the mainnet ENS registry.
	ENSRegistry = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"
	// BaseRegistry is the Basenames registry on Base.
	BaseRegistry = "0xb94704422c2a1e396835a571837aa5ae53285a95"

	DefaultTTL = 30 * time.Minute

	selectorResolver = "0178b8bf" // resolver(bytes32)
	selectorAddr     = "3b3b57de" // addr(bytes32)
)

// NameHash computes the EIP-137 node of a lower-case dotted name.
func NameHash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		lh := keccak([]byte(labels[i]))
		node = keccak(node[:], lh[:])
	}
	return node
}

func keccak(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RPCConfig configures an RPCResolver.
type RPCConfig struct {
	Endpoint string
	Registry string
	Remote   remote.Options
	TTL      time.Duration
	Clock    func() time.Time
}

// RPCResolver resolves names with eth_call against a registry contract:
// registry.resolver(node), then resolver.addr(node).
type RPCResolver struct {
	endpoint string
	registry string
	rc       *remote.Client
	ttl      time.Duration
	cache    *cache.Cache[string]
	group    singleflight.Group
}

func NewRPCResolver(cfg RPCConfig) *RPCResolver {
	if cfg.Remote.Service == "" {
		cfg.Remote.Service = "resolver"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	var opts []cache.Option
	if cfg.Clock != nil {
		opts = append(opts, cache.WithClock(cfg.Clock))
	}
	return &RPCResolver{
		endpoint: cfg.Endpoint,
		registry: strings.ToLower(cfg.Registry),
		rc:       remote.New(cfg.Remote),
		ttl:      cfg.TTL,
		cache:    cache.New[string](opts...),
	}
}

func (r *RPCResolver) Resolve(ctx context.Context, name string) (string, error) {
	name = identifier.Normalize(name)
	if name == "" {
		return "", ErrUnresolvable
	}
	key := cache.Key("resolve", name)
	if addr, ok := r.cache.Get(key); ok {
		return addr, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		node := NameHash(name)
		data := hex.EncodeToString(node[:])

		res, err := r.call(ctx, r.registry, selectorResolver+data)
		if err != nil {
			return "", fmt.Errorf("resolver lookup for %s: %w", name, err)
		}
		resolverAddr, ok := decodeAddress(res)
		if !ok {
			return "", ErrUnresolvable
		}

		res, err = r.call(ctx, resolverAddr, selectorAddr+data)
		if err != nil {
			return "", fmt.Errorf("addr lookup for %s: %w", name, err)
		}
		addr, ok := decodeAddress(res)
		if !ok {
			return "", ErrUnresolvable
		}
		r.cache.Put(key, addr, r.ttl)
		return addr, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

func (r *RPCResolver) call(ctx context.Context, to, data string) (string, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params:  []any{map[string]string{"to": to, "data": "0x" + data}, "latest"},
	}
	var resp rpcResponse
	if err := r.rc.PostJSON(ctx, r.endpoint, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		// reverts come back as JSON-RPC errors; nothing to resolve
		return "", fmt.Errorf("rpc %d: %s: %w", resp.Error.Code, resp.Error.Message, ErrUnresolvable)
	}
	return resp.Result, nil
}

// decodeAddress reads the address from a 32-byte ABI word. The zero address
// and short results decode as not ok.
func decodeAddress(result string) (string, bool) {
	s := strings.TrimPrefix(strings.ToLower(result), "0x")
	if len(s) < 64 {
		return "", false
	}
	addr := "0x" + s[24:64]
	if addr == identifier.ZeroAddress || !identifier.IsAddress(addr) {
		return "", false
	}
	return addr, true
}

// Router sends *.base.eth names to Base and every other name to Mainnet.
type Router struct {
	Mainnet Resolver
	Base    Resolver
}

func (r Router) Resolve(ctx context.Context, name string) (string, error) {
	n := identifier.Normalize(name)
	if strings.HasSuffix(n, identifier.BaseSuffix) && r.Base != nil {
		return r.Base.Resolve(ctx, n)
	}
	if r.Mainnet == nil {
		return "", ErrUnresolvable
	}
	return r.Mainnet.Resolve(ctx, n)
}

// Static resolves from a fixed table. Keys are matched case-insensitively.
type Static map[string]string

func (s Static) Resolve(_ context.Context, name string) (string, error) {
	n := identifier.Normalize(name)
	for k, v := range s {
		if identifier.Normalize(k) == n {
			return strings.ToLower(v), nil
		}
	}
	return "", ErrUnresolvable
}
