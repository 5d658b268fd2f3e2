package security

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/arshiaxbt/Aura/internal/remote"
)

// GoPlus queries a GoPlus-style address_security endpoint. Every result field
// whose value is "1" becomes a flag label.
type GoPlus struct {
	base string
	rc   *remote.Client
}

func NewGoPlus(baseURL string, opts remote.Options) *GoPlus {
	if opts.Service == "" {
		opts.Service = "security"
	}
	return &GoPlus{base: strings.TrimRight(baseURL, "/"), rc: remote.New(opts)}
}

type goPlusResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Result  map[string]string `json:"result"`
}

func (g *GoPlus) Flags(ctx context.Context, chainID int, address string) ([]string, error) {
	u := fmt.Sprintf("%s/api/v1/address_security/%s?chain_id=%d", g.base, url.PathEscape(address), chainID)
	var resp goPlusResponse
	if err := g.rc.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 1 {
		return nil, remote.NewError(remote.BadData, g.rc.Service(), fmt.Sprintf("code %d: %s", resp.Code, resp.Message), nil)
	}
	var flags []string
	for k, v := range resp.Result {
		if v == "1" {
			flags = append(flags, k)
		}
	}
	sort.Strings(flags)
	return flags, nil
}

// HTTPBlacklist queries {base}/{address} for {"blacklisted": bool}. A 404 is
// read as not listed.
type HTTPBlacklist struct {
	base string
	rc   *remote.Client
}

func NewHTTPBlacklist(baseURL string, opts remote.Options) *HTTPBlacklist {
	if opts.Service == "" {
		opts.Service = "blacklist"
	}
	return &HTTPBlacklist{base: strings.TrimRight(baseURL, "/"), rc: remote.New(opts)}
}

func (b *HTTPBlacklist) Listed(ctx context.Context, address string) (bool, error) {
	var resp struct {
		Blacklisted bool `json:"blacklisted"`
	}
	err := b.rc.GetJSON(ctx, b.base+"/"+url.PathEscape(address), &resp)
	if remote.CategoryOf(err) == remote.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Blacklisted, nil
}
