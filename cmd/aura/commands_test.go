package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arshiaxbt/Aura/pkg/vault"
)

const (
	addrA = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"
	addrB = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"
)

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOut, noColor, logLevel = false, true, "error"
	vaultPassword, scanAnnotated = "", ""
	scanStats, securityStrict = false, false
	scanTimeout = 10 * time.Second

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AURA_DATA_DIR", t.TempDir())
	t.Setenv("AURA_HTTP_RETRIES", "0")
	t.Setenv("AURA_DEBOUNCE", "10ms")
	t.Setenv("AURA_RATE_LIMIT", "0")
	t.Setenv("AURA_VAULT_PASSWORD", "")
	t.Setenv("AURA_BLACKLIST_API", "")
}

func newScoreServer(t *testing.T, scores map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v2/score/address":
			if s, ok := scores[r.URL.Query().Get("address")]; ok {
				_ = json.NewEncoder(w).Encode(map[string]int{"score": s})
				return
			}
			_, _ = w.Write([]byte(`{"score":null}`))
		case strings.HasPrefix(r.URL.Path, "/api/v2/user/by/address/"):
			if strings.HasSuffix(r.URL.Path, addrB) {
				_, _ = w.Write([]byte(`{"displayName":"Vitalik"}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("AURA_SCORE_API", srv.URL)
	return srv
}

func TestLookupCommandJSON(t *testing.T) {
	setupEnv(t)
	newScoreServer(t, map[string]int{addrB: 2100})

	out, err := execute(t, "lookup", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, addrB, got["address"])
	assert.Equal(t, float64(2100), got["score"])
	assert.Equal(t, "distinguished", got["tier"])
	assert.Equal(t, "Vitalik", got["displayName"])
}

func TestLookupCommandReportsOutage(t *testing.T) {
	setupEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("AURA_SCORE_API", srv.URL)

	_, err := execute(t, "lookup", addrA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup failed")
}

func TestLookupCommandRejectsGarbage(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "lookup", "not-an-identifier")
	assert.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	setupEnv(t)
	newScoreServer(t, map[string]int{addrA: 1450})

	dir := t.TempDir()
	in := filepath.Join(dir, "page.html")
	annotated := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(in, []byte(`<html><body><p>tip jar: `+addrA+`</p><script>var x = "`+addrB+`"</script></body></html>`), 0o644))

	out, err := execute(t, "scan", in, "--json", "--annotated", annotated)
	require.NoError(t, err)

	var recs []recordJSON
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1, "script content is never scanned")
	assert.Equal(t, addrA, recs[0].Identifier)
	assert.Equal(t, "established", recs[0].Tier)
	require.NotNil(t, recs[0].Score)
	assert.Equal(t, 1450, *recs[0].Score)

	html, err := os.ReadFile(annotated)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-aura-tier="established"`)
}

func TestScanCommandTable(t *testing.T) {
	setupEnv(t)
	newScoreServer(t, nil)

	in := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(in, []byte(`<p>`+addrA+`</p>`), 0o644))

	out, err := execute(t, "scan", in)
	require.NoError(t, err)
	assert.Contains(t, out, "IDENTIFIER")
	assert.Contains(t, out, addrA)
	assert.Contains(t, out, "unscored")
}

func TestSecurityCommand(t *testing.T) {
	setupEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chain_id") == "8453" {
			_, _ = w.Write([]byte(`{"code":1,"result":{"phishing_activities":"1","cybercrime":"0"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":1,"result":{}}`))
	}))
	defer srv.Close()
	t.Setenv("AURA_SECURITY_API", srv.URL)

	out, err := execute(t, "security", addrA, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "phishing_activities")

	_, err = execute(t, "security", addrA, "--strict")
	assert.Error(t, err)

	_, err = execute(t, "security", "vitalik.eth")
	assert.Error(t, err)
}

func TestSecurityStrictNeedsBlacklist(t *testing.T) {
	setupEnv(t)
	flags := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"result":{}}`))
	}))
	defer flags.Close()
	t.Setenv("AURA_SECURITY_API", flags.URL)

	out, err := execute(t, "security", addrA, "--json", "--strict")
	assert.Error(t, err, "no blacklist configured")
	assert.Contains(t, out, `"partial": true`)

	bl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"blacklisted":false}`))
	}))
	defer bl.Close()
	t.Setenv("AURA_BLACKLIST_API", bl.URL)

	_, err = execute(t, "security", addrA, "--strict")
	assert.NoError(t, err)
}

func TestVaultCommands(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "vault", "unlock", "--password", "pw")
	assert.ErrorIs(t, err, vault.ErrNoVault)

	_, err = execute(t, "vault", "init", "--password", "pw")
	require.NoError(t, err)
	_, err = execute(t, "vault", "init", "--password", "pw")
	assert.ErrorIs(t, err, vault.ErrVaultExists)

	_, err = execute(t, "vault", "note", "set", addrA, "met", "at", "devcon", "--password", "pw")
	require.NoError(t, err)

	out, err := execute(t, "vault", "note", "get", addrA, "--password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "met at devcon\n", out)

	_, err = execute(t, "vault", "note", "get", addrA, "--password", "pw ")
	assert.ErrorIs(t, err, vault.ErrWrongPassword)

	out, err = execute(t, "vault", "note", "list")
	require.NoError(t, err)
	assert.Equal(t, addrA+"\n", out)

	_, err = execute(t, "vault", "note", "get", "vitalik.eth", "--password", "pw")
	assert.Error(t, err)
}

func TestVaultPasswordFromStdin(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "vault", "init", "--password", "pw")
	require.NoError(t, err)

	vaultPassword = ""
	pw, err := readPassword(strings.NewReader("pw\n"))
	require.NoError(t, err)
	assert.Equal(t, "pw", pw)

	_, err = readPassword(strings.NewReader("\n"))
	assert.ErrorIs(t, err, vault.ErrEmptyPassword)
}
