package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/audit"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/config"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/sqlite"
)

func TestRun_Version(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"version"}, {"--version"}} {
		var out bytes.Buffer
		require.Equal(t, 0, run(args, &out), "run(%v)", args)
		assert.Contains(t, out.String(), "ghl-gateway version", "run(%v)", args)
	}
}

func TestRun_Help_PrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"--help"}, &out))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_InvalidFlag_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	assert.Equal(t, 2, run([]string{"--unknown-flag"}, &out))
}

func TestRun_CatalogYAML(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"catalog"}, &out))

	var doc struct {
		Tools []struct {
			Name     string `yaml:"name"`
			Category string `yaml:"category"`
		} `yaml:"tools"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Len(t, doc.Tools, 25)
	assert.Equal(t, "view-conversations", doc.Tools[0].Name)
}

func TestRun_CatalogJSONByCategory(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"catalog", "--category", "blog", "-f", "json"}, &out))

	var defs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &defs))
	assert.Len(t, defs, 7)
	for _, d := range defs {
		assert.Equal(t, "blog", d["category"])
	}
}

func TestRun_CatalogRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	assert.Equal(t, 2, run([]string{"catalog", "--format", "xml"}, &out))
	out.Reset()
	assert.Equal(t, 2, run([]string{"catalog", "--category", "invoices"}, &out))
	assert.Contains(t, out.String(), "unknown category")
	out.Reset()
	assert.Equal(t, 1, run([]string{"catalog", "--file", filepath.Join(t.TempDir(), "missing.yaml")}, &out))
}

func TestRun_Audit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := sqlite.Open(path)
	require.NoError(t, err)
	store := audit.NewStore(db)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, audit.Invocation{Tool: "send-message", Category: "conversations", LocationID: "loc-1", Status: 200, Outcome: audit.OutcomeSuccess}))
	require.NoError(t, store.Record(ctx, audit.Invocation{Tool: "view-contacts", Category: "contacts", LocationID: "loc-1", Outcome: audit.OutcomeForbidden}))
	require.NoError(t, db.Close())

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"audit", "--db", path}, &out))
	assert.Contains(t, out.String(), "TOOL")
	assert.Contains(t, out.String(), "send-message")
	assert.Contains(t, out.String(), "view-contacts")

	out.Reset()
	require.Equal(t, 0, run([]string{"audit", "--db", path, "--outcome", "forbidden", "--json"}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	var inv map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inv))
	assert.Equal(t, "view-contacts", inv["tool"])
	assert.Equal(t, "forbidden", inv["outcome"])
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := config.Config{
		Port:            strconv.Itoa(port),
		AllowedOrigins:  []string{"*"},
		Env:             "test",
		LogLevel:        "error",
		RateLimitMax:    10,
		RateLimitWindow: time.Minute,
		AuditDBPath:     filepath.Join(t.TempDir(), "audit.db"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, zap.NewNop()) }()

	url := "http://127.0.0.1:" + cfg.Port + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close() //nolint:errcheck
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		require.Fail(t, "runServe did not return after cancel")
	}
}
