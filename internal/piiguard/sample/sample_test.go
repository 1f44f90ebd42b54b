package sample

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/classify"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/scrub"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

func validProfile(t *testing.T) Profile {
	t.Helper()
	p := DefaultProfile()
	p.Contact = true
	require.NoError(t, p.Validate())
	return p
}

func TestGenerate_Deterministic(t *testing.T) {
	p := validProfile(t)

	a := Generate(p)
	b := Generate(p)
	assert.Equal(t, a.Records, b.Records)
	assert.Len(t, a.Records, p.Connections)
	assert.Len(t, a.Players, p.Players)

	for i, rec := range a.Records {
		assert.Equal(t, i+1, rec.ID)
		assert.False(t, rec.Time.Before(p.start))
		assert.True(t, rec.Time.Before(p.end))
		assert.Equal(t, p.Servers[rec.ServerID-1], rec.ServerName)
		_, err := netip.ParseAddr(rec.Address)
		assert.NoError(t, err)
		if i > 0 {
			assert.False(t, rec.Time.Before(a.Records[i-1].Time))
		}
	}
}

func TestGenerate_ScrubbedOutputHasNoRawPii(t *testing.T) {
	ds := Generate(validProfile(t))

	var raw bytes.Buffer
	require.NoError(t, ds.WriteNDJSON(&raw))
	assert.Equal(t, len(ds.Records), strings.Count(raw.String(), "\n"))

	var out bytes.Buffer
	s := scrub.New(classify.Default(), viewer.NewPresenter(true, nil))
	stats, err := s.Stream(context.Background(), scrub.ReadFrom(&raw, "sample"), &out)
	require.NoError(t, err)
	assert.Equal(t, len(ds.Records), stats.Records)
	assert.Zero(t, stats.Malformed)

	scrubbed := out.String()
	for _, rec := range ds.Records {
		assert.NotContains(t, scrubbed, `"`+rec.Address+`"`)
		assert.NotContains(t, scrubbed, rec.HWID)
		assert.NotContains(t, scrubbed, rec.Email)
		assert.NotContains(t, scrubbed, `"`+rec.UserName+`"`)
	}
	// ids are not PII
	assert.Contains(t, scrubbed, ds.Records[0].UserID)
}

func TestWriteSQL(t *testing.T) {
	ds := Generate(validProfile(t))

	var buf bytes.Buffer
	require.NoError(t, ds.WriteSQL(&buf))
	sql := buf.String()

	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS connection_log")
	assert.Equal(t, len(ds.Records), strings.Count(sql, "INSERT INTO connection_log "))
	assert.Equal(t, len(ds.Players), strings.Count(sql, "INSERT INTO player "))
	assert.Equal(t, len(ds.Profile.Servers), strings.Count(sql, "INSERT INTO server "))
}

func TestReadProfile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		content     string
		expectError bool
	}{
		{
			name: "valid",
			content: `seed: 7
connections: 10
players: 3
servers: [alpha]
start: "2026-03-01"
end: "2026-03-02 12:00"
`,
		},
		{name: "inverted_range", content: "start: \"2026-03-02\"\nend: \"2026-03-01\"\n", expectError: true},
		{name: "no_servers", content: "servers: []\n", expectError: true},
		{name: "bad_ratio", content: "ipv6Ratio: 2\n", expectError: true},
		{name: "bad_yaml", content: "players: [\n", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			p, err := ReadProfile(path)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(7), p.Seed)
			assert.Equal(t, []string{"alpha"}, p.Servers)
			assert.Len(t, Generate(p).Records, 10)
		})
	}

	_, err := ReadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
