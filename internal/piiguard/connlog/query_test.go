package connlog

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/filterkey"
)

func whereClause(t *testing.T, q Query) string {
	t.Helper()
	idx := strings.Index(q.SQL, "\nWHERE ")
	require.GreaterOrEqual(t, idx, 0)
	rest := q.SQL[idx+len("\nWHERE "):]
	end := strings.Index(rest, "\nORDER BY")
	require.GreaterOrEqual(t, end, 0)
	return rest[:end]
}

func TestBuildQuery_DefaultFilter(t *testing.T) {
	q := BuildQuery(NewConnectionsFilter(), 0, 0)

	assert.Equal(t, "(c.denied IS NULL OR c.denied = ANY($1))", whereClause(t, q))
	require.Len(t, q.Args, 1)
	assert.Equal(t, pq.Array([]int64{0, 1, 2, 3, 4, 5}), q.Args[0])
	assert.NotContains(t, q.SQL, "LIMIT")
	assert.NotContains(t, q.SQL, "OFFSET")
}

func TestBuildQuery_DenyReasons(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *ConnectionsFilter)
		where string
		args  []any
	}{
		{
			name: "accepted_only",
			setup: func(f *ConnectionsFilter) {
				*f = ConnectionsFilter{ShowAccepted: true}
			},
			where: "c.denied IS NULL",
		},
		{
			name: "bans_and_panic",
			setup: func(f *ConnectionsFilter) {
				*f = ConnectionsFilter{ShowBanned: true, ShowPanic: true}
			},
			where: "c.denied = ANY($1)",
			args:  []any{pq.Array([]int64{int64(DenyBan), int64(DenyPanic)})},
		},
		{
			name: "nothing_selected",
			setup: func(f *ConnectionsFilter) {
				*f = ConnectionsFilter{}
			},
			where: "FALSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewConnectionsFilter()
			tt.setup(f)
			q := BuildQuery(f, 0, 0)
			assert.Equal(t, tt.where, whereClause(t, q))
			assert.Equal(t, tt.args, q.Args)
		})
	}
}

func TestBuildQuery_HiddenSearch(t *testing.T) {
	id := uuid.MustParse("d7b4b0c4-3e0f-4a4e-9d1e-2f1c3a1b2c3d")

	tests := []struct {
		name   string
		search string
		where  string
		arg    any
	}{
		{"ipv4", "192.168.1.100", "c.address = $2::inet", "192.168.1.100"},
		{"ipv6", "2001:DB8::1", "c.address = $2::inet", "2001:db8::1"},
		{"user_id", id.String(), "c.user_id = $2", id.String()},
		{"user_id_braced", "{" + id.String() + "}", "c.user_id = $2", id.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewConnectionsFilter()
			f.ApplyCriteria(filterkey.NewCriteria("admin", filterkey.Connections, filterkey.WithSearch(tt.search)))
			f.Search = "ignored while a filter key search is active"

			q := BuildQuery(f, 0, 0)
			assert.Equal(t, "(c.denied IS NULL OR c.denied = ANY($1)) AND "+tt.where, whereClause(t, q))
			require.Len(t, q.Args, 2)
			assert.Equal(t, tt.arg, q.Args[1])
		})
	}

	t.Run("unparseable_is_ignored", func(t *testing.T) {
		f := NewConnectionsFilter()
		f.ApplyCriteria(filterkey.NewCriteria("admin", filterkey.Connections, filterkey.WithSearch("PlayerOne")))

		q := BuildQuery(f, 0, 0)
		assert.Equal(t, "(c.denied IS NULL OR c.denied = ANY($1))", whereClause(t, q))
		assert.NotContains(t, q.SQL, "ILIKE")
	})
}

func TestBuildQuery_VisibleSearch(t *testing.T) {
	f := NewConnectionsFilter()
	f.Search = "  100%_cool  "

	q := BuildQuery(f, 0, 0)
	assert.Equal(t,
		"(c.denied IS NULL OR c.denied = ANY($1)) AND (c.user_name ILIKE $2 OR c.user_id::text LIKE $2)",
		whereClause(t, q))
	assert.Equal(t, `%100\%\_cool%`, q.Args[1])
}

func TestBuildQuery_BoundsAndPaging(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	f := NewConnectionsFilter()
	f.ApplyCriteria(filterkey.NewCriteria("admin", filterkey.Connections,
		filterkey.WithDateRange(from, to),
		filterkey.WithServerID(3),
	))

	q := BuildQuery(f, 51, 100)
	assert.Equal(t,
		"(c.denied IS NULL OR c.denied = ANY($1)) AND c.time >= $2 AND c.time <= $3 AND c.server_id = $4",
		whereClause(t, q))
	assert.True(t, strings.HasSuffix(q.SQL, "ORDER BY c.time DESC, c.connection_log_id DESC\nLIMIT $5 OFFSET $6"))
	assert.Equal(t, []any{from, to, 3, 51, 100}, q.Args[1:])
}
