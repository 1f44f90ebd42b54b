package connlog

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const selectConnections = `SELECT c.connection_log_id, c.user_id, c.user_name, COALESCE(host(c.address), ''),
	COALESCE(encode(c.hwid, 'base64'), ''), c.time, COALESCE(s.name, ''), c.server_id, c.denied,
	(SELECT count(*) FROM server_ban_hit h WHERE h.connection_id = c.connection_log_id),
	p.last_seen_user_name
FROM connection_log c
LEFT JOIN server s ON s.server_id = c.server_id
LEFT JOIN player p ON p.user_id = c.user_id`

// Query is a parameterized statement for database/sql.
type Query struct {
	SQL  string
	Args []any
}

type builder struct {
	where []string
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// BuildQuery turns the filter into a Postgres query ordered newest first.
// limit <= 0 means no limit.
//
// A hidden (filter key) search matches an exact address or user id and is
// ignored when it is neither. The visible search matches the user name
// case-insensitively or a fragment of the user id.
func BuildQuery(f *ConnectionsFilter, limit, offset int) Query {
	b := &builder{}

	acceptNull, reasons := f.denyReasons()
	switch {
	case acceptNull && len(reasons) > 0:
		b.where = append(b.where, fmt.Sprintf("(c.denied IS NULL OR c.denied = ANY(%s))", b.arg(pq.Array(reasons))))
	case acceptNull:
		b.where = append(b.where, "c.denied IS NULL")
	case len(reasons) > 0:
		b.where = append(b.where, fmt.Sprintf("c.denied = ANY(%s)", b.arg(pq.Array(reasons))))
	default:
		b.where = append(b.where, "FALSE")
	}

	if f.HasHiddenSearch() {
		term := strings.TrimSpace(f.hiddenSearch)
		if addr, err := netip.ParseAddr(term); err == nil {
			b.where = append(b.where, fmt.Sprintf("c.address = %s::inet", b.arg(addr.String())))
		} else if id, err := uuid.Parse(term); err == nil {
			b.where = append(b.where, fmt.Sprintf("c.user_id = %s", b.arg(id.String())))
		}
	} else if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		p := b.arg(pattern)
		b.where = append(b.where, fmt.Sprintf("(c.user_name ILIKE %s OR c.user_id::text LIKE %s)", p, p))
	}

	if f.DateFrom != nil {
		b.where = append(b.where, "c.time >= "+b.arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		b.where = append(b.where, "c.time <= "+b.arg(*f.DateTo))
	}
	if f.ServerID != nil {
		b.where = append(b.where, "c.server_id = "+b.arg(*f.ServerID))
	}

	var sb strings.Builder
	sb.WriteString(selectConnections)
	sb.WriteString("\nWHERE ")
	sb.WriteString(strings.Join(b.where, " AND "))
	sb.WriteString("\nORDER BY c.time DESC, c.connection_log_id DESC")
	if limit > 0 {
		sb.WriteString("\nLIMIT " + b.arg(limit))
	}
	if offset > 0 {
		sb.WriteString(" OFFSET " + b.arg(offset))
	}

	return Query{SQL: sb.String(), Args: b.args}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
