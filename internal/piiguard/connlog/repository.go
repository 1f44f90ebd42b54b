package connlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/redact"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

// Connection is one row of the Connections page.
type Connection struct {
	ID                 int         `json:"id"`
	UserID             uuid.UUID   `json:"user_id"`
	UserName           string      `json:"user_name"`
	Address            string      `json:"address"`
	HWID               string      `json:"hwid"`
	Time               time.Time   `json:"time"`
	ServerName         string      `json:"server_name"`
	ServerID           int         `json:"server_id"`
	Denied             *DenyReason `json:"denied,omitempty"`
	BanHitCount        int         `json:"ban_hit_count"`
	PlayerLastSeenName string      `json:"last_seen_user_name,omitempty"`
}

// Page is one page of results. HasNext is derived by over-fetching one row.
type Page struct {
	Rows    []Connection `json:"rows"`
	HasNext bool         `json:"has_next"`
}

// Repository reads the connection log from the game server's Postgres
// database.
type Repository struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open connects with the lib/pq driver. The connection is verified with a
// ping.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection log database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping connection log database: %w", err)
	}
	return NewRepository(db), nil
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, log: logger.L()}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Find returns one page of connections rendered for the presenter's viewer.
func (r *Repository) Find(ctx context.Context, f *ConnectionsFilter, p *viewer.Presenter, pageSize, offset int) (Page, error) {
	if pageSize <= 0 {
		return Page{}, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	q := BuildQuery(f, pageSize+1, offset)
	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return Page{}, fmt.Errorf("query connection log: %w", err)
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		var (
			c        Connection
			denied   sql.NullInt64
			lastSeen sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.UserName, &c.Address, &c.HWID, &c.Time,
			&c.ServerName, &c.ServerID, &denied, &c.BanHitCount, &lastSeen); err != nil {
			return Page{}, fmt.Errorf("scan connection row: %w", err)
		}
		if denied.Valid {
			d := DenyReason(denied.Int64)
			c.Denied = &d
		}
		c.PlayerLastSeenName = lastSeen.String
		page.Rows = append(page.Rows, c)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate connection rows: %w", err)
	}

	if len(page.Rows) > pageSize {
		page.Rows = page.Rows[:pageSize]
		page.HasNext = true
	}
	Present(page.Rows, p)

	r.log.Debugw("Loaded connections page",
		"rows", len(page.Rows),
		"has_next", page.HasNext,
		"filter_key_search", f.HasHiddenSearch())
	return page, nil
}

// Present renders the address and hardware id columns of rows in place for
// the viewer. Player names are public and left as is.
func Present(rows []Connection, p *viewer.Presenter) {
	for i := range rows {
		rows[i].Address = p.ShowIP(rows[i].Address)
		rows[i].HWID = p.Show(rows[i].HWID, redact.HardwareID)
	}
}
