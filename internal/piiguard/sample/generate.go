package sample

import (
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/connlog"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Player is a generated account.
type Player struct {
	UserID   uuid.UUID
	UserName string
	HWID     string
	Email    string
	Phone    string
	Address  string
}

// Record is one generated connection. Field names match the connection
// log columns so the default classification rules apply to them.
type Record struct {
	ID          int                 `json:"connection_log_id"`
	UserID      string              `json:"user_id"`
	UserName    string              `json:"user_name"`
	Address     string              `json:"address"`
	HWID        string              `json:"hwid"`
	Time        time.Time           `json:"time"`
	ServerID    int                 `json:"server_id"`
	ServerName  string              `json:"server_name"`
	Denied      *connlog.DenyReason `json:"denied"`
	Email       string              `json:"email,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	HomeAddress string              `json:"home_address,omitempty"`
}

// Dataset is the generated players and their connections.
type Dataset struct {
	Profile Profile
	Players []Player
	Records []Record
}

// Generate builds a dataset. The profile must have been validated.
func Generate(p Profile) *Dataset {
	faker := gofakeit.New(p.Seed)
	log := logger.L()

	log.Infow("Generating sample data", "players", p.Players, "connections", p.Connections, "seed", p.Seed)

	ds := &Dataset{Profile: p}
	for i := 0; i < p.Players; i++ {
		ds.Players = append(ds.Players, newPlayer(faker))
	}

	// each player keeps a small pool of addresses
	addresses := make([][]string, len(ds.Players))
	for i := range ds.Players {
		n := faker.Number(1, 3)
		for j := 0; j < n; j++ {
			if faker.Float64Range(0, 1) < p.IPv6Ratio {
				addresses[i] = append(addresses[i], faker.IPv6Address())
			} else {
				addresses[i] = append(addresses[i], faker.IPv4Address())
			}
		}
	}

	span := p.end.Sub(p.start)
	for i := 0; i < p.Connections; i++ {
		pi := faker.Number(0, len(ds.Players)-1)
		player := ds.Players[pi]
		serverID := faker.Number(1, len(p.Servers))

		rec := Record{
			ID:         i + 1,
			UserID:     player.UserID.String(),
			UserName:   player.UserName,
			Address:    addresses[pi][faker.Number(0, len(addresses[pi])-1)],
			HWID:       player.HWID,
			Time:       p.start.Add(time.Duration(faker.Float64Range(0, 1) * float64(span))).Truncate(time.Second),
			ServerID:   serverID,
			ServerName: p.Servers[serverID-1],
		}
		if faker.Float64Range(0, 1) < p.DenyRatio {
			d := connlog.DenyReason(faker.Number(int(connlog.DenyBan), int(connlog.DenyIPChecks)))
			rec.Denied = &d
		}
		if p.Contact {
			rec.Email = player.Email
			rec.Phone = player.Phone
			rec.HomeAddress = player.Address
		}
		ds.Records = append(ds.Records, rec)
	}

	sort.SliceStable(ds.Records, func(i, j int) bool { return ds.Records[i].Time.Before(ds.Records[j].Time) })
	for i := range ds.Records {
		ds.Records[i].ID = i + 1
	}

	log.Debugw("Generated sample data", "players", len(ds.Players), "connections", len(ds.Records))
	return ds
}

func newPlayer(faker *gofakeit.Faker) Player {
	// hardware ids are 32 opaque bytes, shown base64 encoded
	raw := make([]byte, 0, 32)
	for len(raw) < 32 {
		id := uuid.MustParse(faker.UUID())
		raw = append(raw, id[:]...)
	}

	return Player{
		UserID:   uuid.MustParse(faker.UUID()),
		UserName: faker.Username(),
		HWID:     base64.StdEncoding.EncodeToString(raw),
		Email:    faker.Email(),
		Phone:    faker.Phone(),
		Address:  fmt.Sprintf("%s, %s, %s, %s", faker.Street(), faker.City(), faker.StateAbr(), faker.Zip()),
	}
}

// WriteNDJSON writes one record per line.
func (ds *Dataset) WriteNDJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range ds.Records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record %d: %w", rec.ID, err)
		}
	}
	return nil
}

// sqlEscape escapes single quotes for inline SQL literals.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// WriteSQL writes a PostgreSQL script creating the connection log tables
// and loading the dataset into them.
func (ds *Dataset) WriteSQL(w io.Writer) error {
	var b strings.Builder

	b.WriteString("-- Generated sample connection log for PostgreSQL\n")
	b.WriteString("-- Import with: psql -U <user> -d <database> -f <file>\n\n")
	b.WriteString(`CREATE TABLE IF NOT EXISTS server (
  server_id SERIAL PRIMARY KEY,
  name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS player (
  user_id UUID PRIMARY KEY,
  last_seen_user_name TEXT NOT NULL,
  last_seen_address INET,
  last_seen_hwid BYTEA
);
CREATE TABLE IF NOT EXISTS connection_log (
  connection_log_id SERIAL PRIMARY KEY,
  user_id UUID NOT NULL,
  user_name TEXT NOT NULL,
  time TIMESTAMPTZ NOT NULL,
  address INET NOT NULL,
  hwid BYTEA,
  server_id INTEGER NOT NULL REFERENCES server(server_id),
  denied SMALLINT
);
CREATE TABLE IF NOT EXISTS server_ban_hit (
  server_ban_hit_id SERIAL PRIMARY KEY,
  connection_id INTEGER NOT NULL REFERENCES connection_log(connection_log_id)
);
CREATE INDEX IF NOT EXISTS idx_connection_log_time ON connection_log(time);
CREATE INDEX IF NOT EXISTS idx_connection_log_user ON connection_log(user_id);

`)

	for i, name := range ds.Profile.Servers {
		fmt.Fprintf(&b, "INSERT INTO server (server_id, name) VALUES (%d,'%s');\n", i+1, sqlEscape(name))
	}
	fmt.Fprintf(&b, "\n-- Inserted %d servers\n\n", len(ds.Profile.Servers))

	for _, pl := range ds.Players {
		fmt.Fprintf(&b, "INSERT INTO player (user_id, last_seen_user_name, last_seen_hwid) VALUES ('%s','%s',decode('%s','base64'));\n",
			pl.UserID, sqlEscape(pl.UserName), pl.HWID)
	}
	fmt.Fprintf(&b, "\n-- Inserted %d players\n\n", len(ds.Players))

	for _, rec := range ds.Records {
		denied := "NULL"
		if rec.Denied != nil {
			denied = fmt.Sprintf("%d", int(*rec.Denied))
		}
		fmt.Fprintf(&b, "INSERT INTO connection_log (connection_log_id, user_id, user_name, time, address, hwid, server_id, denied) "+
			"VALUES (%d,'%s','%s','%s','%s',decode('%s','base64'),%d,%s);\n",
			rec.ID, rec.UserID, sqlEscape(rec.UserName), rec.Time.Format(time.RFC3339), rec.Address, rec.HWID, rec.ServerID, denied)
		if rec.Denied != nil && *rec.Denied == connlog.DenyBan {
			fmt.Fprintf(&b, "INSERT INTO server_ban_hit (connection_id) VALUES (%d);\n", rec.ID)
		}
	}
	fmt.Fprintf(&b, "\n-- Inserted %d connections\n", len(ds.Records))
	b.WriteString("SELECT setval('connection_log_connection_log_id_seq', (SELECT COALESCE(MAX(connection_log_id), 1) FROM connection_log));\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write sql: %w", err)
	}
	return nil
}
