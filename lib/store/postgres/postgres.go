// Package postgres implements the discovery index for PostgreSQL.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/adpscan/lib/store"
)

const schema = `CREATE TABLE IF NOT EXISTS discoveries (
	id       BIGSERIAL PRIMARY KEY,
	address  TEXT        NOT NULL,
	balances JSONB       NOT NULL,
	found    TIMESTAMPTZ NOT NULL
)`

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection' and makes sure the
// discoveries table exists.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot create discoveries table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close will close any database connection. Must be called at termination time.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// SaveDiscovery inserts a discovery and returns its id as a decimal string.
func (p *Postgres) SaveDiscovery(d store.Discovery) ([]byte, error) {
	bals, err := json.Marshal(d.Balances)
	if err != nil {
		return nil, fmt.Errorf("cannot encode balances: %w", err)
	}

	var id int64
	if err = p.db.QueryRow(`INSERT INTO discoveries (address, balances, found) VALUES ($1, $2, $3) RETURNING id`,
		d.Address, string(bals), d.Found).Scan(&id); err != nil {
		return nil, fmt.Errorf("could not insert discovery in db: %w", err)
	}

	return []byte(strconv.FormatInt(id, 10)), nil
}

// GetDiscoveries returns the discoveries funded on any of the networks in net, or all when net is empty.
func (p *Postgres) GetDiscoveries(net []string) ([]store.Discovery, error) {
	rows, err := p.db.Query(`SELECT id, address, balances, found FROM discoveries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("cannot query discoveries: %w", err)
	}
	defer rows.Close()

	ds := []store.Discovery{}

	for rows.Next() {
		var (
			id   int64
			bals []byte
			d    store.Discovery
		)

		if err = rows.Scan(&id, &d.Address, &bals, &d.Found); err != nil {
			return nil, fmt.Errorf("cannot read discovery: %w", err)
		}

		if err = json.Unmarshal(bals, &d.Balances); err != nil {
			return nil, fmt.Errorf("cannot decode balances of %s: %w", d.Address, err)
		}

		d.ID = []byte(strconv.FormatInt(id, 10))

		if len(net) == 0 || d.FundedOn(net) {
			ds = append(ds, d)
		}
	}

	return ds, rows.Err()
}

// DeleteDiscoveries empties the table.
func (p *Postgres) DeleteDiscoveries() error {
	_, err := p.db.Exec(`TRUNCATE discoveries`)

	return err
}
