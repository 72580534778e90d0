package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite"; sqlx only knows "sqlite3"
	// out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Config struct {
	File string
}

// Client wraps a single-file sqlite database handle.
type Client struct {
	database *sqlx.DB
}

func NewClient(ctx context.Context, config *Config) (*Client, error) {
	database, err := sqlx.Connect("sqlite", config.File)
	if err != nil {
		return nil, fmt.Errorf(
			"could not open database [%v]: [%v]",
			config.File,
			err,
		)
	}

	// sqlite allows a single writer; the ledger's flush task is the
	// only writer here so one connection is enough.
	database.SetMaxOpenConns(1)

	go func() {
		<-ctx.Done()
		_ = database.Close()
	}()

	return &Client{database: database}, nil
}

func (c *Client) instance() *sqlx.DB {
	return c.database
}
