package db

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"infinite-experiment/logbook/internal/logging"
)

// PostgresOptions holds the PG_* settings.
type PostgresOptions struct {
	Host     string
	Port     string
	User     string
	DBName   string
	Password string
	SSLMode  string
}

// DSN renders the options as a lib/pq URL.
func (o PostgresOptions) DSN() string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(o.User, o.Password),
		Host:     fmt.Sprintf("%s:%s", o.Host, o.Port),
		Path:     "/" + o.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// InitPostgres connects with sqlx, retrying while the database comes up.
func InitPostgres(opts PostgresOptions) (*sqlx.DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	for i := 0; i < 10; i++ {
		conn, err = sqlx.Connect("postgres", opts.DSN())
		if err == nil {
			conn.SetMaxOpenConns(10)
			conn.SetConnMaxIdleTime(5 * time.Minute)
			logging.Info("Connected to Postgres", "host", opts.Host, "db", opts.DBName)
			return conn, nil
		}
		logging.Warn("Postgres not ready, retrying", "attempt", i+1, "error", err)
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("connect postgres: %w", err)
}
