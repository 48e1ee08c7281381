package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/netsec-ethz/ctwrangler/pkg/db"
)

// Connect: connect to db, using the config file
func Connect(config *db.Configuration) (db.Conn, error) {
	if config == nil {
		return nil, fmt.Errorf("nil config not allowed")
	}
	if config.Dsn == "" {
		config.Dsn = parseDSN(config)
		config.DBName = config.Values[db.KeyDBName]
		delete(config.Values, db.KeyDBName)
	}

	db, err := connect(config)
	if err != nil {
		return nil, fmt.Errorf("with DSN: %s, cannot open DB: %w", config.Dsn, err)
	}

	// A wrangler process only touches one row at a time. Keep the pool small.
	maxConnections := 4
	db.SetMaxOpenConns(maxConnections)
	db.SetMaxIdleConns(maxConnections)

	// Set the maximum idle connection time to a lower value than the mysql wait_timeout (8h) to
	// ensure that idle connections that are closed by the mysql DB are not reused
	connMaxIdleTime := 1 * time.Hour
	db.SetConnMaxIdleTime(connMaxIdleTime)

	// check schema
	if config.CheckSchema {
		if err := checkSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("checking schema on connection: %w", err)
		}
	}
	return NewMysqlDB(db)
}

func parseDSN(config *db.Configuration) string {
	val := config.Values
	dsnString := val[keyUser]
	// If a local socket is requested, the DSN is composed of different keys.
	if path, ok := val[keyLocalSocket]; ok {
		// Form a string like "root@unix(/var/run/mysqld/mysqld.sock)/ctwrangler"
		dsnString += fmt.Sprintf("@unix(%s)/%s",
			path, val[db.KeyDBName])
	} else {
		// Form a string like "root:password@tcp(1.1.1.1:8080)/ctwrangler"
		if val[keyPassword] != "" {
			dsnString += ":" + val[keyPassword]
		}
		dsnString += "@tcp(" + val[keyHost]
		if val[keyPort] != "" {
			dsnString += ":" + val[keyPort]
		}
		dsnString += fmt.Sprintf(")/%s", val[db.KeyDBName])
	}

	// Remove all values that are used to establish the DSN from the remaining pairs.
	delete(val, keyUser)
	delete(val, keyPassword)
	delete(val, keyHost)
	delete(val, keyPort)
	delete(val, keyLocalSocket)

	return dsnString
}

func connect(config *db.Configuration) (*sql.DB, error) {
	dsn, err := url.Parse(config.Dsn)
	if err != nil {
		return nil, fmt.Errorf("bad connection string: %w", err)
	}
	uri := dsn.Query()
	for k, v := range config.Values {
		uri.Add(k, v)
	}
	dsn.RawQuery = uri.Encode()
	return sql.Open("mysql", dsn.String())
}

func checkSchema(c *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var count int
	err := c.QueryRowContext(ctx, "SELECT COUNT(*) FROM ctlog_server_last_status").Scan(&count)
	if err != nil {
		return fmt.Errorf("table ctlog_server_last_status: %w", err)
	}
	return nil
}
