package sqldb

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Supported driver names
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// DSN builds the data source name for driver from connection parameters.
// For sqlite3 the database is the file path and the other parameters are
// ignored.
func DSN(driver, host, user, password, database string, port uint16) (string, error) {
	switch driver {
	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = password
		cfg.Net = "tcp"
		if strings.HasPrefix(host, "unix:") {
			cfg.Net = "unix"
			cfg.Addr = host[5:]
		} else {
			cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
		}
		cfg.DBName = database
		// Statements spanning several tables are sent as one multi-statement query
		cfg.MultiStatements = true
		return cfg.FormatDSN(), nil
	case Postgres:
		parts := []string{
			"host=" + quote(host),
			"port=" + strconv.Itoa(int(port)),
		}
		if user != "" {
			parts = append(parts, "user="+quote(user))
		}
		if password != "" {
			parts = append(parts, "password="+quote(password))
		}
		if database != "" {
			parts = append(parts, "dbname="+quote(database))
		}
		parts = append(parts, "sslmode=disable")
		return strings.Join(parts, " "), nil
	case SQLite:
		if database == "" {
			return "", fmt.Errorf("%w: sqlite3 needs a database path", ErrUnsupportedDriver)
		}
		return database, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}

// quote escapes a libpq key/value connection string value
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
