/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"fmt"
	"net/url"
)

// defaultPort returns the conventional port for a networked engine.
func defaultPort(t Type) int {
	switch t {
	case TypePostgres:
		return 5432
	case TypeMSSQL:
		return 1433
	case TypeMySQL:
		return 3306
	}
	return 0
}

// Validate checks that the parameters required by the engine are present.
// Returns a *ConnectionError so callers see the same failure kind as a
// failed open, without ever opening a handle.
func (p Params) Validate(t Type) error {
	if !t.Valid() {
		return &ConnectionError{Type: t, Reason: fmt.Sprintf("unsupported database type %q", string(t))}
	}

	if t == TypeSQLite {
		if p.Path == "" {
			return &ConnectionError{Type: t, Reason: "database file path is required"}
		}
		return nil
	}

	if p.Host == "" {
		return &ConnectionError{Type: t, Reason: "host is required"}
	}
	if p.Database == "" {
		return &ConnectionError{Type: t, Reason: "database name is required"}
	}
	if p.User == "" {
		return &ConnectionError{Type: t, Reason: "user is required"}
	}
	if p.Port < 0 || p.Port > 65535 {
		return &ConnectionError{Type: t, Reason: fmt.Sprintf("invalid port %d", p.Port)}
	}
	return nil
}

// DSN builds the driver name and data source name for the engine.
func (p Params) DSN(t Type) (driver, dsn string, err error) {
	if err := p.Validate(t); err != nil {
		return "", "", err
	}

	port := p.Port
	if port == 0 {
		port = defaultPort(t)
	}

	switch t {
	case TypeSQLite:
		return "sqlite", p.Path, nil

	case TypePostgres:
		u := &url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", p.Host, port),
			Path:   "/" + p.Database,
		}
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
		if p.SSLMode != "" {
			q := u.Query()
			q.Set("sslmode", p.SSLMode)
			u.RawQuery = q.Encode()
		}
		return "pgx", u.String(), nil

	case TypeMySQL:
		// go-sql-driver DSN: user:password@tcp(host:port)/dbname
		cred := p.User
		if p.Password != "" {
			cred += ":" + p.Password
		}
		return "mysql", fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cred, p.Host, port, p.Database), nil

	case TypeMSSQL:
		u := &url.URL{
			Scheme: "sqlserver",
			Host:   fmt.Sprintf("%s:%d", p.Host, port),
		}
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
		q := url.Values{}
		q.Set("database", p.Database)
		u.RawQuery = q.Encode()
		return "sqlserver", u.String(), nil
	}

	return "", "", &ConnectionError{Type: t, Reason: fmt.Sprintf("unsupported database type %q", string(t))}
}
