package postgres

import (
	"fmt"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
)

// EmbeddedServer wraps an embedded-postgres instance for local
// development and single-binary demos, so running this module's server
// against the route-state sink never requires a standalone Postgres
// install.
type EmbeddedServer struct {
	db *embeddedpostgres.EmbeddedPostgres
}

// StartEmbedded starts a local Postgres instance on port listening on
// the loopback interface, with the given database/user/password, and
// returns its connection config plus a handle to stop it.
func StartEmbedded(port uint32, database, user, password string) (*EmbeddedServer, Config, error) {
	db := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(port).
		Database(database).
		Username(user).
		Password(password))

	if err := db.Start(); err != nil {
		return nil, Config{}, fmt.Errorf("postgres: start embedded server: %w", err)
	}

	cfg := Config{
		Host:     "localhost",
		Port:     int(port),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  "disable",
	}
	return &EmbeddedServer{db: db}, cfg, nil
}

// Stop shuts the embedded server down.
func (s *EmbeddedServer) Stop() error {
	return s.db.Stop()
}
