package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/connector"
)

// ErrNoDatabase is returned by actions that need a selected database
var ErrNoDatabase = errors.New("no database selected")

// ConnectionParams identifies the server and, optionally, the database of a session
type ConnectionParams struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
}

// Session holds the one live connection of an interactive user and the database
// it is scoped to. It is not safe for concurrent use.
type Session struct {
	Connector *connector.DatabaseConnector
	Logger    *logrus.Logger

	dial func(ctx context.Context, dc *connector.DatabaseConnector) error
}

// OpenSession connects to the server described by params
func OpenSession(ctx context.Context, params ConnectionParams, logger *logrus.Logger) (*Session, error) {
	dc := connector.NewDatabaseConnector(params.Host, params.User, params.Password, params.Database, params.Port, logger)
	s := NewSession(dc, logger)
	if err := s.dial(ctx, dc); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSession wraps a connector that is already connected
func NewSession(dc *connector.DatabaseConnector, logger *logrus.Logger) *Session {
	return &Session{
		Connector: dc,
		Logger:    logger,
		dial: func(ctx context.Context, dc *connector.DatabaseConnector) error {
			return dc.Connect(ctx)
		},
	}
}

// CurrentDatabase returns the selected database, empty when the session is server-scoped
func (s *Session) CurrentDatabase() string {
	if s.Connector == nil {
		return ""
	}
	return s.Connector.Database
}

// Databases lists the databases visible to the session user
func (s *Session) Databases(ctx context.Context) []string {
	return s.Connector.ListDatabases(ctx)
}

// UseDatabase reconnects scoped to name. The previous connection is closed only once
// the new one is up, so a failed switch leaves the session unchanged.
func (s *Session) UseDatabase(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("database name is required")
	}
	next := s.Connector.WithDatabase(name)
	if err := s.dial(ctx, next); err != nil {
		return errors.Wrapf(err, "switch to database %s", name)
	}

	previous := s.Connector
	s.Connector = next
	previous.Disconnect()
	s.Logger.Infof("Using database: %s", name)
	return nil
}

// Close releases the session connection
func (s *Session) Close() {
	if s.Connector != nil {
		s.Connector.Disconnect()
	}
}

func (s *Session) requireDatabase() error {
	if s == nil || !s.Connector.IsConnected() {
		return connector.ErrNotConnected
	}
	if s.CurrentDatabase() == "" {
		return ErrNoDatabase
	}
	return nil
}
