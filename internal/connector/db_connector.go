package connector

import (
	"context"
	"database/sql"
	"net"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned when an operation runs on a connector without an open connection
var ErrNotConnected = errors.New("not connected to a MySQL server")

// DatabaseConnector is one live session with a MySQL server, scoped to at most one database
type DatabaseConnector struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a new database connector; empty arguments fall back to MYSQL_* variables
func NewDatabaseConnector(host, user, password, database, port string, logger *logrus.Logger) *DatabaseConnector {
	if host == "" {
		host = getEnvOrDefault("MYSQL_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("MYSQL_USER", "root")
	}
	if password == "" {
		password = getEnvOrDefault("MYSQL_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("MYSQL_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("MYSQL_PORT", "3306")
	}

	return &DatabaseConnector{
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// DSN builds the driver data source name. An empty Database yields a server-scoped connection.
func (dc *DatabaseConnector) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = dc.User
	cfg.Passwd = dc.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(dc.Host, dc.Port)
	cfg.DBName = dc.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connect establishes a connection to the MySQL server
func (dc *DatabaseConnector) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", dc.DSN())
	if err != nil {
		dc.Logger.Errorf("Error connecting to MySQL: %v", err)
		return errors.Wrap(err, "open mysql connection")
	}
	// one session, one connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		dc.Logger.Errorf("Error connecting to MySQL: %v", err)
		return errors.Wrapf(err, "connect to %s as %s", net.JoinHostPort(dc.Host, dc.Port), dc.User)
	}

	dc.DB = db
	if dc.Database != "" {
		dc.Logger.Infof("Connected to MySQL database: %s", dc.Database)
	} else {
		dc.Logger.Infof("Connected to MySQL server: %s", dc.Host)
	}
	return nil
}

// IsConnected reports whether the connector holds an open connection
func (dc *DatabaseConnector) IsConnected() bool {
	return dc != nil && dc.DB != nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Info("MySQL connection closed")
		}
		dc.DB = nil
	}
}

// WithDatabase returns an unconnected copy of the connector scoped to database
func (dc *DatabaseConnector) WithDatabase(database string) *DatabaseConnector {
	return &DatabaseConnector{
		Host:     dc.Host,
		User:     dc.User,
		Password: dc.Password,
		Database: database,
		Port:     dc.Port,
		Logger:   dc.Logger,
	}
}

// ListDatabases returns the databases visible to the user. Errors are logged and yield an empty list.
func (dc *DatabaseConnector) ListDatabases(ctx context.Context) []string {
	names, err := dc.firstColumn(ctx, "SHOW DATABASES")
	if err != nil {
		dc.Logger.Errorf("Error fetching databases: %v", err)
		return []string{}
	}
	return names
}

// ListTables returns the tables of the current database. Errors are logged and yield an empty list.
func (dc *DatabaseConnector) ListTables(ctx context.Context) []string {
	names, err := dc.firstColumn(ctx, "SHOW TABLES")
	if err != nil {
		dc.Logger.Errorf("Error fetching tables: %v", err)
		return []string{}
	}
	return names
}

func (dc *DatabaseConnector) firstColumn(ctx context.Context, query string) ([]string, error) {
	columns, rows, err := dc.QueryRows(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return []string{}, nil
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row[0].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// ExecuteQuery executes a SQL query and returns the results keyed by column name
func (dc *DatabaseConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	columns, rows, err := dc.QueryRows(ctx, query, params...)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0, len(rows))
	for _, values := range rows {
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, nil
}

// QueryRows executes a query and returns the column names and every row in server order
func (dc *DatabaseConnector) QueryRows(ctx context.Context, query string, params ...interface{}) ([]string, [][]interface{}, error) {
	if !dc.IsConnected() {
		return nil, nil, ErrNotConnected
	}

	rows, err := dc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Debugf("Error executing query: %v", err)
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Debugf("Error getting columns: %v", err)
		return nil, nil, err
	}

	data := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Debugf("Error scanning row: %v", err)
			return nil, nil, err
		}
		data = append(data, normalizeValues(values))
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Debugf("Error iterating rows: %v", err)
		return nil, nil, err
	}

	return columns, data, nil
}

// ExecuteInTransaction runs a statement in its own transaction and commits it.
// The transaction is rolled back when the statement or the commit fails.
func (dc *DatabaseConnector) ExecuteInTransaction(ctx context.Context, statement string) (int64, error) {
	if !dc.IsConnected() {
		return 0, ErrNotConnected
	}

	tx, err := dc.DB.BeginTx(ctx, nil)
	if err != nil {
		dc.Logger.Debugf("Error starting transaction: %v", err)
		return 0, err
	}

	result, err := tx.ExecContext(ctx, statement)
	if err != nil {
		dc.Logger.Debugf("Error executing statement: %v", err)
		_ = tx.Rollback()
		return 0, err
	}

	// DDL reports no affected rows on some servers; that is not a failure
	affected, err := result.RowsAffected()
	if err != nil {
		affected = 0
	}

	if err := tx.Commit(); err != nil {
		dc.Logger.Debugf("Error committing transaction: %v", err)
		_ = tx.Rollback()
		return 0, err
	}

	return affected, nil
}

// normalizeValues converts []byte column values to strings
func normalizeValues(values []interface{}) []interface{} {
	for i, val := range values {
		if b, ok := val.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
