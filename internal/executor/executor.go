package executor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/connector"
	"github.com/vitebski/mysql-nl-query/internal/metrics"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

// Executor runs finalized SQL statements on the session's connection
type Executor struct {
	DB     *connector.DatabaseConnector
	Logger *logrus.Logger
}

// NewExecutor creates a new executor
func NewExecutor(db *connector.DatabaseConnector, logger *logrus.Logger) *Executor {
	return &Executor{DB: db, Logger: logger}
}

// Execute runs statement and never returns an error: failures come back as a Failure result.
// Statements starting with SELECT return every row; anything else is committed.
func (e *Executor) Execute(ctx context.Context, statement string) models.ExecutionResult {
	kind := models.ClassifyStatement(statement)
	start := time.Now()

	var result models.ExecutionResult
	switch kind {
	case models.ReadStatement:
		result = e.read(ctx, statement)
	default:
		result = e.write(ctx, statement)
	}

	metrics.ObserveStatement(kind.String(), result.Kind.String(), time.Since(start))
	return result
}

func (e *Executor) read(ctx context.Context, statement string) models.ExecutionResult {
	columns, rows, err := e.DB.QueryRows(ctx, statement)
	if err != nil {
		e.Logger.Errorf("Error executing query: %v", err)
		return models.Failure(err.Error())
	}
	e.Logger.Debugf("Query returned %d rows", len(rows))
	return models.Rows(columns, rows)
}

func (e *Executor) write(ctx context.Context, statement string) models.ExecutionResult {
	affected, err := e.DB.ExecuteInTransaction(ctx, statement)
	if err != nil {
		e.Logger.Errorf("Error executing query: %v", err)
		return models.Failure(err.Error())
	}
	e.Logger.Debugf("Statement committed, %d rows affected", affected)
	return models.Ack(affected)
}
