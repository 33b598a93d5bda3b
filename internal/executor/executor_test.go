package executor

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/connector"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

func newTestExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := &connector.DatabaseConnector{Database: "shop", DB: sqlDB, Logger: logger}
	return NewExecutor(db, logger), mock
}

func TestExecuteReadReturnsRows(t *testing.T) {
	executor, mock := newTestExecutor(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees;")).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(42)))

	result := executor.Execute(context.Background(), "SELECT COUNT(*) FROM employees;")

	if result.Kind != models.RowsResult {
		t.Fatalf("Expected rows result, got %s (%s)", result.Kind, result.Message)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "COUNT(*)" {
		t.Errorf("Expected columns [COUNT(*)], got %v", result.Columns)
	}
	if len(result.Data) != 1 || result.Data[0][0] != int64(42) {
		t.Errorf("Expected [[42]], got %v", result.Data)
	}
	// sqlmock fails on any unexpected Begin/Commit
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestExecuteReadIgnoresCaseAndLeadingWhitespace(t *testing.T) {
	executor, mock := newTestExecutor(t)

	mock.ExpectQuery("select name from customers").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	result := executor.Execute(context.Background(), "  \n select name from customers")
	if result.Kind != models.RowsResult {
		t.Fatalf("Expected rows result, got %s (%s)", result.Kind, result.Message)
	}
	if len(result.Data) != 0 {
		t.Errorf("Expected no rows, got %v", result.Data)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestExecuteMutationCommits(t *testing.T) {
	executor, mock := newTestExecutor(t)

	statement := "INSERT INTO customers (id, name) VALUES (1, 'John Doe')"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(statement)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := executor.Execute(context.Background(), statement)

	if result.Kind != models.AckResult {
		t.Fatalf("Expected ack result, got %s (%s)", result.Kind, result.Message)
	}
	if result.RowsAffected != 1 {
		t.Errorf("Expected 1 affected row, got %d", result.RowsAffected)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestExecuteDDLCommits(t *testing.T) {
	executor, mock := newTestExecutor(t)

	statement := "CREATE TABLE customers (id INT PRIMARY KEY, name VARCHAR(100))"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(statement)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if result := executor.Execute(context.Background(), statement); result.Kind != models.AckResult {
		t.Fatalf("Expected ack result, got %s (%s)", result.Kind, result.Message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestExecuteReportsFailures(t *testing.T) {
	executor, mock := newTestExecutor(t)

	mock.ExpectQuery("SELEC").WillReturnError(errors.New("You have an error in your SQL syntax"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders").WillReturnError(errors.New("foreign key constraint fails"))
	mock.ExpectRollback()

	read := executor.Execute(context.Background(), "SELECT * FORM orders")
	if read.Kind != models.FailureResult || read.Message != "You have an error in your SQL syntax" {
		t.Errorf("Expected read failure, got %+v", read)
	}

	write := executor.Execute(context.Background(), "DELETE FROM orders")
	if !write.Failed() || write.Message != "foreign key constraint fails" {
		t.Errorf("Expected write failure, got %+v", write)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestExecuteWithoutConnectionFails(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	executor := NewExecutor(&connector.DatabaseConnector{Logger: logger}, logger)

	result := executor.Execute(context.Background(), "SELECT 1")
	if !result.Failed() {
		t.Errorf("Expected failure without a connection, got %+v", result)
	}
}
