package models

import "strings"

// Column represents one row of a DESCRIBE result
type Column struct {
	Name    string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// SchemaDescriptor is the ordered list of columns of one table, in physical order
type SchemaDescriptor []Column

// Names returns the column names in schema order
func (sd SchemaDescriptor) Names() []string {
	names := make([]string, 0, len(sd))
	for _, col := range sd {
		names = append(names, col.Name)
	}
	return names
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Table            string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	ConstraintName   string
}

// ColumnValue is a single rendered entry of a record, kept in column order
type ColumnValue struct {
	Column  string
	Literal string
}

// StatementKind tells the executor which branch a statement takes
type StatementKind int

const (
	ReadStatement StatementKind = iota
	MutationStatement
)

func (k StatementKind) String() string {
	if k == ReadStatement {
		return "read"
	}
	return "mutation"
}

// ClassifyStatement returns ReadStatement when the trimmed statement starts with SELECT
func ClassifyStatement(statement string) StatementKind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(statement)), "select") {
		return ReadStatement
	}
	return MutationStatement
}

// ResultKind discriminates ExecutionResult
type ResultKind int

const (
	RowsResult ResultKind = iota
	AckResult
	FailureResult
)

func (k ResultKind) String() string {
	switch k {
	case RowsResult:
		return "rows"
	case AckResult:
		return "ack"
	default:
		return "failure"
	}
}

// ExecutionResult is the outcome of executing one statement
type ExecutionResult struct {
	Kind         ResultKind
	Columns      []string
	Data         [][]interface{}
	RowsAffected int64
	Message      string
}

// Rows builds a read result
func Rows(columns []string, data [][]interface{}) ExecutionResult {
	return ExecutionResult{Kind: RowsResult, Columns: columns, Data: data}
}

// Ack builds a committed mutation result
func Ack(rowsAffected int64) ExecutionResult {
	return ExecutionResult{Kind: AckResult, RowsAffected: rowsAffected}
}

// Failure builds a failed result carrying the error message
func Failure(message string) ExecutionResult {
	return ExecutionResult{Kind: FailureResult, Message: message}
}

// Failed reports whether the result is a failure
func (r ExecutionResult) Failed() bool {
	return r.Kind == FailureResult
}
