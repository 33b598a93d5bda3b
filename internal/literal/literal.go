// Package literal turns raw column values into SQL literal text for INSERT statements.
//
// Values are embedded verbatim: string literals are wrapped in single quotes without
// escaping, and identifiers are not quoted. Callers must not pass untrusted input.
package literal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vitebski/mysql-nl-query/pkg/models"
)

// Render returns the SQL literal of each value, in schema order, for the columns present in values.
func Render(schema models.SchemaDescriptor, values map[string]interface{}) []string {
	record := RenderRecord(schema, values)
	literals := make([]string, 0, len(record))
	for _, entry := range record {
		literals = append(literals, entry.Literal)
	}
	return literals
}

// RenderRecord is Render keeping each literal next to its column name.
// Duplicate column names in the schema produce duplicate entries. Column names
// match case-insensitively, as they do in MySQL.
func RenderRecord(schema models.SchemaDescriptor, values map[string]interface{}) []models.ColumnValue {
	record := make([]models.ColumnValue, 0, len(values))
	for _, column := range schema {
		raw, ok := Lookup(values, column.Name)
		if !ok {
			continue
		}
		record = append(record, models.ColumnValue{
			Column:  column.Name,
			Literal: RenderValue(column.Type, raw),
		})
	}
	return record
}

// Lookup finds the value for column, preferring an exact key over a case-insensitive one.
// Among several case-insensitive matches the smallest key wins.
func Lookup(values map[string]interface{}, column string) (interface{}, bool) {
	if raw, ok := values[column]; ok {
		return raw, true
	}
	var (
		found   string
		matched bool
	)
	for key := range values {
		if strings.EqualFold(key, column) && (!matched || key < found) {
			found, matched = key, true
		}
	}
	if !matched {
		return nil, false
	}
	return values[found], true
}

// RenderValue renders one value according to the declared column type
func RenderValue(declaredType string, raw interface{}) string {
	switch Classify(declaredType) {
	case IntegerLiteral:
		return integerText(raw)
	case DecimalLiteral:
		return decimalText(raw)
	default:
		return "'" + text(raw) + "'"
	}
}

// Kind is the literal form chosen for a declared type
type Kind int

const (
	StringLiteral Kind = iota
	IntegerLiteral
	DecimalLiteral
)

// Classify inspects the declared type case-insensitively
func Classify(declaredType string) Kind {
	lower := strings.ToLower(declaredType)
	switch {
	case strings.Contains(lower, "int"):
		return IntegerLiteral
	case strings.Contains(lower, "float"), strings.Contains(lower, "double"):
		return DecimalLiteral
	default:
		return StringLiteral
	}
}

func integerText(raw interface{}) string {
	switch v := raw.(type) {
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return integerText(float64(v))
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Sprintf("%v", v)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
		if v >= math.MinInt64 && v < math.MaxInt64 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return strconv.FormatUint(n, 10)
		}
		if isDigits(s) {
			// out of range for any integer column; the server reports it
			return s
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return integerText(f)
		}
		// malformed input goes through; the server rejects it
		return s
	default:
		return text(raw)
	}
}

func isDigits(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func decimalText(raw interface{}) string {
	switch v := raw.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return s
	default:
		return text(raw)
	}
}

func text(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// BuildInsert assembles an INSERT statement from a rendered record
func BuildInsert(table string, record []models.ColumnValue) string {
	columns := make([]string, 0, len(record))
	literals := make([]string, 0, len(record))
	for _, entry := range record {
		columns = append(columns, entry.Column)
		literals = append(literals, entry.Literal)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(literals, ", "),
	)
}

// BuildCreateTable assembles a CREATE TABLE statement from a name and a column definition list
func BuildCreateTable(table, schemaText string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.TrimSpace(schemaText))
}
