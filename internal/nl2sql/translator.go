// Package nl2sql turns a natural-language question into a single MySQL statement.
//
// A Synthesizer asks a generative model for SQL and returns its raw text; an
// Extractor isolates the one statement to run from that text.
package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

// DefaultPrompt is the fixed instruction sent ahead of every question
const DefaultPrompt = `
You are an expert in converting English statements into SQL queries for a MySQL database!
The user will specify the database and table they want to query. The table schema is dynamic and not fixed.
Generate SQL queries based on the user's natural language input.

Examples:
1. How many records are in the employees table: SELECT COUNT(*) FROM employees;
2. Get all products with price above 100: SELECT * FROM products WHERE price > 100;
3. Create a table for customers: CREATE TABLE customers (id INT PRIMARY KEY, name VARCHAR(100), email VARCHAR(100));
4. Insert a customer record: INSERT INTO customers VALUES (1, 'John Doe', 'john@example.com');

Return exactly one SQL statement.
The SQL query should not have any ... in the beginning or end and should not include the word 'sql' in the output.
Ensure the query matches the table and column names exactly as provided by the user.
`

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Synthesizer calls a generative model with an instruction prompt and a question
// and returns the model's raw text, trimmed. Model errors are returned, never retried.
type Synthesizer interface {
	Synthesize(ctx context.Context, question, prompt string) (string, error)
	Provider() string
	Model() string
}

// Config selects and configures a Synthesizer
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// NewSynthesizer builds the synthesizer named by cfg.Provider; empty means gemini
func NewSynthesizer(ctx context.Context, cfg Config) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGeminiSynthesizer(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAISynthesizer(cfg)
	default:
		return nil, errors.Errorf("unknown model provider %q (expected %s or %s)", cfg.Provider, ProviderGemini, ProviderOpenAI)
	}
}

// WithSchemaContext appends a table's described columns to a question.
// The pipeline only uses it when asked to; the default prompt carries no schema.
func WithSchemaContext(question, table string, schema models.SchemaDescriptor) string {
	if table == "" || len(schema) == 0 {
		return question
	}
	columns := make([]string, 0, len(schema))
	for _, col := range schema {
		columns = append(columns, fmt.Sprintf("%s (%s)", col.Name, col.Type))
	}
	return fmt.Sprintf("%s\n\nTable %s has columns: %s", strings.TrimSpace(question), table, strings.Join(columns, ", "))
}
