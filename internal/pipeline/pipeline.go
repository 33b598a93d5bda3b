// Package pipeline runs the user-facing actions against a session: asking a question
// in natural language, creating a table, inserting a record and browsing the schema.
package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/analyzer"
	"github.com/vitebski/mysql-nl-query/internal/executor"
	"github.com/vitebski/mysql-nl-query/internal/generator"
	"github.com/vitebski/mysql-nl-query/internal/literal"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

// Stage names the last step an action reached
type Stage string

const (
	StageSession    Stage = "session"
	StageSchema     Stage = "schema"
	StageSynthesis  Stage = "synthesis"
	StageExtraction Stage = "extraction"
	StageExecution  Stage = "execution"
)

// Outcome is what one action produced. Err is set when the action failed at Stage.
type Outcome struct {
	Question string
	Raw      string
	SQL      string
	Result   models.ExecutionResult
	Executed bool
	Err      error
	Stage    Stage
}

// Failed reports whether the action stopped on an error
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// AskOptions tunes a single Ask
type AskOptions struct {
	// DryRun stops after extraction without touching the database
	DryRun bool
	// SchemaTable, when set, appends that table's columns to the question
	SchemaTable string
}

// Pipeline wires the synthesizer, extractor, executor and sample generator together
type Pipeline struct {
	Synthesizer nl2sql.Synthesizer
	Extractor   nl2sql.Extractor
	Prompt      string
	Generator   *generator.DataGenerator
	Logger      *logrus.Logger
}

// NewPipeline creates a pipeline with the default prompt and the heuristic extractor
func NewPipeline(synthesizer nl2sql.Synthesizer, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		Synthesizer: synthesizer,
		Extractor:   nl2sql.HeuristicExtractor{},
		Prompt:      nl2sql.DefaultPrompt,
		Generator:   generator.NewDataGenerator(logger),
		Logger:      logger,
	}
}

// Ask translates question to SQL and runs it
func (p *Pipeline) Ask(ctx context.Context, s *Session, question string) Outcome {
	return p.AskWithOptions(ctx, s, question, AskOptions{})
}

// AskWithOptions is Ask with a dry-run switch and optional schema context
func (p *Pipeline) AskWithOptions(ctx context.Context, s *Session, question string, opts AskOptions) Outcome {
	outcome := Outcome{Question: question, Stage: StageSession}
	if err := s.requireDatabase(); err != nil {
		return fail(outcome, err)
	}
	if p.Synthesizer == nil {
		outcome.Stage = StageSynthesis
		return fail(outcome, errors.New("no model configured"))
	}

	prompted := question
	if opts.SchemaTable != "" {
		outcome.Stage = StageSchema
		schema := analyzer.NewSchemaAnalyzer(s.Connector, p.Logger).DescribeTable(ctx, opts.SchemaTable)
		prompted = nl2sql.WithSchemaContext(question, opts.SchemaTable, schema)
	}

	outcome.Stage = StageSynthesis
	raw, err := p.Synthesizer.Synthesize(ctx, prompted, p.Prompt)
	if err != nil {
		p.Logger.Errorf("Error generating SQL: %v", err)
		return fail(outcome, errors.Wrap(err, "generate sql"))
	}
	outcome.Raw = raw
	p.Logger.Debugf("Model %s returned: %s", p.Synthesizer.Model(), raw)

	outcome.Stage = StageExtraction
	statement, err := p.extractor().Extract(raw)
	if err != nil {
		p.Logger.Warningf("Rejected model output: %v", err)
		return fail(outcome, err)
	}
	outcome.SQL = statement
	if opts.DryRun {
		return outcome
	}

	return p.execute(ctx, s, outcome)
}

// CreateTable runs CREATE TABLE name (schemaText)
func (p *Pipeline) CreateTable(ctx context.Context, s *Session, name, schemaText string) Outcome {
	outcome := Outcome{Stage: StageSession}
	if err := s.requireDatabase(); err != nil {
		return fail(outcome, err)
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(schemaText) == "" {
		return fail(outcome, errors.New("table name and schema are required"))
	}

	outcome.SQL = literal.BuildCreateTable(name, schemaText)
	return p.execute(ctx, s, outcome)
}

// InsertRecord inserts one row built from values, in the table's column order.
// Every key must name a column of the table, compared case-insensitively; otherwise
// nothing runs.
func (p *Pipeline) InsertRecord(ctx context.Context, s *Session, table string, values map[string]interface{}) Outcome {
	outcome := Outcome{Stage: StageSession}
	if err := s.requireDatabase(); err != nil {
		return fail(outcome, err)
	}

	outcome.Stage = StageSchema
	schema := analyzer.NewSchemaAnalyzer(s.Connector, p.Logger).DescribeTable(ctx, table)
	if len(schema) == 0 {
		return fail(outcome, errors.Errorf("could not read the columns of %s", table))
	}
	return p.insert(ctx, s, table, schema, values, outcome)
}

// InsertSample inserts one row of generated values into table
func (p *Pipeline) InsertSample(ctx context.Context, s *Session, table string) Outcome {
	outcome := Outcome{Stage: StageSession}
	if err := s.requireDatabase(); err != nil {
		return fail(outcome, err)
	}

	outcome.Stage = StageSchema
	schema := analyzer.NewSchemaAnalyzer(s.Connector, p.Logger).DescribeTable(ctx, table)
	if len(schema) == 0 {
		return fail(outcome, errors.Errorf("could not read the columns of %s", table))
	}
	return p.insert(ctx, s, table, schema, p.Generator.SampleRecord(schema), outcome)
}

func (p *Pipeline) insert(ctx context.Context, s *Session, table string, schema models.SchemaDescriptor, values map[string]interface{}, outcome Outcome) Outcome {
	if unknown := unknownColumns(schema, values); len(unknown) > 0 {
		p.Logger.Warningf("Unknown columns for table %s: %s", table, strings.Join(unknown, ", "))
		return fail(outcome, errors.Errorf("table %s has no column named %s", table, strings.Join(unknown, ", ")))
	}
	record := literal.RenderRecord(schema, values)
	if len(record) == 0 {
		return fail(outcome, errors.Errorf("no values given for the columns of %s", table))
	}

	outcome.SQL = literal.BuildInsert(table, record)
	return p.execute(ctx, s, outcome)
}

// Describe returns the columns of table; an unreadable table yields an empty descriptor
func (p *Pipeline) Describe(ctx context.Context, s *Session, table string) (models.SchemaDescriptor, error) {
	if err := s.requireDatabase(); err != nil {
		return nil, err
	}
	return analyzer.NewSchemaAnalyzer(s.Connector, p.Logger).DescribeTable(ctx, table), nil
}

// Tables lists the tables of the selected database. With byDependency the list is
// ordered parents first and the tables caught in foreign key cycles are reported.
func (p *Pipeline) Tables(ctx context.Context, s *Session, byDependency bool) ([]string, map[string]bool, error) {
	if err := s.requireDatabase(); err != nil {
		return nil, nil, err
	}

	tables := s.Connector.ListTables(ctx)
	if !byDependency || len(tables) == 0 {
		return tables, map[string]bool{}, nil
	}

	sa := analyzer.NewSchemaAnalyzer(s.Connector, p.Logger)
	if err := sa.LoadForeignKeys(ctx); err != nil {
		return tables, map[string]bool{}, errors.Wrap(err, "load foreign keys")
	}
	ordered, circular := sa.GetTableInsertionOrder(tables)
	return ordered, circular, nil
}

func (p *Pipeline) execute(ctx context.Context, s *Session, outcome Outcome) Outcome {
	outcome.Stage = StageExecution
	outcome.Result = executor.NewExecutor(s.Connector, p.Logger).Execute(ctx, outcome.SQL)
	outcome.Executed = true
	if outcome.Result.Failed() {
		outcome.Err = errors.New(outcome.Result.Message)
	}
	return outcome
}

func (p *Pipeline) extractor() nl2sql.Extractor {
	if p.Extractor == nil {
		return nl2sql.HeuristicExtractor{}
	}
	return p.Extractor
}

func fail(outcome Outcome, err error) Outcome {
	outcome.Err = err
	if !outcome.Executed {
		outcome.Result = models.Failure(err.Error())
	}
	return outcome
}

// unknownColumns returns the sorted keys of values that name no column of schema.
// MySQL column names are case-insensitive.
func unknownColumns(schema models.SchemaDescriptor, values map[string]interface{}) []string {
	var unknown []string
	for name := range values {
		if !hasColumn(schema, name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func hasColumn(schema models.SchemaDescriptor, name string) bool {
	for _, column := range schema {
		if strings.EqualFold(column.Name, name) {
			return true
		}
	}
	return false
}
