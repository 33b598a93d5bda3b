package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/connector"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
	"github.com/vitebski/mysql-nl-query/internal/pipeline"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

func TestParseShellLine(t *testing.T) {
	useCases := []struct {
		line   string
		action shellAction
		args   []string
		text   string
	}{
		{line: "   ", action: shellNothing},
		{line: `\q`, action: shellQuit},
		{line: "exit", action: shellQuit},
		{line: `\?`, action: shellHelp},
		{line: `\l`, action: shellDatabases},
		{line: `\c shop`, action: shellUse, args: []string{"shop"}},
		{line: `\c`, action: shellHelp},
		{line: `\dt`, action: shellTables},
		{line: `\d customers`, action: shellDescribe, args: []string{"customers"}},
		{line: `\i customers id=1 name=Ann`, action: shellInsert, args: []string{"customers", "id=1", "name=Ann"}},
		{line: `\i customers id=1 name='John Doe' note="say \"hi\""`, action: shellInsert, args: []string{"customers", "id=1", "name=John Doe", `note=say "hi"`}},
		{line: `\i customers name='unterminated`, action: shellHelp},
		{line: `\sample customers`, action: shellSample, args: []string{"customers"}},
		{
			line:   `\create customers id INT PRIMARY KEY, name VARCHAR(100)`,
			action: shellCreate,
			args:   []string{"customers", "id", "INT", "PRIMARY", "KEY,", "name", "VARCHAR(100)"},
			text:   "id INT PRIMARY KEY, name VARCHAR(100)",
		},
		{line: `\strict`, action: shellStrict},
		{line: `\unknown`, action: shellHelp},
		{line: " how many customers are there? ", action: shellAsk, text: "how many customers are there?"},
	}

	for _, useCase := range useCases {
		got := parseShellLine(useCase.line)
		if got.action != useCase.action {
			t.Errorf("%q: expected action %d, got %d", useCase.line, useCase.action, got.action)
		}
		if strings.Join(got.args, "|") != strings.Join(useCase.args, "|") {
			t.Errorf("%q: expected args %v, got %v", useCase.line, useCase.args, got.args)
		}
		if got.text != useCase.text {
			t.Errorf("%q: expected text %q, got %q", useCase.line, useCase.text, got.text)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"id=1", "name=John Doe", "note=a=b", "empty="})
	if err != nil {
		t.Fatalf("parseAssignments() error = %v", err)
	}
	expected := map[string]string{"id": "1", "name": "John Doe", "note": "a=b", "empty": ""}
	for column, want := range expected {
		if values[column] != want {
			t.Errorf("Expected %s=%q, got %v", column, want, values[column])
		}
	}

	if _, err := parseAssignments([]string{"novalue"}); err == nil {
		t.Error("Expected an error for an argument without =")
	}
	if _, err := parseAssignments([]string{"=1"}); err == nil {
		t.Error("Expected an error for an empty column name")
	}
}

func TestPromptLabel(t *testing.T) {
	if got := promptLabel(models.Column{Name: "name", Type: "varchar(100)", Null: "NO"}); got != "name (varchar(100)) *" {
		t.Errorf("Expected required marker, got %q", got)
	}
	if got := promptLabel(models.Column{Name: "note", Type: "text", Null: "YES"}); got != "note (text)" {
		t.Errorf("Expected plain label, got %q", got)
	}
}

func TestRunShellTogglesStrictAndQuits(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer sqlDB.Close()

	session := pipeline.NewSession(&connector.DatabaseConnector{Database: "shop", DB: sqlDB, Logger: logger}, logger)
	p := pipeline.NewPipeline(nil, logger)

	var out bytes.Buffer
	in := strings.NewReader("\\strict\n\n\\?\n\\q\nnever read\n")
	if err := runShell(context.Background(), in, &out, p, session); err != nil {
		t.Fatalf("runShell() error = %v", err)
	}

	if _, ok := p.Extractor.(nl2sql.StrictExtractor); !ok {
		t.Errorf("Expected strict extractor after toggle, got %T", p.Extractor)
	}
	for _, want := range []string{"shop> ", "strict checking on", `\sample <table>`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got %q", want, out.String())
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
