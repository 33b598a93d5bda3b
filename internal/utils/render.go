package utils

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/vitebski/mysql-nl-query/internal/pipeline"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

// NullText is how a SQL NULL is shown in result tables
const NullText = "NULL"

// RenderSchema renders the columns of a table as a table with a header row
func RenderSchema(schema models.SchemaDescriptor) (string, error) {
	if len(schema) == 0 {
		return "", nil
	}
	data := pterm.TableData{{"Field", "Type", "Null", "Key", "Default", "Extra"}}
	for _, column := range schema {
		def := NullText
		if column.Default != nil {
			def = *column.Default
		}
		data = append(data, []string{column.Name, column.Type, column.Null, column.Key, def, column.Extra})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// RenderResult renders an execution result. An empty rows result renders as "no rows".
func RenderResult(result models.ExecutionResult) (string, error) {
	switch result.Kind {
	case models.AckResult:
		return fmt.Sprintf("Query executed successfully (%d rows affected)", result.RowsAffected), nil
	case models.FailureResult:
		return "Error executing query: " + result.Message, nil
	}

	if len(result.Data) == 0 {
		return "no rows", nil
	}
	data := make(pterm.TableData, 0, len(result.Data)+1)
	data = append(data, result.Columns)
	for _, row := range result.Data {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = cellText(value)
		}
		data = append(data, cells)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func cellText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return NullText
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// PrintSchema prints the columns of table
func PrintSchema(table string, schema models.SchemaDescriptor) {
	if len(schema) == 0 {
		pterm.Warning.Printf("No columns found for table %s\n", table)
		return
	}
	pterm.DefaultSection.Println(table)
	out, err := RenderSchema(schema)
	if err != nil {
		pterm.Error.Println(err)
		return
	}
	pterm.Println(out)
}

// PrintOutcome prints the generated SQL, when there is one, followed by the result
func PrintOutcome(outcome pipeline.Outcome) {
	if outcome.SQL != "" {
		pterm.Info.Println("SQL: " + outcome.SQL)
	}
	if !outcome.Executed {
		if outcome.Err != nil {
			pterm.Error.Printf("%s failed: %v\n", outcome.Stage, outcome.Err)
		}
		return
	}

	out, err := RenderResult(outcome.Result)
	if err != nil {
		pterm.Error.Println(err)
		return
	}
	switch outcome.Result.Kind {
	case models.AckResult:
		pterm.Success.Println(out)
	case models.FailureResult:
		pterm.Error.Println(out)
	default:
		pterm.Println(out)
	}
}

// PrintList prints names as a bullet list, marking the ones in flagged
func PrintList(title string, names []string, flagged map[string]bool) {
	if len(names) == 0 {
		pterm.Info.Printf("No %s found\n", strings.ToLower(title))
		return
	}
	pterm.DefaultSection.Println(title)
	items := make([]pterm.BulletListItem, 0, len(names))
	for _, name := range names {
		text := name
		if flagged[name] {
			text += " (circular)"
		}
		items = append(items, pterm.BulletListItem{Level: 0, Text: text})
	}
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}
