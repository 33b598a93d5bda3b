package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/connector"
	"github.com/vitebski/mysql-nl-query/internal/metrics"
	"github.com/vitebski/mysql-nl-query/pkg/models"
	"github.com/yourbasic/graph"
)

// SchemaAnalyzer reads table schemas and foreign keys from the connected database
type SchemaAnalyzer struct {
	DB          *connector.DatabaseConnector
	ForeignKeys map[string][]models.ForeignKey
	Logger      *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(db *connector.DatabaseConnector, logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		DB:          db,
		ForeignKeys: make(map[string][]models.ForeignKey),
		Logger:      logger,
	}
}

// DescribeTable returns the columns of table in physical order.
// Failures are reported through the logger and yield an empty descriptor.
func (sa *SchemaAnalyzer) DescribeTable(ctx context.Context, table string) models.SchemaDescriptor {
	// The table name is embedded as given; callers pass names from SHOW TABLES.
	rows, err := sa.DB.ExecuteQuery(ctx, fmt.Sprintf("DESCRIBE %s", table))
	if err != nil {
		sa.Logger.Errorf("Error fetching schema for %s: %v", table, err)
		metrics.ObserveIntrospectionFailure()
		return models.SchemaDescriptor{}
	}

	schema := make(models.SchemaDescriptor, 0, len(rows))
	for _, row := range rows {
		column := models.Column{
			Name:  asString(row["Field"]),
			Type:  asString(row["Type"]),
			Null:  asString(row["Null"]),
			Key:   asString(row["Key"]),
			Extra: asString(row["Extra"]),
		}
		if row["Default"] != nil {
			def := asString(row["Default"])
			column.Default = &def
		}
		schema = append(schema, column)
	}

	sa.Logger.Debugf("Described table %s: %d columns", table, len(schema))
	return schema
}

// LoadForeignKeys reads every foreign key of the current database
func (sa *SchemaAnalyzer) LoadForeignKeys(ctx context.Context) error {
	fkQuery := `
		SELECT
			table_name,
			column_name,
			referenced_table_name,
			referenced_column_name,
			constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND referenced_table_name IS NOT NULL
		ORDER BY table_name, column_name
	`
	fkResult, err := sa.DB.ExecuteQuery(ctx, fkQuery, sa.DB.Database)
	if err != nil {
		sa.Logger.Errorf("Error getting foreign keys: %v", err)
		return err
	}

	sa.ForeignKeys = make(map[string][]models.ForeignKey)
	for _, row := range fkResult {
		fk := models.ForeignKey{
			Table:            lookup(row, "table_name", "TABLE_NAME"),
			Column:           lookup(row, "column_name", "COLUMN_NAME"),
			ReferencedTable:  lookup(row, "referenced_table_name", "REFERENCED_TABLE_NAME"),
			ReferencedColumn: lookup(row, "referenced_column_name", "REFERENCED_COLUMN_NAME"),
			ConstraintName:   lookup(row, "constraint_name", "CONSTRAINT_NAME"),
		}
		sa.ForeignKeys[fk.Table] = append(sa.ForeignKeys[fk.Table], fk)
	}
	return nil
}

// GetTableInsertionOrder orders tables so referenced tables come before the tables
// referencing them. Tables that take part in a foreign key cycle are returned in the
// second map and grouped together, sorted by name.
func (sa *SchemaAnalyzer) GetTableInsertionOrder(tables []string) ([]string, map[string]bool) {
	index := make(map[string]int, len(tables))
	for i, table := range tables {
		index[table] = i
	}

	// edge parent -> child
	g := graph.New(len(tables))
	for _, table := range tables {
		for _, fk := range sa.ForeignKeys[table] {
			if fk.ReferencedTable == table {
				continue
			}
			if parent, ok := index[fk.ReferencedTable]; ok {
				g.Add(parent, index[table])
			}
		}
	}

	circular := make(map[string]bool)
	if order, ok := graph.TopSort(g); ok {
		ordered := make([]string, 0, len(order))
		for _, v := range order {
			ordered = append(ordered, tables[v])
		}
		return ordered, circular
	}

	// Collapse each cycle into one node and sort the resulting DAG
	components := graph.StrongComponents(g)
	componentOf := make([]int, len(tables))
	for c, members := range components {
		for _, v := range members {
			componentOf[v] = c
		}
		if len(members) > 1 {
			for _, v := range members {
				circular[tables[v]] = true
			}
		}
	}

	condensed := graph.New(len(components))
	for v := 0; v < len(tables); v++ {
		g.Visit(v, func(w int, _ int64) bool {
			if componentOf[v] != componentOf[w] {
				condensed.Add(componentOf[v], componentOf[w])
			}
			return false
		})
	}

	componentOrder, _ := graph.TopSort(condensed)
	ordered := make([]string, 0, len(tables))
	for _, c := range componentOrder {
		names := make([]string, 0, len(components[c]))
		for _, v := range components[c] {
			names = append(names, tables[v])
		}
		sort.Strings(names)
		ordered = append(ordered, names...)
	}

	sa.Logger.Warningf("Found %d tables in foreign key cycles", len(circular))
	return ordered, circular
}

func lookup(row map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if val, ok := row[key]; ok && val != nil {
			return asString(val)
		}
	}
	return ""
}

func asString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
