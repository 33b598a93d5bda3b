package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
	"github.com/vitebski/mysql-nl-query/internal/pipeline"
	"github.com/vitebski/mysql-nl-query/internal/utils"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

func (a *app) databasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List the databases visible to the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			utils.PrintList("Databases", session.Databases(cmd.Context()), nil)
			return nil
		},
	}
}

func (a *app) tablesCommand() *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the selected database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if order != "name" && order != "dependency" {
				return errors.Errorf("unknown order %q (use name or dependency)", order)
			}
			return a.withSession(cmd.Context(), false, func(p *pipeline.Pipeline, s *pipeline.Session) error {
				return listTables(cmd.Context(), p, s, order == "dependency")
			})
		},
	}
	cmd.Flags().StringVarP(&order, "order", "o", "name", "Order tables by name or by foreign key dependency (parents first)")
	return cmd
}

func (a *app) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), false, func(p *pipeline.Pipeline, s *pipeline.Session) error {
				return describeTable(cmd.Context(), p, s, args[0])
			})
		},
	}
}

func (a *app) askCommand() *cobra.Command {
	var (
		dryRun     bool
		strict     bool
		withSchema string
	)
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Translate a question to SQL and run it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), true, func(p *pipeline.Pipeline, s *pipeline.Session) error {
				if strict {
					p.Extractor = nl2sql.StrictExtractor{}
				}
				outcome := p.AskWithOptions(cmd.Context(), s, strings.Join(args, " "), pipeline.AskOptions{
					DryRun:      dryRun,
					SchemaTable: withSchema,
				})
				utils.PrintOutcome(outcome)
				return outcome.Err
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the generated SQL without running it")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject model output that is not exactly one parseable statement")
	cmd.Flags().StringVar(&withSchema, "with-schema", "", "Send the columns of this table along with the question")
	return cmd
}

func (a *app) createTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-table <name> <column definitions...>",
		Short: "Create a table, e.g. create-table customers \"id INT PRIMARY KEY, name VARCHAR(100)\"",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), false, func(p *pipeline.Pipeline, s *pipeline.Session) error {
				outcome := p.CreateTable(cmd.Context(), s, args[0], strings.Join(args[1:], " "))
				utils.PrintOutcome(outcome)
				return outcome.Err
			})
		},
	}
}

func (a *app) insertCommand() *cobra.Command {
	var (
		interactive bool
		sample      bool
	)
	cmd := &cobra.Command{
		Use:   "insert <table> [column=value...]",
		Short: "Insert one record into a table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive && sample {
				return errors.New("--interactive and --sample cannot be combined")
			}
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), false, func(p *pipeline.Pipeline, s *pipeline.Session) error {
				table := args[0]
				var outcome pipeline.Outcome
				switch {
				case sample:
					outcome = p.InsertSample(cmd.Context(), s, table)
				case interactive:
					schema, err := p.Describe(cmd.Context(), s, table)
					if err != nil {
						return err
					}
					values, err = promptValues(schema)
					if err != nil {
						return err
					}
					outcome = p.InsertRecord(cmd.Context(), s, table, values)
				default:
					if len(values) == 0 {
						return errors.New("no values given (use column=value, --interactive or --sample)")
					}
					outcome = p.InsertRecord(cmd.Context(), s, table, values)
				}
				utils.PrintOutcome(outcome)
				return outcome.Err
			})
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for a value per column")
	cmd.Flags().BoolVar(&sample, "sample", false, "Insert generated sample values")
	return cmd
}

func (a *app) keyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage model API keys in the OS keyring",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <gemini|openai>",
		Short: "Store the API key of a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := utils.OpenKeyring()
			if err != nil {
				return err
			}
			key, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("API key for " + args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(key) == "" {
				return errors.New("empty key")
			}
			if err := store.Set(utils.APIKeyName(args[0]), strings.TrimSpace(key)); err != nil {
				return errors.Wrap(err, "store key")
			}
			pterm.Success.Printf("Stored %s in the keyring\n", utils.APIKeyName(args[0]))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <gemini|openai>",
		Short: "Remove the stored API key of a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := utils.OpenKeyring()
			if err != nil {
				return err
			}
			if err := store.Delete(utils.APIKeyName(args[0])); err != nil {
				return errors.Wrap(err, "delete key")
			}
			pterm.Success.Printf("Removed %s from the keyring\n", utils.APIKeyName(args[0]))
			return nil
		},
	})
	return cmd
}

// withSession opens a session and a pipeline around fn and closes the session after
func (a *app) withSession(ctx context.Context, withModel bool, fn func(*pipeline.Pipeline, *pipeline.Session) error) error {
	p, err := a.newPipeline(ctx, withModel)
	if err != nil {
		return err
	}
	session, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if session.CurrentDatabase() == "" {
		return errors.Wrap(pipeline.ErrNoDatabase, "pass --database or set MYSQL_DATABASE")
	}
	return fn(p, session)
}

func listTables(ctx context.Context, p *pipeline.Pipeline, s *pipeline.Session, byDependency bool) error {
	tables, circular, err := p.Tables(ctx, s, byDependency)
	if err != nil {
		return err
	}
	utils.PrintList("Tables in "+s.CurrentDatabase(), tables, circular)
	return nil
}

func describeTable(ctx context.Context, p *pipeline.Pipeline, s *pipeline.Session, table string) error {
	schema, err := p.Describe(ctx, s, table)
	if err != nil {
		return err
	}
	utils.PrintSchema(table, schema)
	return nil
}

// parseAssignments turns column=value arguments into raw values
func parseAssignments(args []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(args))
	for _, arg := range args {
		column, value, ok := strings.Cut(arg, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, errors.Errorf("expected column=value, got %q", arg)
		}
		values[column] = value
	}
	return values, nil
}

// promptValues asks for one value per column. Auto-increment columns are skipped
// and an empty answer leaves the column out of the INSERT.
func promptValues(schema models.SchemaDescriptor) (map[string]interface{}, error) {
	if len(schema) == 0 {
		return nil, errors.New("table has no readable columns")
	}
	values := make(map[string]interface{}, len(schema))
	for _, column := range schema {
		if strings.Contains(strings.ToLower(column.Extra), "auto_increment") {
			continue
		}
		answer, err := pterm.DefaultInteractiveTextInput.Show(promptLabel(column))
		if err != nil {
			return nil, err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			values[column.Name] = answer
		}
	}
	return values, nil
}

func promptLabel(column models.Column) string {
	label := column.Name + " (" + column.Type + ")"
	if column.Null == "NO" && column.Default == nil {
		label += " *"
	}
	return label
}
