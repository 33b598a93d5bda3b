package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
	"github.com/vitebski/mysql-nl-query/internal/pipeline"
	"github.com/vitebski/mysql-nl-query/internal/utils"
)

type shellAction int

const (
	shellNothing shellAction = iota
	shellQuit
	shellHelp
	shellDatabases
	shellUse
	shellTables
	shellDescribe
	shellInsert
	shellSample
	shellCreate
	shellStrict
	shellAsk
)

// shellLine is one parsed shell line
type shellLine struct {
	action shellAction
	args   []string
	text   string
}

const shellHelpText = `Commands:
  \l                       list databases
  \c <database>            switch database
  \dt                      list tables, parents first
  \d <table>               describe a table
  \i <table> col=value...  insert a record
  \sample <table>          insert a generated record
  \create <name> <cols>    create a table
  \strict                  toggle strict statement checking
  \q                       quit
Anything else is asked to the model.`

// parseShellLine maps a line of input to a shell action. Lines that are not
// backslash commands are questions for the model.
func parseShellLine(line string) shellLine {
	text := strings.TrimSpace(line)
	if text == "" {
		return shellLine{action: shellNothing}
	}
	switch strings.ToLower(text) {
	case "exit", "quit":
		return shellLine{action: shellQuit}
	case "help":
		return shellLine{action: shellHelp}
	}
	if !strings.HasPrefix(text, `\`) {
		return shellLine{action: shellAsk, text: text}
	}

	fields := strings.Fields(text)
	args := fields[1:]
	switch fields[0] {
	case `\q`:
		return shellLine{action: shellQuit}
	case `\?`, `\h`:
		return shellLine{action: shellHelp}
	case `\l`:
		return shellLine{action: shellDatabases}
	case `\c`:
		return withArity(shellUse, args, 1)
	case `\dt`:
		return shellLine{action: shellTables}
	case `\d`:
		return withArity(shellDescribe, args, 1)
	case `\i`:
		// values may be quoted to carry spaces: name='John Doe'
		tokens, err := shlex.Split(strings.TrimSpace(strings.TrimPrefix(text, fields[0])))
		if err != nil {
			return shellLine{action: shellHelp}
		}
		return withArity(shellInsert, tokens, 1)
	case `\sample`:
		return withArity(shellSample, args, 1)
	case `\create`:
		cmd := withArity(shellCreate, args, 2)
		if cmd.action == shellCreate {
			// keep the definition text as typed
			name := args[0]
			cmd.text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(text, fields[0])), name))
		}
		return cmd
	case `\strict`:
		return shellLine{action: shellStrict}
	}
	return shellLine{action: shellHelp}
}

func withArity(action shellAction, args []string, arity int) shellLine {
	if len(args) < arity {
		return shellLine{action: shellHelp}
	}
	return shellLine{action: action, args: args}
}

func (a *app) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.newPipeline(ctx, true)
			if err != nil {
				pterm.Warning.Printf("Questions are disabled: %v\n", err)
				p, _ = a.newPipeline(ctx, false)
			}
			session, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			return runShell(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), p, session)
		},
	}
}

func runShell(ctx context.Context, in io.Reader, out io.Writer, p *pipeline.Pipeline, s *pipeline.Session) error {
	fmt.Fprintln(out, `Type \? for help.`)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s> ", promptName(s))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		command := parseShellLine(scanner.Text())
		if command.action == shellQuit {
			return nil
		}
		if err := runShellCommand(ctx, out, p, s, command); err != nil {
			pterm.Error.Println(err)
		}
	}
}

func runShellCommand(ctx context.Context, out io.Writer, p *pipeline.Pipeline, s *pipeline.Session, command shellLine) error {
	switch command.action {
	case shellHelp:
		fmt.Fprintln(out, shellHelpText)
	case shellDatabases:
		utils.PrintList("Databases", s.Databases(ctx), nil)
	case shellUse:
		return s.UseDatabase(ctx, command.args[0])
	case shellTables:
		return listTables(ctx, p, s, true)
	case shellDescribe:
		return describeTable(ctx, p, s, command.args[0])
	case shellInsert:
		values, err := parseAssignments(command.args[1:])
		if err != nil {
			return err
		}
		utils.PrintOutcome(p.InsertRecord(ctx, s, command.args[0], values))
	case shellSample:
		utils.PrintOutcome(p.InsertSample(ctx, s, command.args[0]))
	case shellCreate:
		utils.PrintOutcome(p.CreateTable(ctx, s, command.args[0], command.text))
	case shellStrict:
		if _, strict := p.Extractor.(nl2sql.StrictExtractor); strict {
			p.Extractor = nl2sql.HeuristicExtractor{}
			fmt.Fprintln(out, "strict checking off")
		} else {
			p.Extractor = nl2sql.StrictExtractor{}
			fmt.Fprintln(out, "strict checking on")
		}
	case shellAsk:
		utils.PrintOutcome(p.Ask(ctx, s, command.text))
	}
	return nil
}

func promptName(s *pipeline.Session) string {
	if db := s.CurrentDatabase(); db != "" {
		return db
	}
	return "mysql"
}
