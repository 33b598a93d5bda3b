package nl2sql

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/sqlparser"
)

var sqlVerbs = []string{"select", "insert", "update", "delete", "create"}

var (
	ErrNoStatement          = errors.New("model output contains no SQL statement")
	ErrMultipleStatements   = errors.New("model output contains more than one SQL statement")
	ErrUnsupportedStatement = errors.New("statement does not start with a supported SQL verb")
	ErrUnparsableStatement  = errors.New("statement could not be parsed")
)

// Extractor isolates the single statement to execute from raw model output
type Extractor interface {
	Extract(raw string) (string, error)
}

// HeuristicExtractor picks the first line that starts with a known SQL verb and
// falls back to the whole output. It never fails.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(raw string) (string, error) {
	return ExtractStatement(raw), nil
}

// ExtractStatement returns the first trimmed line whose lowercase form starts with
// select, insert, update, delete or create; otherwise the trimmed input unchanged.
func ExtractStatement(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, line := range strings.FieldsFunc(trimmed, isLineBreak) {
		candidate := strings.TrimSpace(line)
		if startsWithVerb(candidate) {
			return candidate
		}
	}
	return trimmed
}

// isLineBreak reports the line boundaries a model may emit, not just \n
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func startsWithVerb(line string) bool {
	lower := strings.ToLower(line)
	for _, verb := range sqlVerbs {
		if strings.HasPrefix(lower, verb) {
			return true
		}
	}
	return false
}

// StrictExtractor accepts only output that is exactly one statement with a known verb.
// SELECT, INSERT, UPDATE and DELETE must also parse; CREATE is accepted on its verb.
type StrictExtractor struct{}

func (StrictExtractor) Extract(raw string) (string, error) {
	text := stripMarkdownSQL(raw)
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "."))
	if text == "" {
		return "", ErrNoStatement
	}

	statements := splitStatements(text)
	if len(statements) == 0 {
		return "", ErrNoStatement
	}
	if len(statements) > 1 {
		return "", errors.Wrapf(ErrMultipleStatements, "found %d", len(statements))
	}

	statement := statements[0]
	verb := leadingWord(statement)
	switch verb {
	case "select":
		if _, err := sqlparser.ParseQuery(statement); err != nil {
			return "", errors.Wrap(ErrUnparsableStatement, err.Error())
		}
	case "insert":
		if _, err := sqlparser.ParseInsert(statement); err != nil {
			return "", errors.Wrap(ErrUnparsableStatement, err.Error())
		}
	case "update":
		if _, err := sqlparser.ParseUpdate(statement); err != nil {
			return "", errors.Wrap(ErrUnparsableStatement, err.Error())
		}
	case "delete":
		if _, err := sqlparser.ParseDelete(statement); err != nil {
			return "", errors.Wrap(ErrUnparsableStatement, err.Error())
		}
	case "create":
	default:
		return "", errors.Wrapf(ErrUnsupportedStatement, "got %q", verb)
	}
	return statement, nil
}

func leadingWord(statement string) string {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return ""
	}
	word := strings.ToLower(fields[0])
	if i := strings.IndexAny(word, "(;"); i >= 0 {
		word = word[:i]
	}
	return word
}

// splitStatements splits on semicolons outside quotes and comments and drops empty pieces.
// Comments are --, # and /* */ as in MySQL.
func splitStatements(text string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		escaped    bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			escaped = false
		case quote != 0 && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '#' || r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			current.WriteRune(' ')
			continue
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				i++
			}
			// step past the closing slash; the loop increment moves beyond it
			i++
			current.WriteRune(' ')
			continue
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return statements
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	if first, rest, ok := strings.Cut(trimmed, "\n"); ok && strings.EqualFold(strings.TrimSpace(first), "sql") {
		return strings.TrimSpace(rest)
	}
	return trimmed
}
