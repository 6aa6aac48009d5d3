package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlPattern    = regexp.MustCompile(`(?i)^\s*(select|insert|update|delete|with)\b`)
	markerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type violation struct {
	pos     token.Position
	name    string
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.pos.Filename, v.pos.Line, v.message, v.name)
}

// linter accumulates violations across files so duplicate markers are caught
// between packages too.
type linter struct {
	fset       *token.FileSet
	seen       map[string]token.Position
	violations []violation
}

func newLinter() *linter {
	return &linter{fset: token.NewFileSet(), seen: make(map[string]token.Position)}
}

func (l *linter) Violations() []violation { return l.violations }

// Lint inspects the string constants and variables of one Go source file.
func (l *linter) Lint(filename string, src []byte) error {
	file, err := parser.ParseFile(l.fset, filename, src, 0)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := strconv.Unquote(lit.Value)
			if err != nil {
				continue
			}
			name := "_"
			if i < len(spec.Names) {
				name = spec.Names[i].Name
			}
			l.check(name, l.fset.Position(lit.Pos()), raw)
		}
		return true
	})
	return nil
}

func (l *linter) check(name string, pos token.Position, raw string) {
	head, body := splitFirstLine(raw)
	m := markerPattern.FindStringSubmatch(head)
	if m == nil {
		// Only statements need a marker; plain strings are left alone.
		if sqlPattern.MatchString(head) || sqlPattern.MatchString(body) && strings.HasPrefix(head, "--sql") {
			l.report(pos, name, "missing or invalid --sql <uuid> marker")
		}
		return
	}
	if !sqlPattern.MatchString(body) {
		l.report(pos, name, "marker is not followed by a SQL statement")
	}
	if prev, dup := l.seen[m[1]]; dup {
		l.report(pos, name, fmt.Sprintf("marker %s already used at %s:%d", m[1], prev.Filename, prev.Line))
		return
	}
	l.seen[m[1]] = pos
}

func (l *linter) report(pos token.Position, name, message string) {
	l.violations = append(l.violations, violation{pos: pos, name: name, message: message})
}

func splitFirstLine(s string) (string, string) {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx]), s[idx+1:]
	}
	return strings.TrimSpace(s), ""
}
