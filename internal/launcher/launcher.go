// Package launcher renders the thin forwarding scripts installed in front of
// interpreter-hosted payloads. Rendering is a pure function of the
// interpreter prefix and the payload path.
package launcher

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Shebang is the first line of every launcher.
const Shebang = "#!/bin/bash"

var (
	errEmptyInterpreter = errors.New("interpreter prefix is empty")
	errEmptyPayload     = errors.New("payload path is empty")
)

// Render returns the two-line launcher that execs the interpreter prefix
// with the payload path and forwards "$@" untouched.
func Render(interpreter []string, payload string) (string, error) {
	if len(interpreter) == 0 {
		return "", errEmptyInterpreter
	}

	if payload == "" {
		return "", errEmptyPayload
	}

	words := make([]string, 0, len(interpreter)+3)
	words = append(words, "exec")

	for _, arg := range append(append([]string(nil), interpreter...), payload) {
		quoted, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("quote %q: %w", arg, err)
		}

		words = append(words, quoted)
	}

	words = append(words, `"$@"`)

	script := Shebang + "\n" + strings.Join(words, " ") + "\n"

	if err := Check(script); err != nil {
		return "", err
	}

	return script, nil
}

// Check parses script as bash and fails on syntax errors.
func Check(script string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(strings.NewReader(script), "launcher"); err != nil {
		return fmt.Errorf("launcher syntax: %w", err)
	}

	return nil
}
