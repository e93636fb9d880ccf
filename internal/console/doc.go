// Package console is the interactive record manager. A Session reads one
// intent per line, parses it with a kong grammar and renders results as
// tables, JSON or YAML. The same grammar serves one-shot CLI commands.
package console
