// Package commands is the console's subcommand layer: "cmd <name> ..." lines
// tokenize into a name plus flag arguments and dispatch to registered
// handlers.
package commands

import (
	"flag"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const prefix = "cmd "

// Command pairs a flag set with the function run after parsing. Summary is
// the one-line description printed by help.
type Command struct {
	Name    string
	Summary string
	FlagSet *flag.FlagSet
	Run     func() error
}

// Registry holds subcommands by name.
type Registry struct {
	cmds map[string]*Command
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]*Command)}
}

// Register adds a subcommand under the first token after "cmd". run is called
// once fs.Parse accepts the remaining tokens.
func (r *Registry) Register(name, summary string, fs *flag.FlagSet, run func() error) {
	r.cmds[name] = &Command{Name: name, Summary: summary, FlagSet: fs, Run: run}
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Help returns one "name  summary" line per command, sorted by name.
func (r *Registry) Help() []string {
	names := r.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%-8s %s", n, r.cmds[n].Summary)
	}
	return out
}

// Parse splits a console line into subcommand tokens. Lines not starting with
// "cmd " (case-sensitive) are not commands. Double quotes group a token with
// spaces, so file paths like "desk lamp.glb" survive.
func Parse(line string) (args []string, ok bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return nil, false
	}
	return splitQuoted(rest), true
}

// splitQuoted splits on whitespace outside double quotes and strips the
// quotes. An unterminated quote runs to the end of the line.
func splitQuoted(s string) []string {
	var (
		args   []string
		cur    strings.Builder
		quoted bool
		open   bool // a token is being built (distinguishes "" from nothing)
	)
	flush := func() {
		if open {
			args = append(args, cur.String())
			cur.Reset()
			open = false
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			open = true
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			cur.WriteRune(r)
			open = true
		}
	}
	flush()
	return args
}

// Execute parses args[1:] with the named subcommand's flags and runs it.
func (r *Registry) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand")
	}
	cmd, ok := r.cmds[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	// Flag values persist across Parse calls, so restore defaults for
	// anything a previous invocation set.
	cmd.FlagSet.Visit(func(f *flag.Flag) { _ = f.Value.Set(f.DefValue) })
	if err := cmd.FlagSet.Parse(args[1:]); err != nil {
		return err
	}
	return cmd.Run()
}
