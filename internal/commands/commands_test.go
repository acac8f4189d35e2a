package commands

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	args, ok := Parse("cmd load cube.stl")
	require.True(t, ok)
	assert.Equal(t, []string{"load", "cube.stl"}, args)

	args, ok = Parse("cmd ")
	require.True(t, ok)
	assert.Nil(t, args)

	_, ok = Parse("hello there")
	assert.False(t, ok)

	_, ok = Parse("CMD load")
	assert.False(t, ok, "prefix is case-sensitive")
}

func TestParseQuotedPaths(t *testing.T) {
	args, ok := Parse(`cmd load "desk lamp.glb"`)
	require.True(t, ok)
	assert.Equal(t, []string{"load", "desk lamp.glb"}, args)

	args, ok = Parse(`cmd save "out dir/scene".zip extra`)
	require.True(t, ok)
	assert.Equal(t, []string{"save", "out dir/scene.zip", "extra"}, args)

	args, ok = Parse(`cmd select "unterminated name`)
	require.True(t, ok)
	assert.Equal(t, []string{"select", "unterminated name"}, args)

	args, ok = Parse(`cmd select ""`)
	require.True(t, ok)
	assert.Equal(t, []string{"select", ""}, args, "empty quotes make an empty token")
}

func TestExecuteDispatch(t *testing.T) {
	r := NewRegistry()
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var got []string
	r.Register("move", "set position", fs, func() error {
		got = fs.Args()
		return nil
	})

	require.NoError(t, r.Execute([]string{"move", "1", "2", "3"}))
	assert.Equal(t, []string{"1", "2", "3"}, got)

	require.Error(t, r.Execute([]string{"fly"}))
	require.Error(t, r.Execute(nil))
}

func TestExecuteResetsFlagValues(t *testing.T) {
	r := NewRegistry()
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	add := fs.Bool("add", false, "")
	var seen []bool
	r.Register("select", "pick entities", fs, func() error {
		seen = append(seen, *add)
		return nil
	})

	require.NoError(t, r.Execute([]string{"select", "-add", "1"}))
	require.NoError(t, r.Execute([]string{"select", "2"}))
	assert.Equal(t, []bool{true, false}, seen, "flag values must not leak between invocations")
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"undo", "load", "redo"} {
		r.Register(n, "", flag.NewFlagSet(n, flag.ContinueOnError), func() error { return nil })
	}
	assert.Equal(t, []string{"load", "redo", "undo"}, r.Names())
}

func TestHelpListsSummaries(t *testing.T) {
	r := NewRegistry()
	r.Register("load", "load a model file", flag.NewFlagSet("load", flag.ContinueOnError), func() error { return nil })
	r.Register("undo", "undo the last edit", flag.NewFlagSet("undo", flag.ContinueOnError), func() error { return nil })

	lines := r.Help()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "load")
	assert.Contains(t, lines[0], "load a model file")
	assert.Contains(t, lines[1], "undo the last edit")
}
