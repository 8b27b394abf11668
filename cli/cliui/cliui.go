// Package cliui styles the human-facing messages fprint writes to the
// terminal.
package cliui

import (
	"flag"
	"os"
	"sync"

	"github.com/coder/pretty"
	"github.com/muesli/termenv"
)

// DefaultStyles compose visual elements of the UI.
var DefaultStyles Styles

type Styles struct {
	Error,
	Hint,
	Keyword,
	Warn pretty.Style
}

var (
	color     termenv.Profile
	colorOnce sync.Once
)

var (
	// ANSI color codes
	red    = Color("1")
	green  = Color("2")
	yellow = Color("3")
	cyan   = Color("6")
)

// Color returns a color for the given string.
func Color(s string) termenv.Color {
	colorOnce.Do(func() {
		color = termenv.NewOutput(os.Stderr).EnvColorProfile()
		if flag.Lookup("test.v") != nil {
			// Use a consistent colorless profile in tests so that results
			// are deterministic.
			color = termenv.Ascii
		}
	})
	return color.Color(s)
}

func isTerm() bool {
	return color != termenv.Ascii
}

// Bold returns a formatter that renders text in bold
// if the terminal supports it.
func Bold(s string) string {
	if !isTerm() {
		return s
	}
	return pretty.Sprint(pretty.Bold(), s)
}

// Keyword formats a keyword for display.
func Keyword(s string) string {
	return pretty.Sprint(DefaultStyles.Keyword, s)
}

func ifTerm(f pretty.Formatter) pretty.Formatter {
	if !isTerm() {
		return pretty.Nop
	}
	return f
}

func init() {
	DefaultStyles = Styles{
		Error: pretty.Style{
			ifTerm(pretty.FgColor(red)),
		},
		Hint: pretty.Style{
			ifTerm(pretty.FgColor(cyan)),
		},
		Keyword: pretty.Style{
			ifTerm(pretty.FgColor(green)),
		},
		Warn: pretty.Style{
			ifTerm(pretty.FgColor(yellow)),
		},
	}
}
