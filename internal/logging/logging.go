// Package logging configures the zerolog logger used by the command line
// tool. Records go to stderr in a human readable layout with the oops stack
// trace of any logged error.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/svanichkin/pngview/internal/oops"
)

func init() {
	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler
}

const (
	ansiReset    = "\x1b[0m"
	ansiBold     = "\x1b[1m"
	ansiRed      = "\x1b[31m"
	ansiBlue     = "\x1b[34m"
	ansiGray     = "\x1b[90m"
	ansiBgRed    = "\x1b[41m"
	ansiBgYellow = "\x1b[43m"
	ansiBgBlue   = "\x1b[44m"
)

var colorFromLevel = map[string]string{
	"trace": ansiGray,
	"debug": ansiGray,
	"info":  ansiBgBlue,
	"warn":  ansiBgYellow,
	"error": ansiBgRed,
	"fatal": ansiBgRed,
	"panic": ansiBgRed,
}

// New returns a logger at the given level writing pretty records to w.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(NewPrettyWriter(w)).Level(level).With().Timestamp().Logger()
}

// ParseLevel accepts the zerolog level names: trace, debug, info, warn,
// error, fatal, panic, disabled.
func ParseLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, oops.New(err, "invalid log level %q", s)
	}
	return level, nil
}

type PrettyWriter struct {
	out                 io.Writer
	color               bool
	wd                  string
	wasLastLogMultiline bool
}

type prettyEntry struct {
	Timestamp  string
	Level      string
	Message    string
	Error      string
	StackTrace []interface{}

	OtherFields []prettyField
}

type prettyField struct {
	Name  string
	Value interface{}
}

// NewPrettyWriter formats zerolog JSON records for people. Colors are used
// only when out is a terminal.
func NewPrettyWriter(out io.Writer) *PrettyWriter {
	wd, _ := os.Getwd()
	w := &PrettyWriter{out: out, wd: wd}
	if f, ok := out.(*os.File); ok {
		w.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return w
}

func (w *PrettyWriter) paint(codes ...string) string {
	if !w.color {
		return ""
	}
	return strings.Join(codes, "")
}

func (w *PrettyWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return w.out.Write(p)
	}

	var pretty prettyEntry
	for name, val := range fields {
		switch name {
		case zerolog.TimestampFieldName:
			pretty.Timestamp, _ = val.(string)
		case zerolog.LevelFieldName:
			pretty.Level, _ = val.(string)
		case zerolog.MessageFieldName:
			pretty.Message, _ = val.(string)
		case zerolog.ErrorFieldName:
			pretty.Error, _ = val.(string)
		case zerolog.ErrorStackFieldName:
			pretty.StackTrace, _ = val.([]interface{})
		default:
			pretty.OtherFields = append(pretty.OtherFields, prettyField{Name: name, Value: val})
		}
	}
	sort.Slice(pretty.OtherFields, func(i, j int) bool {
		return pretty.OtherFields[i].Name < pretty.OtherFields[j].Name
	})

	isMultiline := pretty.Error != "" || pretty.StackTrace != nil || pretty.OtherFields != nil

	var b strings.Builder
	if isMultiline || w.wasLastLogMultiline {
		b.WriteString("---------------------------------------\n")
	}
	if pretty.Timestamp != "" {
		b.WriteString(pretty.Timestamp)
		b.WriteString(" ")
	}
	if pretty.Level != "" {
		b.WriteString(w.paint(colorFromLevel[pretty.Level], ansiBold))
		b.WriteString(strings.ToUpper(pretty.Level))
		b.WriteString(w.paint(ansiReset))
		b.WriteString(": ")
	}
	b.WriteString(pretty.Message)
	b.WriteString("\n")
	if pretty.Error != "" {
		b.WriteString("  " + w.paint(ansiBold, ansiRed) + "ERROR:" + w.paint(ansiReset) + " ")
		b.WriteString(pretty.Error)
		b.WriteString("\n")
	}
	if len(pretty.OtherFields) > 0 {
		b.WriteString("  " + w.paint(ansiBold, ansiBlue) + "Fields:" + w.paint(ansiReset) + "\n")
		for _, field := range pretty.OtherFields {
			valuePretty, _ := json.MarshalIndent(field.Value, "    ", "  ")
			b.WriteString("    ")
			b.WriteString(field.Name)
			b.WriteString(": ")
			b.Write(valuePretty)
			b.WriteString("\n")
		}
	}
	if pretty.StackTrace != nil {
		b.WriteString("  " + w.paint(ansiBold, ansiBlue) + "Stack trace:" + w.paint(ansiReset) + "\n")
		for _, frame := range pretty.StackTrace {
			frameMap, ok := frame.(map[string]interface{})
			if !ok {
				continue
			}
			file, _ := frameMap["file"].(string)
			if w.wd != "" {
				file = strings.Replace(file, w.wd, ".", 1)
			}
			function, _ := frameMap["function"].(string)
			line, _ := frameMap["line"].(float64)

			b.WriteString("    ")
			b.WriteString(function)
			b.WriteString(" (")
			b.WriteString(file)
			b.WriteString(":")
			b.WriteString(strconv.Itoa(int(line)))
			b.WriteString(")\n")
		}
	}

	w.wasLastLogMultiline = isMultiline

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
