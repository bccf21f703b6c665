package annotate

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable terminal display,
// used by the CLI's -verbose mode.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle implements Handler — prints events as they occur.
func (f *OutputFormatter) Handle(event Event) {
	if out := f.Format(event); out != "" {
		fmt.Fprintln(f.writer, out)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case QueryInvoked:
		return fmt.Sprintf("%s Query: %s", latency, truncateQuery(fmt.Sprint(event.Data["params"])))

	case QueryComplete:
		if errVal, failed := event.Data["error"]; failed && errVal != nil {
			return fmt.Sprintf("%s %s Query failed: %v",
				latency, f.colorize("✗", color.FgRed), errVal)
		}
		return fmt.Sprintf("%s %s Query done, %s",
			latency, f.colorize("===", color.FgGreen),
			f.colorizeCount("keys", intData(event.Data, "keys.count")))

	case PredicateParsed:
		return fmt.Sprintf("%s parsed %s, %s",
			latency,
			f.colorizeCount("predicates", intData(event.Data, "predicate.count")),
			event.Data["join"])

	case ControlsValidated:
		return fmt.Sprintf("%s controls: format=%v limit=%v", latency, event.Data["format"], event.Data["limit"])

	case CursorClassified:
		return fmt.Sprintf("%s target=%v source=%v mode=%v",
			latency, event.Data["target"], event.Data["source"], event.Data["mode"])

	case CursorOpened:
		return fmt.Sprintf("%s %s opened on %v", latency, f.colorize("cursor", color.FgCyan), event.Data["target"])

	case CursorClosed:
		return fmt.Sprintf("%s cursor on %v closed after %s",
			latency, event.Data["target"], f.colorizeCount("advances", intData(event.Data, "advances")))

	case JoinStep:
		return fmt.Sprintf("%s %s step: emit=%v advanced=%v",
			latency, f.colorize("join", color.FgMagenta), event.Data["emit"], event.Data["advanced"])

	case JoinDone:
		return fmt.Sprintf("%s join done, %s",
			latency, f.colorizeCount("keys", intData(event.Data, "keys.count")))

	case MaterializeBegin:
		return fmt.Sprintf("%s materializing %s as %v",
			latency, f.colorizeCount("keys", intData(event.Data, "keys.count")), event.Data["format"])

	case MaterializeComplete:
		return fmt.Sprintf("%s materialize done", latency)

	case ErrorParsing, ErrorStore, ErrorInternal:
		return fmt.Sprintf("%s %s %v", latency, f.colorize("✗", color.FgRed), event.Data["error"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func intData(data map[string]interface{}, key string) int {
	if v, ok := data[key]; ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return 0
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}

	switch {
	case ms < 10:
		return color.GreenString(s)
	case ms < 100:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}
	switch strings.ToLower(label) {
	case "keys":
		return color.CyanString(text)
	case "predicates":
		return color.MagentaString(text)
	case "advances":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// truncateQuery shortens a long parameter dump for display.
func truncateQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	const maxLen = 80
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen-3] + "..."
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return formatter.Handle
}

// isTerminal checks if the file descriptor is a terminal. A simplified
// check, same as the teacher's: a real implementation would use
// golang.org/x/term, but this module has no other use for that
// dependency so we keep the teacher's stdout/stderr heuristic.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
