// Package log provides structured, leveled logging in the style used
// throughout the gtos codebase: alternating key/value pairs after a
// message, colorized when writing to a real terminal.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level identifies the severity of a log record.
type Level int

const (
	LevelCrit Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelCrit:
		return "CRIT"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "????"
	}
}

var levelColor = map[Level]*color.Color{
	LevelCrit:  color.New(color.FgMagenta, color.Bold),
	LevelError: color.New(color.FgRed, color.Bold),
	LevelWarn:  color.New(color.FgYellow),
	LevelInfo:  color.New(color.FgGreen),
	LevelDebug: color.New(color.FgCyan),
}

// Logger writes leveled, key-valued records to an output stream.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	level  Level
	ctx    []interface{}
	nowFun func() time.Time
}

var root = New(os.Stderr)

// Root returns the package-wide default logger.
func Root() *Logger { return root }

// New creates a Logger writing to w, auto-detecting terminal color support.
func New(w io.Writer) *Logger {
	useColor := false
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = colorable.NewColorable(f)
		useColor = true
	}
	return &Logger{out: out, color: useColor, level: LevelInfo, nowFun: time.Now}
}

// SetLevel changes the minimum level that is emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

// ParseLevel maps a config string ("info", "debug", ...) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crit", "critical":
		return LevelCrit, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("log: unknown level %q", s)
	}
}

// New returns a child logger that always includes the given context pairs.
func (l *Logger) New(ctx ...interface{}) *Logger {
	child := &Logger{out: l.out, color: l.color, level: l.level, nowFun: l.nowFun}
	child.ctx = append(append([]interface{}{}, l.ctx...), ctx...)
	return child
}

func (l *Logger) log(lvl Level, msg string, ctx []interface{}) {
	l.mu.Lock()
	curLevel := l.level
	l.mu.Unlock()
	if lvl > curLevel {
		return
	}
	var b strings.Builder
	b.WriteString(l.nowFun().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	levelStr := fmt.Sprintf("[%-5s]", lvl.String())
	if l.color {
		levelStr = levelColor[lvl].Sprint(levelStr)
	}
	b.WriteString(levelStr)
	b.WriteByte(' ')
	b.WriteString(msg)

	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if len(all)%2 == 1 {
		fmt.Fprintf(&b, " %v=MISSING", all[len(all)-1])
	}
	if lvl <= LevelError {
		if call := callerFrame(3); call != "" {
			fmt.Fprintf(&b, " caller=%s", call)
		}
	}
	b.WriteByte('\n')

	l.mu.Lock()
	io.WriteString(l.out, b.String())
	l.mu.Unlock()
}

func callerFrame(skip int) string {
	trace := stack.Trace().TrimRuntime()
	if len(trace) <= skip {
		return ""
	}
	return fmt.Sprintf("%+v", trace[skip])
}

func (l *Logger) Crit(msg string, ctx ...interface{}) {
	l.log(LevelCrit, msg, ctx)
	os.Exit(1)
}
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LevelError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LevelWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LevelInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LevelDebug, msg, ctx) }

func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }

// SetLevel sets the level of the root logger.
func SetLevel(lvl Level) { root.SetLevel(lvl) }
