package cprint

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	// mu is used to synchronize writes from multiple goroutines.
	mu sync.Mutex
	// DisableOutput disables all output.
	DisableOutput bool
)

// printer writes colored lines to the writer returned by out, resolved on
// every call so that color.Output and os.Stderr can be swapped.
type printer struct {
	color *color.Color
	out   func() io.Writer
}

func stdout() io.Writer { return color.Output }

func stderr() io.Writer { return os.Stderr }

func (p printer) printf(format string, a ...interface{}) {
	if DisableOutput {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = p.color.Fprintf(p.out(), format, a...)
}

func (p printer) println(a ...interface{}) {
	if DisableOutput {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = p.color.Fprintln(p.out(), a...)
}

var (
	success = printer{color: color.New(color.FgGreen), out: stdout}
	warn    = printer{color: color.New(color.FgYellow), out: stderr}
	failure = printer{color: color.New(color.FgRed), out: stderr}
)

// SuccessPrintf is fmt.Printf with green as foreground color.
func SuccessPrintf(format string, a ...interface{}) {
	success.printf(format, a...)
}

// SuccessPrintln is fmt.Println with green as foreground color.
func SuccessPrintln(a ...interface{}) {
	success.println(a...)
}

// WarnPrintlnStdErr prints a yellow line to stderr.
func WarnPrintlnStdErr(a ...interface{}) {
	warn.println(a...)
}

// ErrorPrintlnStdErr prints a red line to stderr.
func ErrorPrintlnStdErr(a ...interface{}) {
	failure.println(a...)
}
