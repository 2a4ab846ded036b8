package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const (
	// LogFileName is the name of the log file created by Init.
	LogFileName = "recorder.log"
	// MaxLogSize is the size above which Init moves the previous log aside.
	MaxLogSize = 10 << 20

	flags = log.Ldate | log.Ltime | log.Lshortfile
)

var (
	InfoLogger    = log.New(os.Stdout, "INFO: ", flags)
	WarningLogger = log.New(os.Stdout, "WARN: ", flags)
	ErrorLogger   = log.New(os.Stderr, "ERROR: ", flags)
	Verbose       bool

	logFile *os.File
)

// Trace logs only in verbose mode. Capture and record goroutines use it for per-frame detail.
func Trace(format string, v ...interface{}) {
	if Verbose {
		InfoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func SetVerbose(verbose bool) {
	Verbose = verbose
}

// Init appends to dir/recorder.log, echoing to the console when one is attached.
// A log grown past MaxLogSize is kept once as recorder.log.1.
func Init(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	path := filepath.Join(dir, LogFileName)
	if err := rotate(path, MaxLogSize); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	if attached(os.Stdout) || attached(os.Stderr) {
		SetOutput(io.MultiWriter(os.Stdout, f), io.MultiWriter(os.Stderr, f))
	} else {
		SetOutput(f, f)
	}
	return nil
}

// SetOutput points the info and warning loggers at out and the error logger at errOut.
func SetOutput(out, errOut io.Writer) {
	InfoLogger = log.New(out, "INFO: ", flags)
	WarningLogger = log.New(out, "WARN: ", flags)
	ErrorLogger = log.New(errOut, "ERROR: ", flags)
}

func rotate(path string, limit int64) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() <= limit {
		return nil
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}

// attached is false when the process runs without a terminal, as a Windows GUI binary does.
func attached(f *os.File) bool {
	if f == nil {
		return false
	}
	stat, err := f.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

// Close closes the log file. The loggers keep their writers, so later output to the file is lost.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
