package logging

import (
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// Options controls how the process logger is built.
type Options struct {
	Debug bool
	// File, when set, receives a copy of every line (appended).
	File string
	// Output defaults to stdout.
	Output io.Writer
}

// New builds the single logger shared by every component of a run. The
// returned close function releases the log file, if any.
func New(opts Options) (*logrus.Logger, func() error, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	closeFn := func() error { return nil }
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening log file %s", opts.File)
		}
		out = io.MultiWriter(out, f)
		closeFn = f.Close
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   opts.File != "",
	})
	log.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log, closeFn, nil
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// LineSink receives formatted log lines (a job's output buffer).
type LineSink interface {
	AppendLog(line string)
}

// JobHook mirrors every entry into a LineSink so it can be streamed to
// HTTP clients while the run is in progress.
type JobHook struct {
	Sink      LineSink
	Formatter logrus.Formatter
}

// NewJobHook uses a plain text formatter without colors.
func NewJobHook(sink LineSink) *JobHook {
	return &JobHook{
		Sink:      sink,
		Formatter: &logrus.TextFormatter{DisableColors: true, DisableTimestamp: true},
	}
}

func (h *JobHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *JobHook) Fire(e *logrus.Entry) error {
	b, err := h.Formatter.Format(e)
	if err != nil {
		return err
	}
	line := string(b)
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	h.Sink.AppendLog(line)
	return nil
}
