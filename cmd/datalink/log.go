package main

import (
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
)

var startTime = time.Now()

type logHandler struct {
	io.Writer
}

func (h *logHandler) HandleLog(e *log.Entry) (err error) {
	var s string
	if e.Level == log.DebugLevel {
		s = e.Message
	} else if e.Level == log.ErrorLevel {
		s = fmt.Sprintf("[%14.6f] <!err> %s", time.Since(startTime).Seconds(), e.Message)
	} else {
		s = fmt.Sprintf("[%14.6f] <%s> %s", time.Since(startTime).Seconds(), e.Level, e.Message)
	}
	if len(e.Fields) > 0 {
		s += fmt.Sprintf(": %+v", e.Fields)
	}
	s += "\n"
	_, err = h.Writer.Write([]byte(s))
	return
}

// newLogger maps the -v level (1 to 5, 1 is lowest) to an apex logger.
func newLogger(w io.Writer, verbosity uint16) *log.Logger {
	level := log.InfoLevel
	switch verbosity {
	case 1:
		level = log.FatalLevel
	case 2:
		level = log.ErrorLevel
	case 3:
		level = log.WarnLevel
	case 4:
		level = log.InfoLevel
	default:
		level = log.DebugLevel
	}
	return &log.Logger{Level: level, Handler: &logHandler{Writer: w}}
}
