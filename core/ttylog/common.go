package ttylog

import (
	"errors"
	"io"
	"sync"
	"time"
)

// EventKind says what an Entry records.
type EventKind int

const (
	EventOutput EventKind = iota
	EventInput
	EventResize
	EventClose
)

// Entry is one recorded terminal event.
type Entry struct {
	TimestampMicros int64
	Kind            EventKind
	// Data holds the bytes for input and output events.
	Data []byte
	// Rows and Cols hold the new size for resize events.
	Rows, Cols int
}

// LogSink receives log events.
type LogSink func(e *Entry) error

// LogSource adapts log readers.
type LogSource interface {
	// Next fetches the next available log entry. It returns io.EOF if the source
	// has no more log entries.
	Next() (*Entry, error)
}

// NewRealTimePlayback plays back the results in real-time.
// If maxSleep > 0, it's used as the maximum duration to pause.
func NewRealTimePlayback(maxSleep time.Duration, next LogSink) LogSink {
	var once sync.Once
	var prevTimeMicros int64

	return func(logEntry *Entry) error {
		once.Do(func() {
			prevTimeMicros = logEntry.TimestampMicros
		})

		delta := logEntry.TimestampMicros - prevTimeMicros
		prevTimeMicros = logEntry.TimestampMicros

		if maxSleep > 0 {
			sleepDuration := time.Duration(delta) * time.Microsecond
			if sleepDuration > maxSleep {
				sleepDuration = maxSleep
			}
			time.Sleep(sleepDuration)
		}

		return next(logEntry)
	}
}

// NewClientOutput writes what the terminal displayed to the given writer.
func NewClientOutput(w io.Writer) LogSink {
	return func(logEntry *Entry) error {
		if logEntry.Kind != EventOutput {
			return nil
		}
		_, err := w.Write(logEntry.Data)
		return err
	}
}

// Replay reads a stream of events to a callback.
func Replay(recording LogSource, callback LogSink) (err error) {
	for {
		logEntry, err := recording.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		if err := callback(logEntry); err != nil {
			return err
		}
	}
}

// Recorder is an io.Writer that forwards everything written to it and logs
// it as output. Input and resizes are logged through their own methods.
type Recorder struct {
	mutex  sync.Mutex
	w      io.Writer
	output LogSink
	now    func() time.Time
	closed bool
}

var _ io.WriteCloser = (*Recorder)(nil)

// NewRecorder creates a recorder that writes to w and forwards all events to
// output. A nil w only records.
func NewRecorder(w io.Writer, output LogSink) *Recorder {
	if w == nil {
		w = io.Discard
	}
	return &Recorder{w: w, output: output, now: time.Now}
}

func (r *Recorder) Write(p []byte) (int, error) {
	eventTime := r.now()
	amount, err := r.w.Write(p)
	if amount > 0 {
		data := append([]byte(nil), p[:amount]...)
		if e2 := r.record(&Entry{TimestampMicros: eventTime.UnixMicro(), Kind: EventOutput, Data: data}); e2 != nil && err == nil {
			err = e2
		}
	}
	return amount, err
}

// RecordInput logs keystrokes the user typed.
func (r *Recorder) RecordInput(data []byte) error {
	return r.record(&Entry{
		TimestampMicros: r.now().UnixMicro(),
		Kind:            EventInput,
		Data:            append([]byte(nil), data...),
	})
}

// RecordResize logs a change in terminal size.
func (r *Recorder) RecordResize(rows, cols int) error {
	return r.record(&Entry{TimestampMicros: r.now().UnixMicro(), Kind: EventResize, Rows: rows, Cols: cols})
}

// Close logs the end of the session. It doesn't close the wrapped writer.
func (r *Recorder) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.output(&Entry{TimestampMicros: r.now().UnixMicro(), Kind: EventClose})
}

// record forwards e unless the recorder is closed.
func (r *Recorder) record(e *Entry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return nil
	}
	return r.output(e)
}
