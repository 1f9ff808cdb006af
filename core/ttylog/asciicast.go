package ttylog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AsciicastFileExt holds the suggested file extension for asciicast files.
const AsciicastFileExt = "cast"

// AsciicastHeader is the first line of an asciicast v2 file.
type AsciicastHeader struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

func writeJSONLine(w io.Writer, structure interface{}) error {
	line, err := json.Marshal(structure)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", string(line))
	return err
}

// NewAsciicastLogSink creates a LogSink compatible with the asciicast v2
// format. The header is written with the first event; its timestamp comes
// from that event.
//
// See: https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
func NewAsciicastLogSink(w io.Writer, rows, cols int) LogSink {
	var (
		firstLogTimeMicros int64
		once               sync.Once
	)

	return func(entry *Entry) error {
		var headerErr error
		once.Do(func() {
			firstLogTimeMicros = entry.TimestampMicros
			headerErr = writeJSONLine(w, &AsciicastHeader{
				Version:   2,
				Width:     cols,
				Height:    rows,
				Timestamp: time.UnixMicro(firstLogTimeMicros).Unix(),
				Title:     "startsh session",
				Env: map[string]string{
					"TERM":  "xterm-256color",
					"SHELL": "/bin/startsh",
				},
			})
		})
		if headerErr != nil {
			return headerErr
		}

		deltaSecond := microsecondsToSeconds(entry.TimestampMicros - firstLogTimeMicros)

		switch entry.Kind {
		case EventOutput:
			return writeJSONLine(w, &asciicastLogLine{deltaSecond, "o", string(entry.Data)})
		case EventInput:
			return writeJSONLine(w, &asciicastLogLine{deltaSecond, "i", string(entry.Data)})
		case EventResize:
			size := fmt.Sprintf("%dx%d", entry.Cols, entry.Rows)
			return writeJSONLine(w, &asciicastLogLine{deltaSecond, "r", size})
		case EventClose:
			// No-op.
			return nil
		default:
			return fmt.Errorf("unknown event: %d", entry.Kind)
		}
	}
}

type AsciicastLogSource struct {
	r             *bufio.Reader
	consumeHeader sync.Once
	header        AsciicastHeader
	headerErr     error
}

var _ LogSource = (*AsciicastLogSource)(nil)

// NewAsciicastLogSource reads log events from an Asciicast formatted file.
func NewAsciicastLogSource(r io.Reader) *AsciicastLogSource {
	return &AsciicastLogSource{r: bufio.NewReader(r)}
}

func (log *AsciicastLogSource) readHeader() {
	log.consumeHeader.Do(func() {
		line, err := log.r.ReadBytes('\n')
		switch {
		case errors.Is(err, io.EOF) && len(line) == 0:
			log.headerErr = fmt.Errorf("missing header: %w", io.ErrUnexpectedEOF)
			return
		case err != nil && !errors.Is(err, io.EOF):
			log.headerErr = err
			return
		}
		if err := json.Unmarshal(line, &log.header); err != nil {
			log.headerErr = fmt.Errorf("malformed header: %w", err)
			return
		}
		if log.header.Version != 2 {
			log.headerErr = fmt.Errorf("unsupported asciicast version %d", log.header.Version)
		}
	})
}

// Header returns the file's header.
func (log *AsciicastLogSource) Header() (AsciicastHeader, error) {
	log.readHeader()
	return log.header, log.headerErr
}

// Next gets the next log entry, it returns io.EOF if there are no more.
func (log *AsciicastLogSource) Next() (*Entry, error) {
	log.readHeader()
	if log.headerErr != nil {
		return nil, log.headerErr
	}

	for {
		line, err := log.r.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			return nil, err
		}

		if len(strings.TrimSpace(string(line))) == 0 {
			// Skip blank lines
			continue
		}

		var asciicastLine asciicastLogLine
		if err := json.Unmarshal(line, &asciicastLine); err != nil {
			return nil, err
		}

		entry := &Entry{TimestampMicros: secondsToMicroseconds(asciicastLine.TimeSeconds)}
		switch asciicastLine.EventType {
		case "o":
			entry.Kind = EventOutput
			entry.Data = []byte(asciicastLine.EventData)
		case "i":
			entry.Kind = EventInput
			entry.Data = []byte(asciicastLine.EventData)
		case "r":
			entry.Kind = EventResize
			if entry.Cols, entry.Rows, err = parseSize(asciicastLine.EventData); err != nil {
				return nil, err
			}
		default:
			// skip unknown events
			continue
		}
		return entry, nil
	}
}

func parseSize(size string) (cols, rows int, err error) {
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return 0, 0, fmt.Errorf("malformed size %q", size)
	}
	if cols, err = strconv.Atoi(w); err != nil {
		return 0, 0, fmt.Errorf("malformed size %q: %w", size, err)
	}
	if rows, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("malformed size %q: %w", size, err)
	}
	return cols, rows, nil
}

type asciicastLogLine struct {
	TimeSeconds float64
	EventType   string
	EventData   string
}

func (log *asciicastLogLine) UnmarshalJSON(data []byte) error {
	var v []interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if count := len(v); count != 3 {
		return fmt.Errorf("malformed line, expected 3 entries got %d", count)
	}

	var timeOk, typeOk, dataOk bool
	log.TimeSeconds, timeOk = v[0].(float64)
	log.EventType, typeOk = v[1].(string)
	log.EventData, dataOk = v[2].(string)

	if !timeOk || !typeOk || !dataOk {
		return fmt.Errorf("malformed data in line: %q", v)
	}

	return nil
}

func (log *asciicastLogLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{log.TimeSeconds, log.EventType, log.EventData})
}

func microsecondsToSeconds(microseconds int64) (seconds float64) {
	return (float64(microseconds) * float64(time.Microsecond)) / float64(time.Second)
}

func secondsToMicroseconds(seconds float64) (microseconds int64) {
	return int64(float64(seconds)*float64(time.Second)) / int64(time.Microsecond)
}
