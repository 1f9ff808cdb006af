package ttylog

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeConversions(t *testing.T) {
	cases := map[string]struct {
		microseconds int64
		seconds      float64
	}{
		"precision": {
			microseconds: 1,
			seconds:      1e-6,
		},
		"negative": {
			microseconds: -631119539e6,
			seconds:      -631119539,
		},
		"positive": {
			microseconds: 631119539e6,
			seconds:      631119539,
		},
		"bigprecise": {
			microseconds: 123456789987654,
			seconds:      123456789.987654,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s2m := secondsToMicroseconds(tc.seconds)
			m2s := microsecondsToSeconds(tc.microseconds)

			// Only allow delta to be to the NS
			assert.InDelta(t, m2s, tc.seconds, float64(time.Nanosecond)/float64(time.Second))
			assert.Equal(t, s2m, tc.microseconds)
		})
	}
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		current := now
		now = now.Add(step)
		return current
	}
}

func TestAsciicastRoundTrip(t *testing.T) {
	var cast, screen bytes.Buffer
	rec := NewRecorder(&screen, NewAsciicastLogSink(&cast, 24, 80))
	rec.now = fixedClock(time.Unix(1700000000, 0), 500*time.Millisecond)

	_, err := io.WriteString(rec, "guest@startsh:~$ ")
	require.NoError(t, err)
	require.NoError(t, rec.RecordInput([]byte("l")))
	require.NoError(t, rec.RecordResize(10, 40))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close(), "closing twice is harmless")

	_, err = io.WriteString(rec, "after close")
	require.NoError(t, err)

	assert.Equal(t, "guest@startsh:~$ after close", screen.String())

	lines := strings.Split(strings.TrimSpace(cast.String()), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{
		"version": 2, "width": 80, "height": 24, "timestamp": 1700000000,
		"title": "startsh session",
		"env": {"TERM": "xterm-256color", "SHELL": "/bin/startsh"}
	}`, lines[0])
	assert.JSONEq(t, `[0, "o", "guest@startsh:~$ "]`, lines[1])
	assert.JSONEq(t, `[0.5, "i", "l"]`, lines[2])
	assert.JSONEq(t, `[1, "r", "40x10"]`, lines[3])

	source := NewAsciicastLogSource(strings.NewReader(cast.String()))
	header, err := source.Header()
	require.NoError(t, err)
	assert.Equal(t, 80, header.Width)

	var entries []*Entry
	require.NoError(t, Replay(source, func(e *Entry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 3)
	assert.Equal(t, &Entry{TimestampMicros: 0, Kind: EventOutput, Data: []byte("guest@startsh:~$ ")}, entries[0])
	assert.Equal(t, &Entry{TimestampMicros: 500000, Kind: EventInput, Data: []byte("l")}, entries[1])
	assert.Equal(t, &Entry{TimestampMicros: 1000000, Kind: EventResize, Rows: 10, Cols: 40}, entries[2])
}

func TestAsciicastLogSource(t *testing.T) {
	cases := map[string]struct {
		input   string
		want    string
		wantErr bool
	}{
		"skips unknown and blank": {
			input: "{\"version\": 2, \"width\": 80, \"height\": 24}\n[0.1, \"m\", \"marker\"]\n\n[0.2, \"o\", \"hi\"]",
			want:  "hi",
		},
		"bad version": {
			input:   "{\"version\": 1}\n[0.2, \"o\", \"hi\"]\n",
			wantErr: true,
		},
		"malformed line": {
			input:   "{\"version\": 2}\n[0.2, \"o\"]\n",
			wantErr: true,
		},
		"malformed size": {
			input:   "{\"version\": 2}\n[0.2, \"r\", \"big\"]\n",
			wantErr: true,
		},
		"empty": {
			input:   "",
			wantErr: true,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			var out bytes.Buffer
			err := Replay(NewAsciicastLogSource(strings.NewReader(tc.input)), NewClientOutput(&out))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestNewRealTimePlayback(t *testing.T) {
	var seen []int64
	sink := NewRealTimePlayback(time.Millisecond, func(e *Entry) error {
		seen = append(seen, e.TimestampMicros)
		return nil
	})

	start := time.Now()
	for _, ts := range []int64{0, 10e6, 20e6} {
		require.NoError(t, sink(&Entry{TimestampMicros: ts}))
	}

	assert.Equal(t, []int64{0, 10e6, 20e6}, seen)
	assert.Less(t, time.Since(start), time.Second, "sleeps are capped")
}
