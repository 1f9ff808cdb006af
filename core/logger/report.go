package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Entry is one line of a JSON log with the fields the report reads.
type Entry struct {
	Level   string `json:"level"`
	Time    string `json:"ts"`
	Message string `json:"msg"`

	Session string      `json:"session,omitempty"`
	User    string      `json:"user,omitempty"`
	Remote  string      `json:"remote_addr,omitempty"`
	Result  string      `json:"result,omitempty"`
	Command string      `json:"command,omitempty"`
	Origin  string      `json:"origin,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Error   string      `json:"error,omitempty"`
	Panic   interface{} `json:"panic,omitempty"`
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			return err
		}
		handler(&entry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Levels         StrCounter `json:"levels"`
	InvalidEntries StrCounter `json:"unrecognized_messages,omitempty"`

	Login          LoginReport          `json:"login_report"`
	Session        SessionReport        `json:"session_report"`
	RunCommand     RunCommandReport     `json:"run_command_report"`
	UnknownCommand UnknownCommandReport `json:"unknown_command_report"`
	Failure        FailureReport        `json:"failure_report"`
	Panic          PanicReport          `json:"panic_report"`
}

// Update folds a log entry into the report.
func (r *Report) Update(le *Entry) {
	r.LogEntries++
	r.Levels.Increment(le.Level)

	switch le.Message {
	case MsgLogin:
		r.Login.update(le)
	case MsgSessionStarted, MsgSessionEnded:
		r.Session.update(le)
	case MsgRunCommand:
		r.RunCommand.update(le)
	case MsgUnknownCommand:
		r.UnknownCommand.update(le)
	case MsgCommandFailed, MsgMalformedGroup, MsgScriptFailed:
		r.Failure.update(le)
	case MsgCommandPanicked:
		r.Panic.update(le)
	default:
		r.InvalidEntries.Increment(le.Message)
	}
}

type LoginReport struct {
	Usernames StrCounter `json:"usernames"`
	Results   StrCounter `json:"results"`
}

func (r *LoginReport) update(le *Entry) {
	r.Usernames.Increment(le.User)
	r.Results.Increment(le.Result)
}

type SessionReport struct {
	Started int        `json:"started"`
	Ended   int        `json:"ended"`
	Users   StrCounter `json:"users"`
}

func (r *SessionReport) update(le *Entry) {
	if le.Message == MsgSessionStarted {
		r.Started++
		r.Users.Increment(le.User)
		return
	}
	r.Ended++
}

type RunCommandReport struct {
	// How command names were resolved.
	Origins StrCounter `json:"origins"`
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
}

func (r *RunCommandReport) update(le *Entry) {
	r.Origins.Increment(le.Origin)
	r.CommandNames.Increment(le.Command)
}

type UnknownCommandReport struct {
	CommandNames StrCounter `json:"command_names"`
}

func (r *UnknownCommandReport) update(le *Entry) {
	r.CommandNames.Increment(le.Command)
}

type FailureReport struct {
	Kinds  StrCounter   `json:"kinds"`
	Errors *PathCounter `json:"errors"`
}

func (r *FailureReport) update(le *Entry) {
	if r.Errors == nil {
		r.Errors = NewPathCounter("command", "error")
	}
	kind := le.Kind
	if kind == "" {
		kind = le.Message
	}
	r.Kinds.Increment(kind)
	r.Errors.Increment(le.Command, le.Error)
}

type PanicReport struct {
	Contexts []string `json:"contexts"`
}

func (r *PanicReport) update(le *Entry) {
	r.Contexts = append(r.Contexts, fmt.Sprintf("%s: %v", le.Command, le.Panic))
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements custom JSON marshaler. The most frequent tuples come
// first.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
