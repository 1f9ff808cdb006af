package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Origin is how a command name was resolved.
type Origin int

const (
	OriginNone Origin = iota
	OriginPath
	OriginFilesystem
	OriginBuiltin
	OriginBin
	OriginPackage
	OriginAlias
)

func (o Origin) String() string {
	switch o {
	case OriginPath:
		return "path"
	case OriginFilesystem:
		return "filesystem"
	case OriginBuiltin:
		return "builtin"
	case OriginBin:
		return "bin"
	case OriginPackage:
		return "package"
	case OriginAlias:
		return "alias"
	}
	return "none"
}

// Metrics counts what engines run. One Metrics can be shared by every
// session of a server.
type Metrics struct {
	commands *prometheus.CounterVec
	failures *prometheus.CounterVec
	lines    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg if it's
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "startsh",
			Name:      "commands_total",
			Help:      "Commands run, by how their name was resolved.",
		}, []string{"origin"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "startsh",
			Name:      "command_failures_total",
			Help:      "Failed pipelines, by error kind.",
		}, []string{"kind"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "startsh",
			Name:      "lines_total",
			Help:      "Lines submitted at the top level.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commands, m.failures, m.lines)
	}
	return m
}

func (m *Metrics) command(origin Origin) {
	if m != nil {
		m.commands.WithLabelValues(origin.String()).Inc()
	}
}

func (m *Metrics) failure(kind ErrorKind) {
	if m != nil {
		m.failures.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) line() {
	if m != nil {
		m.lines.Inc()
	}
}
