package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/startterm/startsh/core/engine"
)

func formatUptime(now time.Time, uptime time.Duration) string {
	day := 24 * time.Hour
	uptimeDays := uptime / day
	uptime -= uptimeDays * day
	uptimeHours := uptime / time.Hour
	uptime -= uptimeHours * time.Hour
	uptimeMins := uptime / time.Minute

	return fmt.Sprintf("%s up %d days,  %02d:%02d,  1 user",
		now.Format("15:04:05"),
		uptimeDays,
		uptimeHours,
		uptimeMins,
	)
}

func uptimeCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "uptime",
		Kind:  engine.KindBuiltin,
		Use:   "uptime",
		Short: "Tell how long the session has been running.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine(formatUptime(time.Now(), inv.Session.Uptime()))
			return nil, nil
		},
	}
}
