package commands

import (
	"context"
	"fmt"

	"github.com/startterm/startsh/core/engine"
)

// ProfilePath is sourced after login and by su.
const ProfilePath = "/etc/profile"

func whoamiCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "whoami",
		Kind:  engine.KindBuiltin,
		Use:   "whoami",
		Short: "Print the current user.",
		// Never bail, even if args are bad.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine(inv.Session.Identity().User)
			return nil, nil
		},
	}
}

func suCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "su",
		Kind:  engine.KindBuiltin,
		Use:   "su [USER]",
		Short: "Log in as USER, root by default.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			user := inv.Arg(0, "root")
			if !validVariable(user) {
				return nil, fmt.Errorf("user %s does not exist", user)
			}

			session := inv.Session
			session.SwitchUser(user, user)
			if err := session.VFS.Chdir(session.VFS.Home()); err != nil {
				return nil, engine.PathError(session.VFS.Home(), err)
			}
			session.Env.Set(engine.EnvPWD, session.VFS.Pwd())
			return nil, SourceProfile(ctx, inv)
		},
	}
}

// SourceProfile runs the profile script if there is one.
func SourceProfile(ctx context.Context, inv *engine.Invocation) error {
	content, err := inv.VFS().ReadFile(ProfilePath)
	if err != nil {
		return nil
	}
	return inv.Engine.RunScript(ctx, ProfilePath, content, &engine.Invocation{
		Name:    ProfilePath,
		Out:     inv.Out,
		Session: inv.Session,
		Engine:  inv.Engine,
	})
}
