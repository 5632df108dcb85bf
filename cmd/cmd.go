// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// online wraps an action that talks to the API.
func (r *Runner) online(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := r.connect(ctx, cmd); err != nil {
			return err
		}
		return action(ctx, cmd)
	}
}

func dateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "date",
		Aliases: []string{"d"},
		Usage:   "Date as YYYY-MM-DD, today, tomorrow or yesterday",
		Value:   "today",
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown or json",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}
}

func taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "title",
			Aliases: []string{"t"},
			Usage:   "Task title",
		},
		&cli.StringFlag{
			Name:  "notes",
			Usage: "Task notes",
		},
		&cli.StringFlag{
			Name:  "completed",
			Usage: "Completion date (defaults to today for new tasks)",
		},
		&cli.StringSliceFlag{
			Name:    "revision",
			Aliases: []string{"r"},
			Usage:   "Revision date; repeat for each revision (defaults to +3 and +7 days)",
		},
		&cli.IntFlag{
			Name:  "add",
			Usage: "Append this many revisions, one week apart",
		},
		&cli.IntFlag{
			Name:  "remove",
			Usage: "Remove the revision at this 1-based position",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the local database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Action: r.SetupDatabase,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
			},
		},
		Action: r.Setup,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, sign up and manage the session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with email and password",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:  "otp",
						Usage: "One-time code, when two-factor authentication is enabled",
					},
				},
				Action: r.online(r.AuthLogin),
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password (prompted when omitted)",
					},
				},
				Action: r.online(r.AuthSignup),
			},
			{
				Name:   "logout",
				Usage:  "End the session",
				Action: r.online(r.AuthLogout),
			},
			{
				Name:  "status",
				Usage: "Show the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.online(r.AuthStatus),
			},
			{
				Name:  "forgot",
				Usage: "Request a password reset email",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Action: r.online(r.AuthForgot),
			},
			{
				Name:  "verify-reset",
				Usage: "Check a password reset token",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "token"},
				},
				Action: r.online(r.AuthVerifyReset),
			},
			{
				Name:  "reset",
				Usage: "Set a new password using a reset token",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "token"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "New password (prompted when omitted)",
					},
				},
				Action: r.online(r.AuthReset),
			},
			{
				Name:  "verify-email",
				Usage: "Confirm an email address",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "token"},
				},
				Action: r.online(r.AuthVerifyEmail),
			},
			{
				Name:   "google",
				Usage:  "Connect Google Calendar in the browser",
				Action: r.online(r.AuthGoogle),
			},
		},
	}
}

func dayCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "day",
		Aliases: []string{"today"},
		Usage:   "Show tasks completed and revisions due on a date",
		Flags:   append([]cli.Flag{dateFlag()}, formatFlags()...),
		Action:  r.online(r.DayShow),
	}
}

func revisionCommand(r *Runner) *cli.Command {
	status := func(name, usage string, action cli.ActionFunc) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Arguments: []cli.Argument{
				&cli.StringArg{Name: "id"},
			},
			Flags:  []cli.Flag{dateFlag()},
			Action: r.online(action),
		}
	}

	calendar := status("calendar", "Add a revision to Google Calendar", r.RevisionCalendar)
	calendar.Flags = append(calendar.Flags,
		&cli.BoolFlag{
			Name:  "link",
			Usage: "Print a Google Calendar link instead of creating the event",
		},
	)

	return &cli.Command{
		Name:    "revision",
		Aliases: []string{"rev"},
		Usage:   "Update revisions due on a date",
		Commands: []*cli.Command{
			status("done", "Mark a revision as done", r.RevisionDone),
			status("pending", "Mark a revision as pending again", r.RevisionPending),
			status("skip", "Skip a revision", r.RevisionSkip),
			status("postpone", "Move a revision to tomorrow", r.RevisionPostpone),
			status("toggle", "Flip a revision between done and pending", r.RevisionToggle),
			calendar,
		},
	}
}

func taskCommand(r *Runner) *cli.Command {
	id := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "id"}} }

	return &cli.Command{
		Name:  "task",
		Usage: "Create and edit tasks",
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Record a completed task and schedule its revisions",
				Flags:  append(taskFlags(), dateFlag()),
				Action: r.online(r.TaskCreate),
			},
			{
				Name:      "update",
				Usage:     "Edit a task",
				Arguments: id(),
				Flags:     append(taskFlags(), dateFlag()),
				Action:    r.online(r.TaskUpdate),
			},
			{
				Name:      "show",
				Usage:     "Show a task and its revisions",
				Arguments: id(),
				Flags:     formatFlags(),
				Action:    r.online(r.TaskShow),
			},
			{
				Name:      "schedule",
				Usage:     "Replace a task's revision dates",
				Arguments: id(),
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "revision",
						Aliases:  []string{"r"},
						Usage:    "Revision date; repeat for each revision",
						Required: true,
					},
				},
				Action: r.online(r.TaskSchedule),
			},
			{
				Name:   "preview",
				Usage:  "Print the default schedule for a completion date",
				Flags:  []cli.Flag{dateFlag()},
				Action: r.TaskPreview,
			},
		},
	}
}
