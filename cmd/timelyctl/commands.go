package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rpggio/timely/internal/config"
	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
	"github.com/rpggio/timely/internal/sqlite"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	dbPath string
	tenant string
	json   bool
}

// store is an opened database with the services commands need.
type store struct {
	db       *sqlite.DB
	sessions *session.Service
	journal  *journal.Service
	keys     *sqlite.APIKeyRepository
}

func (o *globalOptions) open() (*store, error) {
	path := o.dbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.DB.Path
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	journalSvc := journal.NewService(sqlite.NewJournalRepository(db), nil)
	return &store{
		db:       db,
		sessions: session.NewService(sqlite.NewSessionRepository(db), journalSvc, nil, session.Options{}),
		journal:  journalSvc,
		keys:     sqlite.NewAPIKeyRepository(db),
	}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func withStore(opts *globalOptions, fn func(ctx context.Context, s *store, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := opts.open()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd.Context(), s, cmd.OutOrStdout(), args)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sessionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List active sessions",
		Args:  cobra.NoArgs,
		RunE: withStore(opts, func(ctx context.Context, s *store, out io.Writer, _ []string) error {
			list, err := s.sessions.ListActive(ctx, opts.tenant)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No active sessions")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tACTIVITIES\tLAST ACTIVITY")
			for _, info := range list {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", info.SessionID, info.ActivityCount, info.LastActivity.Format(time.RFC3339))
			}
			return tw.Flush()
		}),
	}
}

func showCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the activities of a session",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(opts, func(ctx context.Context, s *store, out io.Writer, args []string) error {
			view, err := s.sessions.Get(ctx, opts.tenant, args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(out, view)
			}

			fmt.Fprintf(out, "Session %s (%s)\n", view.Session.ID, view.Session.Status)
			if view.Session.PlannedDuration > 0 {
				fmt.Fprintf(out, "Planned: %s\n", view.Session.PlannedDuration)
			}
			if view.Current != nil {
				fmt.Fprintf(out, "Running: %s\n", view.Current.ID)
			}

			names := make(map[string]string, len(view.Session.Activities))
			for _, info := range view.Session.Activities {
				names[info.ID] = info.Name
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTIVITY\tNAME\tSTATE")
			for _, act := range view.Session.States {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", act.ID, names[act.ID], act.State)
			}
			return tw.Flush()
		}),
	}
}

func summaryCmd(opts *globalOptions) *cobra.Command {
	var timeUp bool
	cmd := &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Print the time summary of a session",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(opts, func(ctx context.Context, s *store, out io.Writer, args []string) error {
			sum, err := s.sessions.Summary(ctx, opts.tenant, args[0], session.SummaryOptions{TimeUp: timeUp})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(out, sum)
			}

			fmt.Fprintf(out, "Planned:  %s\n", seconds(sum.PlannedTime))
			fmt.Fprintf(out, "Spent:    %s\n", seconds(sum.TimeSpent))
			fmt.Fprintf(out, "Active:   %s\n", seconds(sum.ActiveTime))
			fmt.Fprintf(out, "Idle:     %s\n", seconds(sum.IdleTime))
			if sum.Overtime > 0 {
				fmt.Fprintf(out, "Overtime: %s\n", seconds(sum.Overtime))
			}

			if len(sum.Activities) > 0 {
				fmt.Fprintln(out, "\nActivities:")
				for _, a := range sum.Activities {
					fmt.Fprintf(out, "  %-20s %s\n", a.Name, seconds(a.Duration))
				}
			}
			if len(sum.SkippedActivities) > 0 {
				skipped := make([]string, 0, len(sum.SkippedActivities))
				for _, a := range sum.SkippedActivities {
					skipped = append(skipped, a.Name)
				}
				fmt.Fprintf(out, "\nSkipped: %s\n", strings.Join(skipped, ", "))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&timeUp, "time-up", false, "Report the session as ended by running out of time")
	return cmd
}

func journalCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal <session-id>",
		Short: "Show recent journal entries of a session",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(opts, func(ctx context.Context, s *store, out io.Writer, args []string) error {
			entries, err := s.journal.Recent(ctx, opts.tenant, journal.ListOptions{
				SessionID: args[0],
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(out, entries)
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-24s %s\n", e.CreatedAt.Format(time.RFC3339), e.Type, e.Summary)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries")
	return cmd
}

func apikeyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}

	var description string
	add := &cobra.Command{
		Use:   "add <token>",
		Short: "Register a bearer token for the tenant",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(opts, func(ctx context.Context, s *store, out io.Writer, args []string) error {
			if err := s.keys.Add(ctx, opts.tenant, args[0], description); err != nil {
				return err
			}
			fmt.Fprintf(out, "Added key for tenant %s\n", opts.tenant)
			return nil
		}),
	}
	add.Flags().StringVarP(&description, "description", "d", "", "Key description")

	cmd.AddCommand(add)
	return cmd
}

func seconds(n int64) string {
	return (time.Duration(n) * time.Second).String()
}
