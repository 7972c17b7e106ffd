package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"task-manager/internal/client"
	"task-manager/internal/config"
	"task-manager/internal/model"
	"task-manager/internal/service"
	"task-manager/internal/tui"
)

// loginFlags let a command log in instead of using TASKMANAGER_TOKEN.
type loginFlags struct {
	email    string
	password string
}

func (f *loginFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.email, "email", "", "Log in with this email instead of TASKMANAGER_TOKEN")
	cmd.PersistentFlags().StringVar(&f.password, "password", "", "Password for --email")
}

// client returns an authenticated API client and the profile it acts for.
func (f *loginFlags) client(ctx context.Context, cfg config.Config) (*client.Client, model.Profile, error) {
	c := client.New(cfg.APIURL, cfg.APIToken, client.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}))
	if f.email != "" {
		user, err := c.Login(ctx, f.email, f.password)
		if err != nil {
			return nil, model.Profile{}, fmt.Errorf("login: %w", err)
		}
		return c, user, nil
	}
	if c.Token() == "" {
		return nil, model.Profile{}, errors.New("TASKMANAGER_TOKEN is not set, pass --email and --password to log in")
	}
	user, err := c.Me(ctx)
	if err != nil {
		return nil, model.Profile{}, fmt.Errorf("check token: %w", err)
	}
	return c, user, nil
}

// apiSession is a logged-in client with the user's task list loaded.
type apiSession struct {
	api   *client.Client
	store *client.Store
	user  model.Profile
}

// report forwards a failed operation to the server's error log and
// returns err unchanged.
func (s *apiSession) report(ctx context.Context, where string, err error) error {
	if err == nil {
		return nil
	}
	if rerr := s.api.ReportError(ctx, err.Error(), where); rerr != nil {
		log.Printf("[error] report %s failure: %v", where, rerr)
	}
	return err
}

func newTasksCmd() *cobra.Command {
	var login loginFlags
	var openOnly bool

	// session loads the list before every subcommand.
	session := func(cmd *cobra.Command) (*apiSession, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		c, user, err := login.client(cmd.Context(), cfg)
		if err != nil {
			return nil, err
		}
		s := &apiSession{api: c, store: client.NewStore(c), user: user}
		if err := s.store.Load(cmd.Context()); err != nil {
			return nil, s.report(cmd.Context(), "tasks load", err)
		}
		return s, nil
	}

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks through the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.Muted.Render("tasks of "+s.user.Email))
			printTasks(cmd.OutOrStdout(), s.store.Tasks(), openOnly, time.Now())
			return nil
		},
	}
	login.register(cmd)
	cmd.Flags().BoolVar(&openOnly, "open", false, "Hide completed tasks")

	var priority, repeat string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			task, err := s.store.Add(cmd.Context(), client.NewTask{
				Title:               strings.Join(args, " "),
				Priority:            model.Priority(priority),
				RepetitionFrequency: repeat,
			})
			if err != nil {
				return s.report(cmd.Context(), "tasks add", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.Good.Render("✓ created "+task.ID))
			return nil
		},
	}
	add.Flags().StringVar(&priority, "priority", "", "low, medium, high or urgent")
	add.Flags().StringVar(&repeat, "repeat", "", "Repeat every N days (1 daily, 7 weekly)")

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			task, err := s.store.Toggle(cmd.Context(), args[0])
			if err != nil {
				return s.report(cmd.Context(), "tasks done", err)
			}
			state := "reopened"
			if task.Completed {
				state = "completed"
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.Good.Render(fmt.Sprintf("✓ %s %q", state, task.Title)))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			if err := s.store.Delete(cmd.Context(), args[0]); err != nil {
				return s.report(cmd.Context(), "tasks rm", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.Good.Render("✓ deleted "+args[0]))
			return nil
		},
	}

	cmd.AddCommand(add, done, rm)
	return cmd
}

func printTasks(w io.Writer, tasks []model.Task, openOnly bool, now time.Time) {
	shown := 0
	for _, t := range tasks {
		if openOnly && t.Completed {
			continue
		}
		shown++
		mark := "[ ]"
		if t.Completed {
			mark = tui.Good.Render("[x]")
		}

		var extra []string
		if r := service.RepeatOf(t); r.Type != model.RepeatNone {
			extra = append(extra, "↻ "+r.Describe())
		}
		if t.DueDate != nil {
			due := "due " + t.DueDate.Format("2006-01-02")
			if !t.Completed && t.DueDate.Before(now) {
				due = tui.Bad.Render(due)
			}
			extra = append(extra, due)
		}
		if t.TotalTimeSpent > 0 {
			extra = append(extra, "⏱ "+service.FormatDuration(t.TotalTimeSpent))
		}

		line := fmt.Sprintf("%s %-40s %-11s %-6s %s", mark, t.Title, t.Status, t.Priority, tui.Muted.Render(t.ID))
		if len(extra) > 0 {
			line += "  " + strings.Join(extra, " · ")
		}
		fmt.Fprintln(w, line)
	}
	if shown == 0 {
		fmt.Fprintln(w, tui.Muted.Render("no tasks"))
	}
}
