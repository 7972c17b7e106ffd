package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"task-manager/internal/config"
	"task-manager/internal/pomodoro"
	"task-manager/internal/tui"
)

func newPomodoroCmd() *cobra.Command {
	var login loginFlags
	var taskID string
	var testMode bool

	cmd := &cobra.Command{
		Use:   "pomodoro",
		Short: "Run the pomodoro timer, committing work sessions to a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx := cmd.Context()

			var opts []pomodoro.Option
			var title string
			if taskID != "" {
				c, user, err := login.client(ctx, cfg)
				if err != nil {
					return err
				}
				task, err := c.GetTask(ctx, taskID)
				if err != nil {
					return err
				}
				title = task.Title
				s := &apiSession{api: c, user: user}
				opts = append(opts, pomodoro.WithCommit(func(ctx context.Context, seconds int64, mode pomodoro.Mode) error {
					_, err := c.AddTime(ctx, task.ID, seconds, string(mode))
					return s.report(ctx, "pomodoro commit", err)
				}))
			}

			timer, err := pomodoro.New(timerSettings(cfg), opts...)
			if err != nil {
				return err
			}
			if testMode {
				timer.SwitchMode(pomodoro.ModeTest)
			}
			return tui.RunPomodoro(ctx, timer, title, cmd.OutOrStdout())
		},
	}
	login.register(cmd)
	cmd.Flags().StringVar(&taskID, "task", "", "Task to commit finished work sessions to")
	cmd.Flags().BoolVar(&testMode, "test", false, "Start in the short test mode")
	return cmd
}

func timerSettings(cfg config.Config) pomodoro.Settings {
	return pomodoro.Settings{
		Work:       cfg.Pomodoro.WorkMinutes,
		ShortBreak: cfg.Pomodoro.ShortBreakMinutes,
		LongBreak:  cfg.Pomodoro.LongBreakMinutes,
	}
}
