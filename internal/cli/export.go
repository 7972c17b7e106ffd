package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type exportFile struct {
	ExportedAt time.Time    `yaml:"exportedAt"`
	User       exportUser   `yaml:"user"`
	Tasks      []exportTask `yaml:"tasks"`
}

type exportUser struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

type exportTask struct {
	ID                  string         `yaml:"id"`
	Title               string         `yaml:"title"`
	Content             string         `yaml:"content,omitempty"`
	Goal                string         `yaml:"goal,omitempty"`
	Status              model.Status   `yaml:"status"`
	Priority            model.Priority `yaml:"priority"`
	Completed           bool           `yaml:"completed"`
	RepetitionFrequency string         `yaml:"repetitionFrequency,omitempty"`
	Estimate            *int           `yaml:"estimate,omitempty"`
	DueDate             *time.Time     `yaml:"dueDate,omitempty"`
	CompletedAt         *time.Time     `yaml:"completedAt,omitempty"`
	TimeSpentSeconds    int64          `yaml:"timeSpentSeconds"`
	CreatedAt           time.Time      `yaml:"createdAt"`
}

func newExportCmd() *cobra.Command {
	var email, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump a user's tasks as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			user, err := a.users.FindByEmail(ctx, strings.TrimSpace(email))
			if err != nil {
				return fmt.Errorf("find user %q: %w", email, err)
			}
			tasks, err := a.tasks.All(ctx, user.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeExport(w, buildExport(*user, tasks, time.Now())); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d tasks to %s\n", len(tasks), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func buildExport(user model.User, tasks []model.Task, now time.Time) exportFile {
	doc := exportFile{
		ExportedAt: now.UTC(),
		User:       exportUser{Email: user.Email, Name: user.Name},
		Tasks:      make([]exportTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, exportTask{
			ID:                  t.ID,
			Title:               t.Title,
			Content:             t.Content,
			Goal:                t.Goal,
			Status:              t.Status,
			Priority:            t.Priority,
			Completed:           t.Completed,
			RepetitionFrequency: service.RepeatOf(t).Frequency(),
			Estimate:            t.Estimate,
			DueDate:             t.DueDate,
			CompletedAt:         t.CompletedAt,
			TimeSpentSeconds:    t.TotalTimeSpent,
			CreatedAt:           t.CreatedAt,
		})
	}
	return doc
}

func writeExport(w io.Writer, doc exportFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
