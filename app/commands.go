package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"todo-share/app/models"
	"todo-share/app/sharing"

	"github.com/spf13/cobra"
)

// withApplication runs fn against a loaded store and flushes it afterwards.
func withApplication(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, app *application) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app, err := openApplication(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	if err := app.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func parseDateFlag(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := models.ParseDate(v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", v)
	}
	return d, nil
}

func parsePriorityFlag(v string) (models.Priority, error) {
	p := models.Priority(strings.ToLower(v))
	if p != "" && !p.Valid() {
		return "", fmt.Errorf("invalid priority %q, expected low, medium or high", v)
	}
	return p, nil
}

func addCmd(flags *globalFlags) *cobra.Command {
	var priority, date string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := models.NormalizeText(strings.Join(args, " "))
			if err != nil {
				return err
			}
			p, err := parsePriorityFlag(priority)
			if err != nil {
				return err
			}
			d, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				task := app.store.AddTask(text, p, d)
				fmt.Fprintln(cmd.OutOrStdout(), task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high (default medium)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "task date YYYY-MM-DD (default today)")
	return cmd
}

func listCmd(flags *globalFlags) *cobra.Command {
	var view, date string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks for a day, week, month or year",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if date != "" {
				d, err := parseDateFlag(date)
				if err != nil {
					return err
				}
				ref = d
			}
			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				tasks := app.store.FilterTasksByView(models.View(view), ref)
				if asJSON {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(tasks)
				}
				return printTasks(cmd.OutOrStdout(), tasks)
			})
		},
	}
	cmd.Flags().StringVarP(&view, "view", "v", "day", "day, week, month or year; anything else lists every task")
	cmd.Flags().StringVarP(&date, "date", "d", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printTasks(w io.Writer, tasks []models.Task) error {
	active, completed := models.Partition(tasks)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, group := range [][]models.Task{active, completed} {
		for _, t := range group {
			mark := "[ ]"
			if t.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, t.ID, t.Date, t.Priority, t.Text)
		}
	}
	return tw.Flush()
}

func toggleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				task, ok := app.store.ToggleTask(args[0])
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "no task %s\n", args[0])
					return nil
				}
				return printTasks(cmd.OutOrStdout(), []models.Task{task})
			})
		},
	}
}

func updateCmd(flags *globalFlags) *cobra.Command {
	var text, priority, date, category string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd models.TaskUpdate
			if cmd.Flags().Changed("text") {
				clean, err := models.NormalizeText(text)
				if err != nil {
					return err
				}
				upd.Text = &clean
			}
			if cmd.Flags().Changed("priority") {
				p, err := parsePriorityFlag(priority)
				if err != nil {
					return err
				}
				if p == "" {
					return errors.New("priority must not be empty")
				}
				upd.Priority = &p
			}
			if cmd.Flags().Changed("date") {
				d, err := parseDateFlag(date)
				if err != nil {
					return err
				}
				if d.IsZero() {
					return errors.New("date must not be empty")
				}
				upd.Date = &d
			}
			if cmd.Flags().Changed("category") {
				upd.Category = &category
			}

			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				task, ok := app.store.UpdateTask(args[0], upd)
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "no task %s\n", args[0])
					return nil
				}
				return printTasks(cmd.OutOrStdout(), []models.Task{task})
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new date YYYY-MM-DD")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	return cmd
}

func removeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				if !app.store.DeleteTask(args[0]) {
					fmt.Fprintf(cmd.ErrOrStderr(), "no task %s\n", args[0])
				}
				return nil
			})
		},
	}
}

func shareCmd(flags *globalFlags) *cobra.Command {
	var date, base string
	var tokenOnly bool

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a link sharing one day's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if date != "" {
				d, err := parseDateFlag(date)
				if err != nil {
					return err
				}
				ref = d
			}
			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				tasks := app.store.FilterTasksByView(models.ViewDay, ref)
				if len(tasks) == 0 {
					return fmt.Errorf("no tasks to share for %s", models.FormatDate(ref))
				}
				if tokenOnly {
					fmt.Fprintln(cmd.OutOrStdout(), app.codec.Encode(tasks))
					return nil
				}
				page := base
				if page == "" {
					page = app.cfg.PublicURL
				}
				link, err := app.codec.Link(page, tasks)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to share YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&base, "base", "", "page the link points at (env TODO_PUBLIC_URL)")
	cmd.Flags().BoolVar(&tokenOnly, "token", false, "print only the token")
	return cmd
}

func importCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <token-or-url>",
		Short: "Import tasks from a share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(ctx context.Context, app *application) error {
				shared := app.codec.Decode(sharing.TokenFrom(args[0]))
				if len(shared) == 0 {
					return errors.New("no shared tasks in link")
				}
				if dryRun {
					return printTasks(cmd.OutOrStdout(), shared)
				}
				return printTasks(cmd.OutOrStdout(), app.store.ImportTasks(shared))
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the shared tasks without importing them")
	return cmd
}
