package cli

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"projectboard/domain"
	"projectboard/views"
)

func (a *App) tasksCommand() *Command {
	return &Command{
		Name:    "tasks",
		Summary: "List and edit the tasks of a project",
		Subcommands: []*Command{
			a.tasksListCommand(),
			a.tasksAddCommand(),
			a.tasksUpdateCommand(),
			a.tasksStatusCommand(),
			a.tasksDeleteCommand(),
		},
	}
}

func (a *App) taskList(ctx context.Context, projectID string) (*views.TaskList, error) {
	api, err := a.api(ctx)
	if err != nil {
		return nil, err
	}
	return views.NewTaskList(api, projectID, a.Logger), nil
}

func (a *App) tasksListCommand() *Command {
	var status string
	return &Command{
		Name:    "list",
		Summary: "List the tasks of a project",
		Usage:   "projectboard tasks list <project-id> [--status todo|in-progress|done|all]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.StringVarP(&status, "status", "s", views.FilterAll, "only show tasks with this status")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageErrorf("list takes exactly one argument: the project id")
			}
			v, err := a.taskList(ctx, args[0])
			if err != nil {
				return err
			}
			if err := v.Filter(status); err != nil {
				return usageErrorf("%v", err)
			}
			if err := v.Load(ctx); err != nil {
				return viewError(v.Err(), err)
			}
			a.printTasks(v.Visible())
			return nil
		},
	}
}

func (a *App) tasksAddCommand() *Command {
	var title, descr, status string
	return &Command{
		Name:    "add",
		Summary: "Add a task to a project",
		Usage:   "projectboard tasks add <project-id> --title <title> [--description <text>] [--status <status>]",
		Examples: []Example{
			{Command: `projectboard tasks add p1 --title "Write spec" --status todo`},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
			fs.StringVarP(&title, "title", "t", "", "task title (required)")
			fs.StringVarP(&descr, "description", "d", "", "task description")
			fs.StringVarP(&status, "status", "s", string(domain.StatusTodo), "initial status")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageErrorf("add takes exactly one argument: the project id")
			}
			st, err := domain.ParseTaskStatus(status)
			if err != nil {
				return usageErrorf("%v", err)
			}
			v, err := a.taskList(ctx, args[0])
			if err != nil {
				return err
			}
			t, err := v.Add(ctx, domain.NewTask{Title: title, Description: descr, Status: st})
			if err != nil {
				return viewError(v.Err(), err)
			}
			fmt.Fprint(a.Out, "Added ")
			a.printTask(t)
			return nil
		},
	}
}

func (a *App) tasksUpdateCommand() *Command {
	var (
		fs                   *pflag.FlagSet
		title, descr, status string
	)
	return &Command{
		Name:    "update",
		Summary: "Edit a task",
		Usage:   "projectboard tasks update <project-id> <task-id> [--title <title>] [--description <text>] [--status <status>]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("update", pflag.ContinueOnError)
			fs.StringVarP(&title, "title", "t", "", "new title")
			fs.StringVarP(&descr, "description", "d", "", "new description")
			fs.StringVarP(&status, "status", "s", "", "new status")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return usageErrorf("update takes two arguments: the project id and the task id")
			}
			var patch domain.TaskPatch
			if fs.Changed("title") {
				patch.Title = &title
			}
			if fs.Changed("description") {
				patch.Description = &descr
			}
			if fs.Changed("status") {
				st, err := domain.ParseTaskStatus(status)
				if err != nil {
					return usageErrorf("%v", err)
				}
				patch.Status = &st
			}
			if patch.Empty() {
				return usageErrorf("nothing to update: pass --title, --description or --status")
			}

			v, err := a.taskList(ctx, args[0])
			if err != nil {
				return err
			}
			if err := v.Load(ctx); err != nil {
				return viewError(v.Err(), err)
			}
			if _, err := v.StartEdit(args[1]); err != nil {
				return viewError(v.Err(), err)
			}
			t, err := v.SaveEdit(ctx, patch)
			if err != nil {
				return viewError(v.Err(), err)
			}
			fmt.Fprint(a.Out, "Updated ")
			a.printTask(t)
			return nil
		},
	}
}

func (a *App) tasksStatusCommand() *Command {
	return &Command{
		Name:    "status",
		Summary: "Move a task to another status",
		Usage:   "projectboard tasks status <project-id> <task-id> <todo|in-progress|done>",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 3 {
				return usageErrorf("status takes three arguments: project id, task id and status")
			}
			st, err := domain.ParseTaskStatus(args[2])
			if err != nil {
				return usageErrorf("%v", err)
			}
			v, err := a.taskList(ctx, args[0])
			if err != nil {
				return err
			}
			t, err := v.SetStatus(ctx, args[1], st)
			if err != nil {
				return viewError(v.Err(), err)
			}
			a.printTask(t)
			return nil
		},
	}
}

func (a *App) tasksDeleteCommand() *Command {
	return &Command{
		Name:    "delete",
		Summary: "Delete a task",
		Usage:   "projectboard tasks delete <project-id> <task-id>",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return usageErrorf("delete takes two arguments: the project id and the task id")
			}
			v, err := a.taskList(ctx, args[0])
			if err != nil {
				return err
			}
			if err := v.Delete(ctx, args[1]); err != nil {
				return viewError(v.Err(), err)
			}
			fmt.Fprintf(a.Out, "Deleted task %s\n", args[1])
			return nil
		},
	}
}
