package cli

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"projectboard/domain"
	"projectboard/views"
)

func (a *App) projectsCommand() *Command {
	return &Command{
		Name:    "projects",
		Summary: "List and edit projects",
		Subcommands: []*Command{
			a.projectsListCommand(),
			a.projectsShowCommand(),
			a.projectsCreateCommand(),
			a.projectsUpdateCommand(),
			a.projectsDeleteCommand(),
		},
	}
}

func (a *App) projectList(ctx context.Context) (*views.ProjectList, error) {
	api, err := a.api(ctx)
	if err != nil {
		return nil, err
	}
	return views.NewProjectList(api, a.Logger), nil
}

func (a *App) projectsListCommand() *Command {
	return &Command{
		Name:    "list",
		Summary: "List your projects",
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected argument: %s", args[0])
			}
			v, err := a.projectList(ctx)
			if err != nil {
				return err
			}
			if err := v.Load(ctx); err != nil {
				return viewError(v.Err(), err)
			}
			a.printProjects(v.Projects())
			return nil
		},
	}
}

func (a *App) projectsShowCommand() *Command {
	return &Command{
		Name:    "show",
		Summary: "Show a project and its tasks",
		Usage:   "projectboard projects show <project-id>",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageErrorf("show takes exactly one argument: the project id")
			}
			api, err := a.api(ctx)
			if err != nil {
				return err
			}
			detail := views.NewProjectDetail(api, a.Logger)
			if err := detail.Load(ctx, args[0]); err != nil {
				return viewError(detail.Err(), err)
			}
			p, _ := detail.Project()
			fmt.Fprintln(a.Out, a.styles.heading.Render(p.Name))
			if p.Description != "" {
				fmt.Fprintln(a.Out, p.Description)
			}
			fmt.Fprintln(a.Out)

			tasks := views.NewTaskList(api, p.ID, a.Logger)
			if err := tasks.Load(ctx); err != nil {
				return viewError(tasks.Err(), err)
			}
			a.printTasks(tasks.Tasks())
			return nil
		},
	}
}

func (a *App) projectsCreateCommand() *Command {
	var in domain.ProjectInput
	return &Command{
		Name:    "create",
		Summary: "Create a project",
		Usage:   "projectboard projects create --name <name> [--description <text>]",
		Flags: func() *pflag.FlagSet {
			in = domain.ProjectInput{}
			fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
			fs.StringVarP(&in.Name, "name", "n", "", "project name (required)")
			fs.StringVarP(&in.Description, "description", "d", "", "project description")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected argument: %s", args[0])
			}
			v, err := a.projectList(ctx)
			if err != nil {
				return err
			}
			p, err := v.Submit(ctx, in)
			if err != nil {
				return viewError(v.Err(), err)
			}
			fmt.Fprintf(a.Out, "Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
}

func (a *App) projectsUpdateCommand() *Command {
	var (
		fs          *pflag.FlagSet
		name, descr string
	)
	return &Command{
		Name:    "update",
		Summary: "Rename or describe a project",
		Usage:   "projectboard projects update <project-id> [--name <name>] [--description <text>]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("update", pflag.ContinueOnError)
			fs.StringVarP(&name, "name", "n", "", "new project name")
			fs.StringVarP(&descr, "description", "d", "", "new project description")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageErrorf("update takes exactly one argument: the project id")
			}
			if !fs.Changed("name") && !fs.Changed("description") {
				return usageErrorf("nothing to update: pass --name and/or --description")
			}
			v, err := a.projectList(ctx)
			if err != nil {
				return err
			}
			if err := v.Load(ctx); err != nil {
				return viewError(v.Err(), err)
			}
			if err := v.Edit(args[0]); err != nil {
				return viewError(v.Err(), err)
			}
			current, _ := v.Editing()
			in := domain.ProjectInput{Name: current.Name, Description: current.Description}
			if fs.Changed("name") {
				in.Name = name
			}
			if fs.Changed("description") {
				in.Description = descr
			}
			p, err := v.Submit(ctx, in)
			if err != nil {
				return viewError(v.Err(), err)
			}
			fmt.Fprintf(a.Out, "Updated project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
}

func (a *App) projectsDeleteCommand() *Command {
	return &Command{
		Name:    "delete",
		Summary: "Delete a project and its tasks",
		Usage:   "projectboard projects delete <project-id>",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageErrorf("delete takes exactly one argument: the project id")
			}
			v, err := a.projectList(ctx)
			if err != nil {
				return err
			}
			if err := v.Delete(ctx, args[0]); err != nil {
				return viewError(v.Err(), err)
			}
			fmt.Fprintf(a.Out, "Deleted project %s\n", args[0])
			return nil
		},
	}
}
