package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/todoapp/todo-backend/internal/client"
	"github.com/todoapp/todo-backend/internal/config"
	"github.com/todoapp/todo-backend/internal/domain"
)

type app struct {
	client *client.Client
	out    io.Writer
}

func run(ctx context.Context, cfg config.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(out)
	apiURL := fs.String("api", cfg.APIURL, "API base URL")
	sessionFile := fs.String("session", cfg.SessionFile, "Session file (default: user config dir)")
	fs.Usage = func() { printUsage(fs, out) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs, out)
		return nil
	}

	path := *sessionFile
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return fmt.Errorf("locating session file: %w", err)
		}
	}
	session, err := client.LoadSession(path)
	if err != nil {
		return err
	}
	a := &app{client: client.New(*apiURL, session), out: out}

	subcommand, subArgs := rest[0], rest[1:]
	switch subcommand {
	case "login":
		return a.login(ctx, subArgs)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "list", "ls":
		return a.list(ctx, subArgs)
	case "add":
		return a.add(ctx, subArgs)
	case "toggle", "done":
		return a.toggle(ctx, subArgs)
	case "rm", "delete":
		return a.remove(ctx, subArgs)
	case "help":
		printUsage(fs, out)
		return nil
	default:
		printUsage(fs, out)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Usage: todo [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  login -email <email> [-password <password>]")
	fmt.Fprintln(w, "  logout")
	fmt.Fprintln(w, "  whoami")
	fmt.Fprintln(w, "  list [-open]")
	fmt.Fprintln(w, "  add -priority <BAS|MOYEN|HAUT> [-content <text>] <title>")
	fmt.Fprintln(w, "  toggle <id>")
	fmt.Fprintln(w, "  rm <id>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todo login", flag.ContinueOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("login: -email is required")
	}
	if *password == "" {
		fmt.Fprint(a.out, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	user, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bienvenue, %s!\n", displayName(user))
	return nil
}

func (a *app) logout() error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) whoami() error {
	user, ok := a.client.Session().User()
	if !ok {
		return client.ErrNotAuthenticated
	}
	fmt.Fprintf(a.out, "%s <%s> (id %d)\n", displayName(user), user.Email, user.ID)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todo list", flag.ContinueOnError)
	open := fs.Bool("open", false, "Only show todos that are not completed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	todos, err := a.client.ListTodos(ctx)
	if err != nil {
		return err
	}
	todos = client.SortForDisplay(todos)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tTITLE\tCONTENT")
	for _, todo := range todos {
		if *open && todo.Completed() {
			continue
		}
		done := " "
		if todo.Completed() {
			done = "x"
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\t%s\n", todo.ID, done, todo.Priority.Label(), todo.Title, todo.Content)
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todo add", flag.ContinueOnError)
	priority := fs.String("priority", "MOYEN", "Priority (BAS, MOYEN, HAUT or LOW, MEDIUM, HIGH)")
	content := fs.String("content", "", "Description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		return errors.New("add: a title is required")
	}
	p, err := domain.ParsePriorityLabel(*priority)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	todo, err := a.client.CreateTodo(ctx, client.NewTodo{Title: title, Content: *content, Priority: p})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created #%d %q\n", todo.ID, todo.Title)
	return nil
}

func (a *app) toggle(ctx context.Context, args []string) error {
	id, err := parseID("toggle", args)
	if err != nil {
		return err
	}
	current, err := a.client.GetTodo(ctx, id)
	if err != nil {
		return err
	}
	updated, err := a.client.ToggleTodo(ctx, *current)
	if err != nil {
		return err
	}
	state := "reopened"
	if updated.Completed() {
		state = "completed"
	}
	fmt.Fprintf(a.out, "#%d %s\n", updated.ID, state)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	id, err := parseID("rm", args)
	if err != nil {
		return err
	}
	if err := a.client.DeleteTodo(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted #%d\n", id)
	return nil
}

func parseID(cmd string, args []string) (uint, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: expected exactly one todo id", cmd)
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s: invalid todo id %q", cmd, args[0])
	}
	return uint(id), nil
}

func displayName(u client.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
