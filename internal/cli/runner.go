// Package cli implements the one-shot pension subcommands.
package cli

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

	"github.com/knc219-a11y/pension-list/internal/client"
	"github.com/knc219-a11y/pension-list/internal/gateway"
	"github.com/knc219-a11y/pension-list/internal/location"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/room"
	"github.com/knc219-a11y/pension-list/internal/search"
)

// Backend is the part of the sync client the subcommands use.
type Backend interface {
	gateway.Writer
	ListItems(ctx context.Context, location string) ([]model.Item, error)
	Search(ctx context.Context, location, query string, limit int) (search.Response, error)
	Export(ctx context.Context, location, format string, filter model.Filter, title string) (*client.ExportResult, error)
}

type Env struct {
	Backend  Backend
	Resolver location.Resolver
	// Authenticate resolves the identity before any backend call.
	Authenticate func(ctx context.Context) error
	// Interactive starts the terminal UI.
	Interactive func(ctx context.Context) error
	// In answers confirmation prompts for rm and reset.
	In       io.Reader
	Out, Err io.Writer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, env Env) int {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Err == nil {
		env.Err = os.Stderr
	}
	if env.In == nil {
		env.In = os.Stdin
	}
	r := runner{env: env}

	if len(args) == 0 {
		return r.interactive(ctx)
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		r.printHelp()
		return 0
	case "tui":
		return r.interactive(ctx)
	case "share":
		if len(a) != 1 || strings.TrimSpace(a[0]) == "" {
			return r.usage("pension share <room>")
		}
		fmt.Fprintln(env.Out, room.ShareText(a[0]))
		return 0
	case "ls":
		return r.list(ctx, a)
	case "add":
		return r.add(ctx, a)
	case "check":
		if len(a) != 2 {
			return r.usage("pension check <room> <index>")
		}
		return r.byIndex(ctx, "check", a[0], a[1], nil, func(g *gateway.Gateway, it model.Item) error {
			return g.ToggleItem(ctx, it.ID, it.Checked)
		})
	case "rm":
		return r.remove(ctx, a)
	case "reset":
		return r.reset(ctx, a)
	case "search":
		return r.search(ctx, a)
	case "export":
		return r.export(ctx, a)
	}

	r.fail("unknown subcommand: " + cmd)
	fmt.Fprintln(env.Err)
	r.printHelp()
	return 2
}

type runner struct {
	env Env
}

func (r runner) printHelp() {
	fmt.Fprint(r.env.Out, `pension - shared shopping list for a pension trip

Usage:
  pension                       Open the interactive list
  pension <subcommand> [args]

Subcommands:
  ls <room> [-filter meat]      List items, unchecked first
  add <room> [-category veg] <text...>
                                Add an item (category defaults to etc)
  check <room> <index>          Toggle the item at 1-based index
  rm <room> [-y] <index>        Remove the item at 1-based index
  reset <room> [-y]             Replace the list with the starter items
                                (rm and reset ask first unless -y is given)
  search <room> <query...>      Find items by text
  export <room> [-format html|pdf] [-o file]
                                Save a printable list
  share <room>                  Print the invite message

Examples:
  pension add A1 라면
  pension ls A1 -filter drink
  pension check A1 2
`)
}

func (r runner) usage(line string) int {
	r.fail("usage: " + line)
	return 2
}

func (r runner) interactive(ctx context.Context) int {
	if r.env.Interactive == nil {
		r.printHelp()
		return 2
	}
	if err := r.env.Interactive(ctx); err != nil {
		r.fail(err.Error())
		return 1
	}
	return 0
}

// connect authenticates and resolves the room's location.
func (r runner) connect(ctx context.Context, code string) (string, bool) {
	loc := r.env.Resolver.Resolve(code)
	if loc == "" {
		r.fail("room name is empty")
		return "", false
	}
	if r.env.Authenticate != nil {
		if err := r.env.Authenticate(ctx); err != nil {
			r.fail("sign-in: " + err.Error())
			return "", false
		}
	}
	return loc, true
}

func (r runner) gatewayFor(code string) *gateway.Gateway {
	return gateway.New(r.env.Backend, r.env.Resolver, func() string { return code }, nil)
}

func (r runner) list(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(r.env.Err)
	filter := fs.String("filter", string(model.FilterAll), "category tab: all, meat, veg, drink, snack, etc")
	code, rest, ok := roomArg(fs, args)
	if !ok || len(rest) != 0 {
		return r.usage("pension ls <room> [-filter meat]")
	}
	f := model.Filter(*filter)
	if !f.Valid() {
		r.fail("unknown filter: " + *filter)
		return 2
	}
	loc, ok := r.connect(ctx, code)
	if !ok {
		return 1
	}
	items, err := r.env.Backend.ListItems(ctx, loc)
	if err != nil {
		r.fail("list: " + err.Error())
		return 1
	}
	model.Sort(items)
	r.panel(listLines(code, items, f))
	return 0
}

func (r runner) add(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(r.env.Err)
	category := fs.String("category", string(model.CategoryEtc), "meat, veg, drink, snack or etc")
	code, rest, ok := roomArg(fs, args)
	if !ok || len(rest) == 0 {
		return r.usage("pension add <room> [-category veg] <text...>")
	}
	f := model.Filter(*category)
	if f == model.FilterAll || !f.Valid() {
		r.fail("unknown category: " + *category)
		return 2
	}
	if _, ok := r.connect(ctx, code); !ok {
		return 1
	}
	err := r.gatewayFor(code).AddItem(ctx, strings.Join(rest, " "), f)
	if errors.Is(err, model.ErrEmptyText) {
		r.fail("add: empty text")
		return 2
	}
	if err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok("added")
	return 0
}

func (r runner) remove(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.SetOutput(r.env.Err)
	yes := fs.Bool("y", false, "do not ask for confirmation")
	code, rest, ok := roomArg(fs, args)
	if !ok || len(rest) != 1 {
		return r.usage("pension rm <room> [-y] <index>")
	}
	var question func(model.Item) string
	if !*yes {
		question = func(it model.Item) string { return fmt.Sprintf("%q 정말 삭제할까요?", it.Text) }
	}
	return r.byIndex(ctx, "rm", code, rest[0], question, func(g *gateway.Gateway, it model.Item) error {
		return g.DeleteItem(ctx, it.ID)
	})
}

// byIndex applies op to the item at a 1-based position in the sorted list.
// A non-nil question is asked first and op runs only on a yes.
func (r runner) byIndex(ctx context.Context, name, code, index string, question func(model.Item) string, op func(*gateway.Gateway, model.Item) error) int {
	n, err := strconv.Atoi(index)
	if err != nil {
		r.fail(name + ": not a number: " + index)
		return 2
	}
	loc, ok := r.connect(ctx, code)
	if !ok {
		return 1
	}
	items, err := r.env.Backend.ListItems(ctx, loc)
	if err != nil {
		r.fail("list: " + err.Error())
		return 1
	}
	model.Sort(items)
	if n < 1 || n > len(items) {
		r.fail(fmt.Sprintf("index out of range: have %d, got %d", len(items), n))
		fmt.Fprintln(r.env.Err, mutedStyle.Render("Hint: run `pension ls "+code+"` to see valid indexes"))
		return 2
	}
	if question != nil && !r.confirm(question(items[n-1])) {
		return r.cancelled()
	}
	if err := op(r.gatewayFor(code), items[n-1]); err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok(map[string]string{"check": "toggled", "rm": "removed"}[name])
	return 0
}

func (r runner) reset(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(r.env.Err)
	yes := fs.Bool("y", false, "do not ask for confirmation")
	code, rest, ok := roomArg(fs, args)
	if !ok || len(rest) != 0 {
		return r.usage("pension reset <room> [-y]")
	}
	loc, ok := r.connect(ctx, code)
	if !ok {
		return 1
	}
	items, err := r.env.Backend.ListItems(ctx, loc)
	if err != nil {
		r.fail("list: " + err.Error())
		return 1
	}
	if !*yes && !r.confirm(fmt.Sprintf("%d개 항목을 지우고 초기화할까요?", len(items))) {
		return r.cancelled()
	}
	if err := r.gatewayFor(code).ResetRoom(ctx, items); err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok("reset to the starter list")
	return 0
}

func (r runner) search(ctx context.Context, args []string) int {
	if len(args) < 2 {
		return r.usage("pension search <room> <query...>")
	}
	loc, ok := r.connect(ctx, args[0])
	if !ok {
		return 1
	}
	resp, err := r.env.Backend.Search(ctx, loc, strings.Join(args[1:], " "), 20)
	if err != nil {
		r.fail("search: " + err.Error())
		return 1
	}
	lines := []string{titleStyle.Render(fmt.Sprintf("%d result(s) for %q", resp.Total, resp.Query))}
	for _, hit := range resp.Results {
		text := hit.Text
		if hit.Snippet != "" {
			text = hit.Snippet
		}
		lines = append(lines, itemLine(hit.Checked, hit.Category, text))
	}
	r.panel(lines)
	return 0
}

func (r runner) export(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(r.env.Err)
	format := fs.String("format", "html", "html or pdf")
	out := fs.String("o", "", "output file (defaults to the suggested name)")
	filter := fs.String("filter", "", "only export one category")
	code, rest, ok := roomArg(fs, args)
	if !ok || len(rest) != 0 {
		return r.usage("pension export <room> [-format html|pdf] [-o file]")
	}
	loc, ok := r.connect(ctx, code)
	if !ok {
		return 1
	}
	result, err := r.env.Backend.Export(ctx, loc, *format, model.Filter(*filter), code)
	if err != nil {
		r.fail("export: " + err.Error())
		return 1
	}
	path := *out
	if path == "" {
		path = result.Filename
	}
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		r.fail("write: " + err.Error())
		return 1
	}
	r.ok("saved " + path)
	if result.URL != "" {
		fmt.Fprintln(r.env.Out, mutedStyle.Render("link: "+result.URL))
	}
	return 0
}

// confirm asks a y/N question on Err and reads one answer line from In.
// Anything but y or yes, including end of input, is a no.
func (r runner) confirm(question string) bool {
	fmt.Fprintf(r.env.Err, "%s [y/N] ", question)
	line, err := bufio.NewReader(r.env.In).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(r.env.Err)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (r runner) cancelled() int {
	fmt.Fprintln(r.env.Err, mutedStyle.Render("cancelled, nothing changed"))
	return 1
}

// roomArg takes the leading room argument, then parses flags from the rest
// so flags may follow the room.
func roomArg(fs *flag.FlagSet, args []string) (string, []string, bool) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, false
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", nil, false
	}
	return args[0], fs.Args(), true
}
