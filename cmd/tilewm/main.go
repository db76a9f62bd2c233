package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/manager"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: tilewm daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: tilewm daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "screens":
		os.Exit(runScreens(os.Args[2:]))
	case "workspaces":
		os.Exit(runWorkspaces(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "workspace":
		os.Exit(runWorkspace(os.Args[2:]))
	case "focus":
		os.Exit(runFocus(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "resize":
		os.Exit(runResize(os.Args[2:]))
	case "preset":
		os.Exit(runPreset(os.Args[2:]))
	case "minimize":
		os.Exit(runWindowOp("minimize", os.Args[2:]))
	case "close":
		os.Exit(runWindowOp("close", os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tilewm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon                Start the tilewm daemon (foreground)")
	fmt.Fprintln(w, "  status                Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  screens               List connected screens")
	fmt.Fprintln(w, "  workspaces            List workspaces")
	fmt.Fprintln(w, "  windows               List managed windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  workspace focus       Focus a workspace")
	fmt.Fprintln(w, "  workspace layout      Set a workspace's layout mode")
	fmt.Fprintln(w, "  workspace balance     Reset a workspace's split ratios")
	fmt.Fprintln(w, "  workspace send        Send a workspace to another screen")
	fmt.Fprintln(w, "  workspace relayout    Recompute tiling for one or all workspaces")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  focus                 Focus a window by id or direction")
	fmt.Fprintln(w, "  move                  Move a window by direction, workspace, or screen")
	fmt.Fprintln(w, "  resize                Resize a window along one dimension")
	fmt.Fprintln(w, "  preset                Apply a floating preset to a window")
	fmt.Fprintln(w, "  minimize              Minimize a window")
	fmt.Fprintln(w, "  close                 Close a window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  reload                Ask the daemon to reload its config")
	fmt.Fprintln(w, "  mcp serve             Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'tilewm <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("version:        %s\n", status.Version)
	fmt.Printf("screens:        %d\n", status.Screens)
	fmt.Printf("workspaces:     %d\n", status.Workspaces)
	fmt.Printf("windows:        %d\n", status.Windows)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runScreens(args []string) int {
	fs := flag.NewFlagSet("screens", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm screens [--json]")
	}
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.QueryScreens()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data.Screens)
	}
	for _, s := range data.Screens {
		fmt.Printf("%d  %-12s %dx%d+%d+%d  active: %s\n",
			s.ID, s.Name, s.Width, s.Height, s.X, s.Y, s.ActiveWorkspace)
	}
	return 0
}

func runWorkspaces(args []string) int {
	fs := flag.NewFlagSet("workspaces", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm workspaces [--json]")
	}
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.QueryWorkspaces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data.Workspaces)
	}
	for _, ws := range data.Workspaces {
		fmt.Printf("%-8s screen: %d  layout: %-12s windows: %d\n",
			ws.Name, ws.Screen, ws.Layout, len(ws.Windows))
	}
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm windows [--json]")
	}
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.QueryWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data.Windows)
	}
	for _, w := range data.Windows {
		marker := " "
		if w.Focused {
			marker = "*"
		}
		flags := ""
		if w.Floating {
			flags += " floating"
		}
		if w.Minimized {
			flags += " minimized"
		}
		fmt.Printf("%s %-10d %-16s ws: %-6s %dx%d+%d+%d%s  %s\n",
			marker, w.ID, w.App, w.Workspace, w.Width, w.Height, w.X, w.Y, flags, w.Title)
	}
	return 0
}

func printWorkspaceUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tilewm workspace focus <name>")
	fmt.Fprintln(w, "  tilewm workspace layout <name> <mode>")
	fmt.Fprintln(w, "  tilewm workspace balance <name>")
	fmt.Fprintln(w, "  tilewm workspace send <name> <screen-id>")
	fmt.Fprintln(w, "  tilewm workspace relayout [name]")
}

func runWorkspace(args []string) int {
	if len(args) == 0 {
		printWorkspaceUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printWorkspaceUsage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()

	switch args[0] {
	case "focus":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "workspace focus requires <name>")
			return 2
		}
		return runClientOp(client.FocusWorkspace(args[1]))

	case "layout":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "workspace layout requires <name> <mode>")
			return 2
		}
		return runClientOp(client.SetLayout(args[1], args[2]))

	case "balance":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "workspace balance requires <name>")
			return 2
		}
		return runClientOp(client.Balance(args[1]))

	case "send":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "workspace send requires <name> <screen-id>")
			return 2
		}
		screen, err := parseUint32(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid screen id %q\n", args[2])
			return 2
		}
		return runClientOp(client.SendWorkspaceToScreen(args[1], screen))

	case "relayout":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		return runClientOp(client.Relayout(name))

	default:
		fmt.Fprintf(os.Stderr, "Unknown workspace command: %s\n\n", args[0])
		printWorkspaceUsage(os.Stderr)
		return 2
	}
}

func runFocus(args []string) int {
	fs := flag.NewFlagSet("focus", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm focus <window-id | left|right|up|down|next|prev>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Focus a window by id, or move focus from the focused window.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	arg := fs.Arg(0)
	if id, err := parseUint32(arg); err == nil {
		return runClientOp(client.FocusWindow(id))
	}
	if _, err := manager.ParseDirection(arg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return runClientOp(client.FocusDirection(arg))
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm move <window-id> [--direction d | --workspace name | --screen id]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	direction := fs.String("direction", "", "Swap toward left|right|up|down|next|prev")
	workspace := fs.String("workspace", "", "Target workspace name")
	screen := fs.Uint("screen", 0, "Target screen id")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "move requires <window-id>")
		fs.Usage()
		return 2
	}
	window, err := parseUint32(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}

	screenSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "screen" {
			screenSet = true
		}
	})

	client := ipc.NewClient()
	switch {
	case *direction != "":
		return runClientOp(client.MoveWindowDirection(window, *direction))
	case *workspace != "":
		return runClientOp(client.MoveWindowToWorkspace(window, *workspace))
	case screenSet:
		return runClientOp(client.MoveWindowToScreen(window, uint32(*screen)))
	default:
		fmt.Fprintln(os.Stderr, "move requires one of --direction, --workspace, --screen")
		fs.Usage()
		return 2
	}
}

func runResize(args []string) int {
	fs := flag.NewFlagSet("resize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm resize <window-id> <width|height> <delta-px>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Tiled windows adjust the workspace split ratio; floating windows")
		fmt.Fprintln(os.Stderr, "change size directly. Negative deltas shrink.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 2
	}
	window, err := parseUint32(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}
	dimension := fs.Arg(1)
	if dimension != "width" && dimension != "height" {
		fmt.Fprintf(os.Stderr, "dimension must be width or height, got %q\n", dimension)
		return 2
	}
	delta, err := strconv.Atoi(fs.Arg(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid delta %q\n", fs.Arg(2))
		return 2
	}

	client := ipc.NewClient()
	return runClientOp(client.ResizeWindow(window, dimension, delta))
}

func runPreset(args []string) int {
	fs := flag.NewFlagSet("preset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm preset <window-id> <preset-name>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}
	window, err := parseUint32(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}

	client := ipc.NewClient()
	return runClientOp(client.ApplyPreset(window, fs.Arg(1)))
}

func runWindowOp(name string, args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tilewm %s <window-id>\n", name)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	window, err := parseUint32(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}

	client := ipc.NewClient()
	if name == "minimize" {
		return runClientOp(client.MinimizeWindow(window))
	}
	return runClientOp(client.CloseWindow(window))
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tilewm reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running daemon to re-read its config file.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	return runClientOp(client.Reload())
}

func runClientOp(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printJSON(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
