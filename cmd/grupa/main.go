// Command grupa is a terminal client for grouporder: create a group, add
// orders to it, and print the SMS text to send to the kebab shop.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mmynk/grouporder/internal/client"
	"github.com/mmynk/grouporder/internal/local"
	"github.com/mmynk/grouporder/pkg/logging"
)

const usage = `usage: grupa [-server URL] [-dir DIR] <command> [args]

commands:
  new                       create a group and print its link
  show <group>              list the orders of a group
  add <group> [flags]       add an order (see grupa add -h)
  export <group>            print the SMS text of a group
  link <group>              print the share link of a group
  preset save <name> [flags]
  preset list
  preset delete <name|id>
`

func main() {
	logging.SetupWithLevel(logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every command needs.
type app struct {
	remote        *client.Remote
	baseURL       string
	presets       *local.PresetStore
	notifications *local.NotificationStore
	stdout        io.Writer
	stderr        io.Writer
	now           func() time.Time
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("grupa", stderr)
	server := fs.String("server", getEnv("GROUPORDER_SERVER", "http://localhost:8080"), "server `URL`")
	baseURL := fs.String("base", getEnv("GROUPORDER_BASE_URL", ""), "public `URL` used in share links (default: server)")
	dir := fs.String("dir", "", "device data `directory` for presets and notifications")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if *dir == "" {
		d, err := local.DefaultDir()
		if err != nil {
			slog.Warn("No device directory, presets disabled", "error", err)
			d = os.TempDir()
		}
		*dir = d
	}
	if *baseURL == "" {
		*baseURL = *server
	}

	a := &app{
		remote:        client.New(nil, *server),
		baseURL:       *baseURL,
		presets:       local.NewPresetStore(*dir),
		notifications: local.NewNotificationStore(*dir),
		stdout:        stdout,
		stderr:        stderr,
		now:           time.Now,
	}
	a.announce()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "new":
		err = a.newGroup(ctx)
	case "show":
		err = a.show(ctx, rest)
	case "add":
		err = a.add(ctx, rest)
	case "export":
		err = a.export(ctx, rest)
	case "link":
		err = a.link(ctx, rest)
	case "preset":
		err = a.preset(rest)
	default:
		fmt.Fprintf(stderr, "grupa: unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "grupa: %v\n", err)
		return 1
	}
	return 0
}

// announce prints active feature notifications once, then dismisses them.
func (a *app) announce() {
	now := a.now()
	a.notifications.Cleanup(local.FeatureNotifications, now)
	for _, n := range a.notifications.Active(local.FeatureNotifications, now) {
		fmt.Fprintf(a.stderr, "%s\n%s\n\n", n.Title, n.Message)
		a.notifications.Dismiss(n.ID, now)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
