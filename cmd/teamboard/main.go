package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"teamboard/internal/cli"
)

// taskID reports whether s looks like a team task id: "12" or "#12".
func taskID(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return "", false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return "", false
	}
	return s, true
}

// rewriteDirectTaskLookupArgs makes `teamboard <task-id>` work like
// `teamboard tasks show <task-id>`. Cobra treats the first non-flag token as
// a subcommand, so argv is rewritten before parsing. Persistent flags may come
// first, so this looks for the first positional token rather than argv[1].
func rewriteDirectTaskLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--api-url":         true,
		"--session-backend": true,
		"--timeout":         true,
		"--log-level":       true,
		"--format":          true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
		"--debug":  true,
	}

	rewrite := func(i int, id string) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "show", id)
		return append(out, argv[i+1:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				if id, ok := taskID(argv[i+1]); ok {
					return rewrite(i+1, id)
				}
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}
		if id, ok := taskID(a); ok {
			return rewrite(i, id)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectTaskLookupArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
