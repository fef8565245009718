// Package bootstrap registers the stdio tool server with installed agent
// CLIs (codex, claude, gemini) so they can call it over MCP.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var lookPath = exec.LookPath

// Options control CLI bootstrap behavior.
type Options struct {
	ConfigPath string
	Scope      string
	ServerName string
	ServeCmd   string
	All        bool
	Codex      bool
	Claude     bool
	Gemini     bool
	DryRun     bool
}

// Command captures an executable command.
type Command struct {
	Name string
	Args []string
}

// Runner executes system commands.
type Runner interface {
	Run(name string, args ...string) error
}

// OSRunner executes commands via os/exec.
type OSRunner struct{}

func (OSRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// cliTarget describes how one agent CLI registers an MCP server. The
// remove/add arg shapes differ slightly per CLI, so each target carries
// its own builders.
type cliTarget struct {
	name      string
	wanted    func(Options) bool
	removeFor func(Options) []string
	addFor    func(Options, []string) []string
}

var cliTargets = []cliTarget{
	{
		name:   "codex",
		wanted: func(o Options) bool { return o.All || o.Codex },
		removeFor: func(o Options) []string {
			return []string{"mcp", "remove", o.ServerName}
		},
		addFor: func(o Options, serve []string) []string {
			return append([]string{"mcp", "add", o.ServerName, "--"}, serve...)
		},
	},
	{
		name:   "claude",
		wanted: func(o Options) bool { return o.All || o.Claude },
		removeFor: func(o Options) []string {
			return []string{"mcp", "remove", "-s", o.Scope, o.ServerName}
		},
		addFor: func(o Options, serve []string) []string {
			return append([]string{"mcp", "add", "-s", o.Scope, o.ServerName, "--"}, serve...)
		},
	},
	{
		name:   "gemini",
		wanted: func(o Options) bool { return o.All || o.Gemini },
		removeFor: func(o Options) []string {
			return []string{"mcp", "remove", "-s", o.Scope, o.ServerName}
		},
		addFor: func(o Options, serve []string) []string {
			// gemini takes the serve command positionally, no "--" separator.
			return append([]string{"mcp", "add", "-s", o.Scope, o.ServerName}, serve...)
		},
	},
}

// Bootstrap configures MCP servers for installed agent CLIs.
func Bootstrap(logger *log.Logger, opts Options, runner Runner) error {
	if runner == nil {
		runner = OSRunner{}
	}
	opts = withDefaults(opts)

	cmds, err := BuildCommands(opts)
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		return errors.New("no bootstrap commands generated")
	}

	audit, auditPath, err := openAuditLog()
	if err != nil {
		return err
	}
	defer audit.Close()
	fmt.Fprintf(audit, "# toolbelt-mcp bootstrap %s\n", time.Now().UTC().Format(time.RFC3339))

	for _, c := range cmds {
		line := c.Name + " " + strings.Join(c.Args, " ")
		fmt.Fprintln(audit, line)
		logger.Info("bootstrap command", "cmd", line, "dry_run", opts.DryRun)
		if opts.DryRun {
			continue
		}
		if err := runner.Run(c.Name, c.Args...); err != nil {
			// remove may fail when missing; ignore those to keep idempotency smooth.
			if strings.Contains(line, " mcp remove ") {
				logger.Debug("ignoring remove error", "cmd", line, "error", err)
				continue
			}
			return fmt.Errorf("run %q: %w", line, err)
		}
	}

	logger.Info("bootstrap complete", "audit_log", auditPath)
	return nil
}

// BuildCommands builds a deterministic bootstrap command list.
func BuildCommands(opts Options) ([]Command, error) {
	opts = withDefaults(opts)
	if opts.Scope != "user" && opts.Scope != "project" {
		return nil, fmt.Errorf("invalid scope %q (expected user or project)", opts.Scope)
	}
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return nil, errors.New("config path is required")
	}

	serveCmd := strings.Fields(opts.ServeCmd)
	if len(serveCmd) == 0 {
		return nil, errors.New("serve command is required")
	}
	serveCmd = append(serveCmd, "--config", opts.ConfigPath)

	cmds := make([]Command, 0, 2*len(cliTargets))
	for _, target := range cliTargets {
		if !target.wanted(opts) || !commandExists(target.name) {
			continue
		}
		cmds = append(cmds,
			Command{Name: target.name, Args: target.removeFor(opts)},
			Command{Name: target.name, Args: target.addFor(opts, serveCmd)},
		)
	}
	return cmds, nil
}

func withDefaults(opts Options) Options {
	if opts.Scope == "" {
		opts.Scope = "user"
	}
	if opts.ServerName == "" {
		opts.ServerName = "toolbelt"
	}
	if strings.TrimSpace(opts.ServeCmd) == "" {
		opts.ServeCmd = "toolbelt-mcp mcp"
	}
	if !opts.All && !opts.Codex && !opts.Claude && !opts.Gemini {
		opts.All = true
	}
	return opts
}

func commandExists(name string) bool {
	_, err := lookPath(name)
	return err == nil
}

func openAuditLog() (*os.File, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(home, ".toolbelt-mcp", "bootstrap-last.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}
