// matter-cluster-host runs a Matter node's server clusters from a device
// configuration file.
//
// Usage:
//
//	matter-cluster-host --config device.yaml [--state state.cbor] <command>
//
// Commands:
//
//	run      Start the node and block until interrupted
//	inspect  Start the node, print every endpoint and attribute, then stop
//	shell    Start the node with an interactive shell
//
// Example:
//
//	matter-cluster-host --config light.toml --state /var/lib/light.cbor run --metrics-addr :9090
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/matter"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const name = "matter-cluster-host"

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Host Matter server clusters from a device configuration",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "device configuration file (.yaml, .yml or .toml)",
				Sources:  cli.EnvVars("MATTER_HOST_CONFIG"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "state",
				Usage:   "CBOR state file for persisted attributes (empty = in-memory)",
				Sources: cli.EnvVars("MATTER_HOST_STATE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (trace, debug, info, warn, error, disabled)",
				Value: "info",
			},
		},
		Commands: []*cli.Command{
			runCmd(),
			inspectCmd(),
			shellCmd(),
		},
	}
}

// hostOptions are the global settings every command builds its node from.
type hostOptions struct {
	configPath string
	statePath  string
	logLevel   logging.LogLevel
}

func optionsFrom(cmd *cli.Command) (hostOptions, error) {
	level, err := parseLogLevel(cmd.String("log-level"))
	if err != nil {
		return hostOptions{}, err
	}
	return hostOptions{
		configPath: cmd.String("config"),
		statePath:  cmd.String("state"),
		logLevel:   level,
	}, nil
}

// newNode loads the device configuration and builds a node logging to w.
func (o hostOptions) newNode(w io.Writer, reg prometheus.Registerer) (*matter.Node, logging.LoggerFactory, error) {
	device, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = o.logLevel
	lf.Writer = w

	log := lf.NewLogger("host")
	node, err := matter.NewNode(matter.NodeConfig{
		Device:            device,
		StatePath:         o.statePath,
		LoggerFactory:     lf,
		MetricsRegisterer: reg,
		OnStateChanged: func(state matter.NodeState) {
			log.Infof("node state: %s", state)
		},
		OnOffChanged: func(ep datamodel.EndpointID, on bool) {
			log.Infof("endpoint %d on/off changed: %t", ep, on)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create node: %w", err)
	}
	return node, lf, nil
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "trace":
		return logging.LogLevelTrace, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "info", "":
		return logging.LogLevelInfo, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "error":
		return logging.LogLevelError, nil
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
	}
}
