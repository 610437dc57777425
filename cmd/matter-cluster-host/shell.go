package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/matter"
	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"
)

func shellCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start the node with an interactive shell",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := optionsFrom(cmd)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "host> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			node, _, err := opts.newNode(rl.Stderr(), nil)
			if err != nil {
				return err
			}
			if err := node.Start(ctx); err != nil {
				fmt.Fprintf(rl.Stderr(), "start: %v\n", err)
			}
			defer func() { _ = node.Stop() }()

			s := &shell{node: node, rl: rl, out: rl.Stdout()}
			s.run(ctx)
			return nil
		},
	}
}

// shell drives a node from readline input.
type shell struct {
	node *matter.Node
	rl   *readline.Instance
	out  io.Writer
}

func (s *shell) run(ctx context.Context) {
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]
		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			return
		}
		if err := s.exec(ctx, cmd, args); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		s.printHelp()
		return nil
	case "init":
		return s.cmdInit(args)
	case "shutdown":
		return s.cmdShutdown(args)
	case "lookup":
		return s.cmdLookup(args)
	case "read", "r":
		return s.cmdRead(ctx, args)
	case "list", "ls":
		printEndpoints(s.out, s.node)
		return nil
	case "toggle":
		return s.cmdToggle(args)
	case "add":
		return s.cmdAdd(args)
	case "remove", "rm":
		return s.cmdRemove(args)
	default:
		return fmt.Errorf("unknown command %q (type 'help' for commands)", cmd)
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, `
Commands:
  init <ep>                    - Enable an endpoint (cluster init events)
  shutdown <ep> [removed]      - Disable an endpoint, or remove it
  lookup <ep> <cluster>        - Show the handler registered at a path
  read <ep> <cluster> <attr>   - Read an attribute
  list                         - List endpoints
  toggle <ep>                  - Toggle the On/Off cluster
  add <cluster,...> [devtype]  - Add a destroyable endpoint
  remove <ep>                  - Remove a destroyable endpoint
  help                         - Show this help
  quit                         - Exit

Numbers accept decimal or 0x-prefixed hex.`)
}

func (s *shell) cmdInit(args []string) error {
	ep, err := endpointArg(args, 0)
	if err != nil {
		return err
	}
	return s.node.EnableEndpoint(ep)
}

func (s *shell) cmdShutdown(args []string) error {
	ep, err := endpointArg(args, 0)
	if err != nil {
		return err
	}
	if len(args) > 1 && strings.EqualFold(args[1], "removed") {
		return s.node.RemoveEndpoint(ep)
	}
	return s.node.DisableEndpoint(ep)
}

func (s *shell) cmdLookup(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: lookup <ep> <cluster>")
	}
	ep, err := endpointArg(args, 0)
	if err != nil {
		return err
	}
	cl, err := parseNumber(args[1], 32)
	if err != nil {
		return err
	}

	path := datamodel.ConcreteClusterPath{Endpoint: ep, Cluster: datamodel.ClusterID(cl)}
	c, err := s.node.Registry().Lookup(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s: %T feature map 0x%08X data version %d\n", path, c, c.FeatureMap(), c.DataVersion(path))
	return nil
}

func (s *shell) cmdRead(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: read <ep> <cluster> <attr>")
	}
	ep, err := endpointArg(args, 0)
	if err != nil {
		return err
	}
	cl, err := parseNumber(args[1], 32)
	if err != nil {
		return err
	}
	attr, err := parseNumber(args[2], 32)
	if err != nil {
		return err
	}

	path := datamodel.ConcreteAttributePath{
		Endpoint:  ep,
		Cluster:   datamodel.ClusterID(cl),
		Attribute: datamodel.AttributeID(attr),
	}
	v, err := s.node.Provider().ReadAttribute(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %s\n", path, v)
	return nil
}

func (s *shell) cmdToggle(args []string) error {
	ep, err := endpointArg(args, 0)
	if err != nil {
		return err
	}
	return s.node.Toggle(ep)
}

func (s *shell) cmdAdd(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: add <cluster,...> [devtype]")
	}

	epCfg := config.EndpointConfig{Destroyable: true}
	for _, field := range strings.Split(args[0], ",") {
		id, err := parseNumber(field, 32)
		if err != nil {
			return err
		}
		epCfg.Clusters = append(epCfg.Clusters, config.ClusterConfig{ID: uint32(id)})
	}
	if len(args) > 1 {
		dt, err := parseNumber(args[1], 32)
		if err != nil {
			return err
		}
		epCfg.DeviceTypes = []config.DeviceTypeConfig{{ID: uint32(dt), Revision: 1}}
	}

	id, err := s.node.AddEndpoint(epCfg)
	if id != 0 {
		fmt.Fprintf(s.out, "added endpoint %d\n", id)
	}
	return err
}

func (s *shell) cmdRemove(args []string) error {
	ep, err := endpointArg(args, 0)
	if err != nil {
		return err
	}
	return s.node.RemoveEndpoint(ep)
}

func endpointArg(args []string, i int) (datamodel.EndpointID, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing endpoint argument")
	}
	v, err := parseNumber(args[i], 16)
	if err != nil {
		return 0, err
	}
	return datamodel.EndpointID(v), nil
}

func parseNumber(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
