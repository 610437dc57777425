package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/matter"
	"github.com/urfave/cli/v3"
)

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Start the node, print every endpoint and attribute, then stop",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := optionsFrom(cmd)
			if err != nil {
				return err
			}

			node, _, err := opts.newNode(os.Stderr, nil)
			if err != nil {
				return err
			}
			startErr := node.Start(ctx)
			defer func() { _ = node.Stop() }()

			printEndpoints(os.Stdout, node)
			fmt.Fprintln(os.Stdout)
			if err := printAttributes(ctx, os.Stdout, node); err != nil {
				return err
			}
			return startErr
		},
	}
}

// printEndpoints writes one line per endpoint.
func printEndpoints(w io.Writer, node *matter.Node) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tENABLED\tDESTROYABLE\tDEVICE TYPES\tCLUSTERS")
	for _, ep := range node.Endpoints() {
		fmt.Fprintf(tw, "%d\t%t\t%t\t%s\t%s\n",
			ep.ID, ep.Enabled, ep.Destroyable, deviceTypes(ep.DeviceTypes), clusterIDs(ep.Clusters))
	}
	_ = tw.Flush()
}

// printAttributes reads every attribute of every registered cluster.
func printAttributes(ctx context.Context, w io.Writer, node *matter.Node) error {
	provider := node.Provider()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tATTRIBUTE\tVALUE")
	for _, path := range node.Registry().Paths() {
		attrs, err := provider.AttributeList(path)
		if err != nil {
			return err
		}
		for _, attr := range attrs {
			if !attr.IsReadable() {
				continue
			}
			attrPath := datamodel.ConcreteAttributePath{Endpoint: path.Endpoint, Cluster: path.Cluster, Attribute: attr.ID}
			v, err := provider.ReadAttribute(ctx, attrPath)
			value := v.String()
			if err != nil {
				value = "error: " + err.Error()
			}
			fmt.Fprintf(tw, "%s\t0x%04X\t%s\n", path, uint32(attr.ID), value)
		}
	}
	return tw.Flush()
}

func deviceTypes(dts []datamodel.DeviceTypeEntry) string {
	s := ""
	for i, dt := range dts {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("0x%04X/%d", uint32(dt.DeviceTypeID), dt.Revision)
	}
	return s
}

func clusterIDs(ids []datamodel.ClusterID) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += id.String()
	}
	return s
}
