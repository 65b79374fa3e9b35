package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/lorekeep/internal/drilldown"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/registry"
)

// auditReport is the output of the audit command.
type auditReport struct {
	Entities int                         `json:"entities"`
	Flagged  map[string]integrity.Report `json:"flagged"`
	Cycles   [][]string                  `json:"cycles"`
	Dangling map[string][]string         `json:"dangling"`
}

func (a auditReport) clean() bool {
	return len(a.Flagged) == 0 && len(a.Cycles) == 0 && len(a.Dangling) == 0
}

func readRegistry(cmd *cli.Command) (*registry.Registry, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, fmt.Errorf("registry file argument is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return registry.Decode(data)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func audit(r *registry.Registry) auditReport {
	return auditReport{
		Entities: r.Len(),
		Flagged:  integrity.Flagged(integrity.IntegrityMap(r)),
		Cycles:   integrity.FindHierarchyCycles(r),
		Dangling: integrity.DanglingReferences(r),
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Check a registry file for hierarchy loops and dangling references",
		ArgsUsage: "<registry.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit with an error when anything is flagged",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			r, err := readRegistry(cmd)
			if err != nil {
				return err
			}
			rep := audit(r)
			if err := writeIndented(os.Stdout, rep); err != nil {
				return err
			}
			if cmd.Bool("strict") && !rep.clean() {
				return fmt.Errorf("audit: %d flagged links, %d cycles, %d entities with dangling references",
					len(rep.Flagged), len(rep.Cycles), len(rep.Dangling))
			}
			return nil
		},
	}
}

func atoiFlag(cmd *cli.Command, name string) (int, error) {
	s := cmd.String(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return n, nil
}

func drilldownOptions(cmd *cli.Command) (drilldown.Options, error) {
	budget, err := atoiFlag(cmd, "budget")
	if err != nil {
		return drilldown.Options{}, err
	}
	depth, err := atoiFlag(cmd, "depth")
	if err != nil {
		return drilldown.Options{}, err
	}
	return drilldown.Options{
		FocusID:         cmd.String("focus"),
		NodeBudget:      budget,
		MaxDepth:        depth,
		ShowAuthorNotes: cmd.Bool("author-notes"),
	}, nil
}

func drilldownCommand() *cli.Command {
	return &cli.Command{
		Name:      "drilldown",
		Usage:     "Print the materialized view around a focus entity",
		ArgsUsage: "<registry.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "focus", Usage: "Focus id; empty shows the top level"},
			&cli.StringFlag{Name: "budget", Usage: "Maximum number of entities"},
			&cli.StringFlag{Name: "depth", Usage: "Maximum traversal depth"},
			&cli.BoolFlag{Name: "author-notes", Usage: "Include author notes"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			r, err := readRegistry(cmd)
			if err != nil {
				return err
			}
			opts, err := drilldownOptions(cmd)
			if err != nil {
				return err
			}
			view := drilldown.Materialize(r, opts)
			return writeIndented(os.Stdout, map[string]any{
				"nodes": view,
				"edges": drilldown.Edges(view, r),
			})
		},
	}
}
