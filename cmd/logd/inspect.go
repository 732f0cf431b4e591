package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/legamerdc/logd"
	"github.com/legamerdc/logd/endpoint"
	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/internal/netutil"
)

type inspectCmd struct {
	expected int
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "print how inherited descriptors would be classified" }
func (*inspectCmd) Usage() string {
	return `inspect [-expected N]:
  Take the descriptors passed by systemd and print each one with its kind,
  local path and role, without serving them.
`
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.expected, "expected", logd.DefaultConfig().ExpectedDescriptors, "expected descriptor count")
}

func (c *inspectCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	descs, err := handoff.Acquire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		for _, d := range descs {
			d.Close()
		}
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FD\tNAME\tKIND\tPATH\tROLE")
	for _, d := range descs {
		path, err := netutil.LocalPath(d.FD())
		if err != nil {
			path, err = netutil.ProcPath(d.FD())
		}
		if err != nil {
			path = "?"
		}
		role := "-"
		if r, err := endpoint.Classify(d); err == nil {
			role = r.String()
		} else {
			role = "error: " + err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.FD(), d.Name(), d.Kind, path, role)
	}
	w.Flush()

	if err := logd.CheckCount(descs, c.expected); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
