package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/legamerdc/logd/client"
)

type sendCmd struct {
	socket string
	stream bool
}

func (*sendCmd) Name() string     { return "send" }
func (*sendCmd) Synopsis() string { return "send a message to a running daemon" }
func (*sendCmd) Usage() string {
	return `send [-socket PATH] [-stream] [message...]:
  Send the arguments as one message, or each line of stdin when no
  arguments are given.
`
}

func (c *sendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.socket, "socket", "/run/systemd/journal/dev-log", "socket path")
	f.BoolVar(&c.stream, "stream", false, "connect to a stream socket instead of a datagram socket")
}

func (c *sendCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	network := "unixgram"
	if c.stream {
		network = "unix"
	}
	cl, err := client.Dial(network, c.socket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		return subcommands.ExitFailure
	}
	defer cl.Close()

	if f.NArg() > 0 {
		if err := cl.Send([]byte(strings.Join(f.Args(), " "))); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		if err := cl.Send(sc.Bytes()); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
