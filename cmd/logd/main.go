// Command logd 是由 systemd socket activation 启动的日志守护进程。
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&serveCmd{}, "")
	subcommands.Register(&inspectCmd{}, "debug")
	subcommands.Register(&sendCmd{}, "debug")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
