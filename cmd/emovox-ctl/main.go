package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"emovox/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Session control socket")
	cli.Parse()

	cmd := ipc.CmdTrigger
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}

	if err := ipc.SendCommand(*socket, cmd); err != nil {
		fmt.Println("emovox not running:", err)
		os.Exit(1)
	}
}
