package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zeebo/clingy"
)

func main() {
	ok, err := clingy.Environment{
		Name: "tracestat",
		Args: os.Args[1:],
	}.Run(context.Background(), func(cmds clingy.Commands) {
		cmds.New("lines", "list the lines of a trace", new(cmdLines))
		cmds.New("events", "dump the records of a line", new(cmdEvents))
		cmds.New("stats", "compute task, interrupt and counter statistics", new(cmdStats))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	}
	if !ok || err != nil {
		os.Exit(1)
	}
}
