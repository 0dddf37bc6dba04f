package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type cliArgs struct {
	cfgPath   string
	logPath   string
	shell     string
	overrides []string
	exprs     []string
	depth     int
}

func parseArgs(args []string, errOut io.Writer) (cliArgs, error) {
	fs := flag.NewFlagSet("objconsole", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cli cliArgs
	var overrides stringSlice
	var exprs stringSlice
	fs.StringVar(&cli.cfgPath, "config", "", "Path to config.toml (default ~/.objconsole/config.toml)")
	fs.StringVar(&cli.logPath, "log", "", "Log file path (overrides log_path)")
	fs.StringVar(&cli.shell, "shell", "", "Shell used by the sh() builtin (default /bin/sh)")
	fs.Var(&overrides, "c", "Override config value key=value (repeatable)")
	fs.Var(&exprs, "e", "Evaluate a line without the terminal UI and print the rows (repeatable)")
	fs.IntVar(&cli.depth, "depth", 0, "With -e, expand result rows this many levels")
	if err := fs.Parse(args); err != nil {
		return cliArgs{}, err
	}
	if cli.depth < 0 {
		return cliArgs{}, fmt.Errorf("invalid -depth %d", cli.depth)
	}
	cli.overrides = append(cli.overrides, overrides...)
	cli.exprs = append(cli.exprs, exprs...)
	cli.exprs = append(cli.exprs, fs.Args()...)
	return cli, nil
}
