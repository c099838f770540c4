package main

import (
	"fmt"
	"os"

	"github.com/craft-tools/mcman-go/pkg/daemon"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	ConfigFile string `long:"config" short:"c" description:"path to the daemon configuration file" default:"mcmand.yaml"`
	Validate   bool   `long:"validate" description:"validate the configuration file and exit"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	if opts.Validate {
		if err := daemon.ValidateConfigFile(opts.ConfigFile); err != nil {
			fmt.Printf("Configuration is invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
		return
	}

	if err := daemon.Run(opts.ConfigFile); err != nil {
		fmt.Printf("Daemon failed: %v\n", err)
		os.Exit(1)
	}
}
