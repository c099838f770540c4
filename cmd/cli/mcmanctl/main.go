package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/craft-tools/mcman-go/pkg/control"
	"github.com/craft-tools/mcman-go/pkg/daemon"
	"github.com/craft-tools/mcman-go/pkg/domain"
	"github.com/craft-tools/mcman-go/pkg/logging"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	SocketFile string `long:"socket" description:"path to the daemon control socket"`
	Timeout    int    `long:"timeout" description:"request timeout in seconds" default:"60"`

	Args struct {
		Command string   `positional-arg-name:"command" description:"list | start | stop | status | send | version | shutdown"`
		Rest    []string `positional-arg-name:"args"`
	} `positional-args:"yes"`
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

	socketFile := opts.SocketFile
	if socketFile == "" {
		socketFile = daemon.DefaultSocketFile()
	}

	// CLI output is plain prints; the gateway's logger stays silent
	logger := logging.NewLogger("", logging.LogFuncs{})

	gateway, err := control.NewClientGateway(socketFile, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot connect to daemon at %s: %v\n", socketFile, err)
		os.Exit(1)
	}
	defer gateway.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.Timeout)*time.Second)
	defer cancel()

	if err := run(ctx, gateway, opts.Args.Command, opts.Args.Rest); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, gateway *control.ClientGateway, command string, args []string) error {
	switch command {
	case "", "list":
		statuses, err := gateway.ListUnits(ctx)
		if err != nil {
			return err
		}
		printUnitList(statuses)
		return nil

	case "start":
		name, err := unitNameArg(command, args)
		if err != nil {
			return err
		}
		if err := gateway.StartUnit(ctx, name); err != nil {
			return err
		}
		fmt.Printf("Unit '%s' started\n", name)
		return nil

	case "stop":
		name, err := unitNameArg(command, args)
		if err != nil {
			return err
		}
		if err := gateway.StopUnit(ctx, name); err != nil {
			return err
		}
		fmt.Printf("Unit '%s' stopped\n", name)
		return nil

	case "status":
		name, err := unitNameArg(command, args)
		if err != nil {
			return err
		}
		status, err := gateway.StatusUnit(ctx, name)
		if err != nil {
			return err
		}
		printUnitStatus(status)
		return nil

	case "send":
		if len(args) < 2 {
			return fmt.Errorf("usage: send <unit> <command...>")
		}
		name := args[0]
		consoleCommand := strings.Join(args[1:], " ")
		if err := gateway.SendCommand(ctx, name, consoleCommand); err != nil {
			return err
		}
		fmt.Printf("Sent to '%s': %s\n", name, consoleCommand)
		return nil

	case "version":
		version, err := gateway.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil

	case "shutdown":
		if err := gateway.ShutdownDaemon(ctx); err != nil {
			return err
		}
		fmt.Println("Daemon is shutting down")
		return nil

	default:
		return fmt.Errorf("unknown command '%s' (expected list | start | stop | status | send | version | shutdown)", command)
	}
}

func unitNameArg(command string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s <unit>", command)
	}
	return args[0], nil
}

func printUnitList(statuses []domain.UnitStatus) {
	if len(statuses) == 0 {
		fmt.Println("No units configured")
		return
	}
	fmt.Printf("%-24s %-8s %-10s %s\n", "NAME", "KIND", "STATE", "PID")
	for _, status := range statuses {
		pid := "-"
		if status.PID != 0 {
			pid = fmt.Sprintf("%d", status.PID)
		}
		fmt.Printf("%-24s %-8s %-10s %s\n", status.Name, status.Kind, status.State, pid)
	}
}

func printUnitStatus(status domain.UnitStatus) {
	fmt.Printf("Unit:  %s\n", status.Name)
	fmt.Printf("Kind:  %s\n", status.Kind)
	fmt.Printf("State: %s\n", status.State)
	if status.PID != 0 {
		fmt.Printf("PID:   %d\n", status.PID)
	}
	if status.ExitCode != nil {
		fmt.Printf("Exit:  %d\n", *status.ExitCode)
	}
}
