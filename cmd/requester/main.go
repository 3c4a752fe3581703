package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"liftctl/src/config"
	"liftctl/src/network"
	"liftctl/src/requester"
	"liftctl/src/utils"
)

func main() {
	addr := flag.String("addr", fmt.Sprintf("localhost:%d", config.DefaultPort), "controller address")
	scenarioPath := flag.String("scenario", "", "YAML scenario file")
	node := flag.Uint("node", 1, "requester node address")
	command := flag.String("cmd", "call", "single request: call or go")
	floor := flag.Uint("floor", 0, "single request: floor")
	direction := flag.String("dir", "up", "single request: up or down, CALL only")
	timeout := flag.Duration("timeout", 30*time.Second, "wait for each reply at most this long")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fatal(err)
	}
	if _, err := utils.InitLogger(level, ""); err != nil {
		fatal(err)
	}

	sc := requester.Scenario{
		Node:       uint16(*node),
		Controller: network.NodeAddress,
		Steps: []requester.Step{{
			ID:        1,
			Command:   *command,
			Floor:     uint8(*floor),
			Direction: *direction,
		}},
	}
	if strings.EqualFold(*command, "go") {
		sc.Steps[0].Direction = ""
	}
	if *scenarioPath != "" {
		if sc, err = requester.LoadScenario(*scenarioPath); err != nil {
			fatal(err)
		}
		if sc.Node == 0 {
			sc.Node = uint16(*node)
		}
	}

	client, err := requester.Dial(*addr, requester.Options{
		Node:       sc.Node,
		Controller: sc.Controller,
		Timeout:    *timeout,
	})
	if err != nil {
		fatal(err)
	}
	defer client.Close()

	results, err := client.Run(sc)
	for _, r := range results {
		slog.Info("Step",
			"id", r.Step.ID,
			"command", r.Step.Command,
			"floor", r.Step.Floor,
			"state", r.State,
			"acked", r.Acked,
			"reached", r.Reached)
	}
	if err != nil {
		fatal(err)
	}
	fmt.Printf("All %d requests reached (%v)\n", len(results), reachedFloors(results))
}

func reachedFloors(results []requester.Result) []uint8 {
	floors := make([]uint8, 0, len(results))
	for _, r := range results {
		if r.State == requester.Reached {
			floors = append(floors, r.Step.Floor)
		}
	}
	return floors
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "requester:", err)
	os.Exit(1)
}
