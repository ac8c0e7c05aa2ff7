/*
Package main is the entry point for the tool-router CLI.

tool-router decides, per request, whether a confident plan of workspace tool
calls can run directly or whether the turn belongs to a local model.

Usage:

	tool-router [command]

Available Commands:

	decide      Show how a request would be routed
	run         Process one request
	chat        Start an interactive session
	budget      Show the context-window split for a request
	tools       List or search the workspace tools
	stats       Rank tools by recent usage
	serve       Run the MCP server (stdio transport)
	config      Inspect or reset the configuration file
	version     Show version information
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/tool-router/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
