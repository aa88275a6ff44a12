/*
go-cmmn is a CLI for running and interacting with an embedded case engine.

The engine is backed by PostgreSQL, when a database URL is configured. Otherwise an in-memory engine is used.

Usage:

	go-cmmn [flags]
	go-cmmn [command]

Available Commands:

	batch          Create and query batches
	case-instance  Create and query case instances
	completion     Generate the autocompletion script for the specified shell
	definition     Query definitions
	deployment     Create and query deployments
	help           Help about any command
	job            Execute and query jobs
	operation-log  Query the operation log
	run            Run the engine's job executor until interrupted
	scope          Manage and query scopes
	set-time       Set the engine's time
	task           Query human tasks
	validate       Validate a case model
	variable       Manage and query variables
	version        Show version

Flags:

	    --config string      Path to a YAML configuration file
	    --debug              Enable debug logging
	-h, --help               help for go-cmmn
	    --tenant strings     Tenants, the user is member of
	    --user-id string     ID of the user, performing a command
	    --worker-id string   Worker ID (default "go-cmmn")

Use "go-cmmn [command] --help" for more information about a command.
*/
package main

import (
	"os"

	"github.com/gclaussn/go-cmmn/cli"
)

var (
	version = "unknown-version"
)

func main() {
	cli := cli.New(version)
	os.Exit(cli.Execute())
}
