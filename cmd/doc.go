// Package cmd implements the command-line interface for senderwatch.
//
// This package provides the following commands:
//   - serve: Start the MCP server with the sender, thread and label tools
//   - stats: Print how many messages a sender sent per day, week or month
//   - auto-archive: Create, verify or delete the auto-archive filter of a sender
//   - version: Display version information
//
// All commands read the configuration file (--config) after loading an
// optional .env file from the working directory.
package cmd
