// Package config loads senderwatch configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (default ~/.config/senderwatch/config.yaml) and SENDERWATCH_* environment
// variables. An optional .env file is loaded into the environment first.
package config
