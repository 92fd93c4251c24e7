// Package config loads application settings from the environment, with
// optional .env file support for local development. Every setting has a
// default; only validation failures make Load return an error.
package config
