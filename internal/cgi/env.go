// Package cgi runs dynamic-content programs: it builds the per-invocation
// environment, starts the program with its standard output bound to the
// client connection and reaps it when it exits.
package cgi

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	EnvQueryString    = "QUERY_STRING"
	EnvRequestMethod  = "REQUEST_METHOD"
	EnvContentLength  = "CONTENT_LENGTH"
	EnvServerProtocol = "SERVER_PROTOCOL"
	EnvServerSoftware = "SERVER_SOFTWARE"
	EnvScriptName     = "SCRIPT_NAME"
	EnvRemoteAddr     = "REMOTE_ADDR"
)

// Invocation describes one run of a dynamic-content program.
type Invocation struct {
	Program    string // path of the executable
	ScriptName string // path component of the request target
	Args       string // query string, or the request body for POST
	Method     string
	Protocol   string
	Software   string
	RemoteAddr string
}

// Env returns the key/value pairs handed to the program for inv.
func Env(inv Invocation) map[string]string {
	env := map[string]string{
		EnvQueryString:   inv.Args,
		EnvRequestMethod: inv.Method,
	}
	if inv.Method == "POST" {
		env[EnvContentLength] = strconv.Itoa(len(inv.Args))
	}
	if inv.Protocol != "" {
		env[EnvServerProtocol] = inv.Protocol
	}
	if inv.Software != "" {
		env[EnvServerSoftware] = inv.Software
	}
	if inv.ScriptName != "" {
		env[EnvScriptName] = inv.ScriptName
	}
	if inv.RemoteAddr != "" {
		env[EnvRemoteAddr] = inv.RemoteAddr
	}
	return env
}

// environ merges env over base (KEY=VALUE entries). Keys from env replace
// any inherited entry with the same name.
func environ(base []string, env map[string]string) []string {
	out := make([]string, 0, len(base)+len(env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, override := env[key]; override {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// processEnviron is the server's own environment plus env.
func processEnviron(env map[string]string) []string {
	return environ(os.Environ(), env)
}
