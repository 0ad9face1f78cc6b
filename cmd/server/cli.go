package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Version is the server build version, overridable at link time.
var Version = "dev"

// RunCLI handles subcommand execution against a running server's admin API.
// Returns true if a subcommand was handled.
func RunCLI(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "version":
		fmt.Printf("asciisfu server %s\n", Version)
		return true
	case "status":
		return cliStatus(args[1:])
	case "calls":
		return cliCalls(args[1:])
	default:
		return false
	}
}

// adminAddrFlag returns the value of the first "-admin-addr=<addr>" argument
// in args, at any position, falling back to localhost:8082.
func adminAddrFlag(args []string) string {
	const prefix = "-admin-addr="
	for _, a := range args {
		if len(a) > len(prefix) && a[:len(prefix)] == prefix {
			return a[len(prefix):]
		}
	}
	return "localhost:8082"
}

func cliStatus(args []string) bool {
	addr := adminAddrFlag(args)
	body, err := fetchJSON(addr, "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error contacting admin API at %s: %v\n", addr, err)
		os.Exit(1)
	}
	fmt.Println(string(body))
	return true
}

func cliCalls(args []string) bool {
	addr := adminAddrFlag(args)
	body, err := fetchJSON(addr, "/api/calls")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error contacting admin API at %s: %v\n", addr, err)
		os.Exit(1)
	}
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return true
	}
	fmt.Println(string(body))
	return true
}

func fetchJSON(addr, path string) ([]byte, error) {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://" + addr + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
