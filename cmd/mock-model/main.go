// Package main implements a mock model binary for development and
// integration tests. It honors the external-process contract the gateway
// expects (`-p <prompt> --output-format <format>`, `--version`), routing
// prompts to JSON fixture files by substring match. This removes the need
// for a real model binary, making tests fast, deterministic, and offline.
//
// Usage:
//
//	mock-model -p "categorize this" --output-format json
//	mock-model -fixtures ./fixtures -p "..." --output-format json
//
// A fixtures directory may carry a routes.json of the form
// {"routes": [{"contains": "categorize", "fixture": "category"}]}; the
// first route whose substring appears in the prompt selects the fixture.
// Sequential fixtures: when numbered files exist ("dedup.1.json",
// "dedup.2.json"), the Nth call for that fixture returns the Nth file,
// tracked in a counter file next to the fixtures. After exhausting the
// numbered files, the base "dedup.json" repeats. Without a match the
// prompt is echoed back inside a result envelope.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const version = "mock-model 0.1.0"

type routesFile struct {
	Routes []route `json:"routes"`
}

type route struct {
	Contains string `json:"contains"`
	Fixture  string `json:"fixture"`
}

func main() {
	var (
		prompt       string
		outputFormat string
		fixturesDir  string
		showVersion  bool
	)

	flag.StringVar(&prompt, "p", "", "prompt")
	flag.StringVar(&outputFormat, "output-format", "text", "output format (json, text, stream-json)")
	flag.StringVar(&fixturesDir, "fixtures", os.Getenv("MOCK_MODEL_FIXTURES"), "fixtures directory")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion || (len(os.Args) > 1 && os.Args[1] == "--version") {
		fmt.Println(version)
		return
	}

	if prompt == "" {
		fmt.Fprintln(os.Stderr, "mock-model: missing -p <prompt>")
		os.Exit(1)
	}

	body, err := respond(fixturesDir, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mock-model: %v\n", err)
		os.Exit(1)
	}

	switch outputFormat {
	case "json":
		// Wrap in the result envelope the gateway knows how to unwrap.
		envelope, _ := json.Marshal(map[string]string{"result": body})
		fmt.Println(string(envelope))
	default:
		fmt.Println(body)
	}
}

// respond picks the response body for a prompt: a routed fixture when one
// matches, else an echo.
func respond(dir, prompt string) (string, error) {
	if dir == "" {
		return echo(prompt), nil
	}

	routes, err := loadRoutes(dir)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(prompt)
	for _, r := range routes {
		if strings.Contains(lower, strings.ToLower(r.Contains)) {
			return readFixture(dir, r.Fixture)
		}
	}
	return echo(prompt), nil
}

func loadRoutes(dir string) ([]route, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "routes.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f routesFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse routes.json: %w", err)
	}
	return f.Routes, nil
}

// readFixture returns the next response for a fixture name, honoring
// numbered sequential files before falling back to the base file.
func readFixture(dir, name string) (string, error) {
	call := nextCall(dir, name)
	numbered := filepath.Join(dir, fmt.Sprintf("%s.%d.json", name, call))
	if raw, err := os.ReadFile(numbered); err == nil {
		return string(raw), nil
	}

	raw, err := os.ReadFile(filepath.Join(dir, name+".json"))
	if err != nil {
		return "", fmt.Errorf("fixture %s: %w", name, err)
	}
	return string(raw), nil
}

// nextCall increments the per-fixture call counter kept on disk, so
// sequential fixtures work across separate process invocations.
func nextCall(dir, name string) int {
	path := filepath.Join(dir, "."+name+".calls")
	n := 0
	if raw, err := os.ReadFile(path); err == nil {
		n, _ = strconv.Atoi(strings.TrimSpace(string(raw)))
	}
	n++
	_ = os.WriteFile(path, []byte(strconv.Itoa(n)), 0o644)
	return n
}

func echo(prompt string) string {
	if len(prompt) > 200 {
		prompt = prompt[:200]
	}
	return fmt.Sprintf("mock response for: %s", prompt)
}
