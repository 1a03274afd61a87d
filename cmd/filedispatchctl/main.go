// cmd/filedispatchctl/main.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

const defaultControlAddr = "127.0.0.1:8787"

func controlAddr() string {
	if addr := os.Getenv("FILEDISPATCH_CONTROL_ADDR"); addr != "" {
		return addr
	}
	return defaultControlAddr
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "folders":
		err = cmdFolders(args)
	case "rules":
		err = cmdRules(args)
	case "run":
		err = cmdRun(args)
	case "undo":
		err = cmdUndo(args)
	case "logs":
		err = cmdLogs(args)
	case "settings":
		err = cmdSettings(args)
	case "preset":
		err = cmdPreset(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`filedispatchctl — control the filedispatch daemon

Usage:
  filedispatchctl folders [list|add <path>]
  filedispatchctl rules [list <folder_id>|export <folder_id>|import <folder_id> <file>]
  filedispatchctl run <folder_id> [path...]
  filedispatchctl undo [<entry_id>]
  filedispatchctl logs
  filedispatchctl settings [show|set <key> <value>]
  filedispatchctl preset install <preset_file> <folder_id> [key=value...]`)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func queryDaemon(method, path string, body any) ([]byte, error) {
	url := fmt.Sprintf("http://%s%s", controlAddr(), path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting daemon at %s: %w", controlAddr(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

func cmdFolders(args []string) error {
	if len(args) == 0 || args[0] == "list" {
		data, err := queryDaemon(http.MethodGet, "/api/folders", nil)
		if err != nil {
			return err
		}
		var folders []map[string]any
		if err := json.Unmarshal(data, &folders); err != nil {
			return err
		}
		rows := make([][]string, 0, len(folders))
		for _, f := range folders {
			rows = append(rows, []string{
				fmt.Sprint(f["ID"]), fmt.Sprint(f["Name"]), fmt.Sprint(f["Path"]), fmt.Sprint(f["Enabled"]),
			})
		}
		printTable([]string{"ID", "NAME", "PATH", "ENABLED"}, rows)
		return nil
	}
	if args[0] == "add" && len(args) >= 2 {
		_, err := queryDaemon(http.MethodPost, "/api/folders", map[string]any{"path": args[1], "name": args[1], "enabled": true})
		return err
	}
	return fmt.Errorf("usage: filedispatchctl folders [list|add <path>]")
}

func cmdRules(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: filedispatchctl rules [list|export|import] <folder_id> [file]")
	}
	switch args[0] {
	case "list":
		if len(args) < 2 {
			return fmt.Errorf("usage: filedispatchctl rules list <folder_id>")
		}
		data, err := queryDaemon(http.MethodGet, "/api/rules?folder="+args[1], nil)
		if err != nil {
			return err
		}
		var rules []map[string]any
		if err := json.Unmarshal(data, &rules); err != nil {
			return err
		}
		rows := make([][]string, 0, len(rules))
		for _, r := range rules {
			rows = append(rows, []string{fmt.Sprint(r["ID"]), fmt.Sprint(r["Name"]), fmt.Sprint(r["Enabled"])})
		}
		printTable([]string{"ID", "NAME", "ENABLED"}, rows)
		return nil
	case "export":
		if len(args) < 2 {
			return fmt.Errorf("usage: filedispatchctl rules export <folder_id>")
		}
		data, err := queryDaemon(http.MethodGet, "/api/rules/export?folder="+args[1], nil)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	case "import":
		if len(args) < 3 {
			return fmt.Errorf("usage: filedispatchctl rules import <folder_id> <file>")
		}
		fileData, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		var raw json.RawMessage = fileData
		_, err = queryDaemon(http.MethodPost, "/api/rules/import?folder="+args[1], raw)
		return err
	}
	return fmt.Errorf("unknown rules subcommand: %s", args[0])
}

func cmdRun(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: filedispatchctl run <folder_id> [path...]")
	}
	data, err := queryDaemon(http.MethodPost, "/api/run", map[string]any{
		"folder_id": args[0],
		"paths":     args[1:],
	})
	if err != nil {
		return err
	}
	var matches []map[string]any
	if err := json.Unmarshal(data, &matches); err != nil {
		return err
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{fmt.Sprint(m["Path"]), fmt.Sprint(m["RuleID"]), fmt.Sprint(m["RuleName"])})
	}
	printTable([]string{"PATH", "RULE_ID", "RULE_NAME"}, rows)
	return nil
}

func cmdUndo(args []string) error {
	if len(args) < 1 {
		data, err := queryDaemon(http.MethodGet, "/api/undo", nil)
		if err != nil {
			return err
		}
		var entries []map[string]any
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{fmt.Sprint(e["ID"]), fmt.Sprint(e["ActionType"]), fmt.Sprint(e["CurrentPath"])})
		}
		printTable([]string{"ID", "ACTION", "CURRENT_PATH"}, rows)
		return nil
	}
	_, err := queryDaemon(http.MethodPost, "/api/undo/"+args[0], nil)
	return err
}

func cmdLogs(args []string) error {
	data, err := queryDaemon(http.MethodGet, "/api/logs", nil)
	if err != nil {
		return err
	}
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{fmt.Sprint(e["CreatedAt"]), fmt.Sprint(e["Status"]), fmt.Sprint(e["Error"])})
	}
	printTable([]string{"TIME", "STATUS", "ERROR"}, rows)
	return nil
}

func cmdSettings(args []string) error {
	if len(args) == 0 || args[0] == "show" {
		data, err := queryDaemon(http.MethodGet, "/api/settings", nil)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	if args[0] == "set" && len(args) >= 3 {
		current, err := queryDaemon(http.MethodGet, "/api/settings", nil)
		if err != nil {
			return err
		}
		var settings map[string]any
		if err := json.Unmarshal(current, &settings); err != nil {
			return err
		}
		settings[args[1]] = args[2]
		_, err = queryDaemon(http.MethodPut, "/api/settings", settings)
		return err
	}
	return fmt.Errorf("usage: filedispatchctl settings [show|set <key> <value>]")
}

func cmdPreset(args []string) error {
	if len(args) < 3 || args[0] != "install" {
		return fmt.Errorf("usage: filedispatchctl preset install <preset_file> <folder_id> [key=value...]")
	}
	variables := map[string]string{}
	for _, kv := range args[3:] {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid variable assignment %q, want key=value", kv)
		}
		variables[parts[0]] = parts[1]
	}
	_, err := queryDaemon(http.MethodPost, "/api/presets/install", map[string]any{
		"preset_path": args[1],
		"folder_id":   args[2],
		"variables":   variables,
	})
	return err
}
