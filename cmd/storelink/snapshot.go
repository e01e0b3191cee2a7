package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	var (
		url string
		out string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch a global state snapshot",
		Long: `Fetch the full global state snapshot from a running inspector
and write it to stdout or a file as pretty-printed JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(url + "/state")
			if err != nil {
				return fmt.Errorf("fetch snapshot: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch snapshot: unexpected status %s", resp.Status)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}

			var snap map[string]map[string]any
			if err := json.Unmarshal(body, &snap); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			pretty, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			pretty = append(pretty, '\n')

			if out == "" {
				_, err := os.Stdout.Write(pretty)
				return err
			}
			if err := os.WriteFile(out, pretty, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			success("snapshot written to %s (%d stores)", out, len(snap))
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "http://localhost:7600", "Inspector base URL")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")

	return cmd
}
