package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// update mirrors the inspector's WebSocket message shape.
type update struct {
	Store string         `json:"store"`
	Patch map[string]any `json:"patch"`
}

func watchCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail live store updates",
		Long: `Connect to a running inspector's WebSocket feed and print every
store update as it happens. Interrupt with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
			conn, _, err := dialer.Dial(url+"/ws", nil)
			if err != nil {
				return fmt.Errorf("connect %s: %w", url, err)
			}
			defer conn.Close()

			info("connected to %s, watching for updates...", url)

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			closing := make(chan struct{})
			go func() {
				<-interrupt
				close(closing)
				conn.Close()
			}()

			for {
				var u update
				if err := conn.ReadJSON(&u); err != nil {
					// Normal shutdown path after Ctrl-C.
					select {
					case <-closing:
						return nil
					default:
					}
					return fmt.Errorf("read update: %w", err)
				}

				patch, err := json.Marshal(u.Patch)
				if err != nil {
					patch = []byte("{}")
				}
				fmt.Printf("%s  %-20s %s\n",
					time.Now().Format("15:04:05.000"), u.Store, patch)
			}
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "ws://localhost:7600", "Inspector WebSocket base URL")

	return cmd
}
