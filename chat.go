package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nodecrypt/nodecrypt/lib/client"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join a channel from the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("url", "ws://localhost:8787/ws", "relay WebSocket URL")
	chatCmd.Flags().String("user", "", "display name (required)")
	chatCmd.Flags().String("channel", "", "channel to join (required)")
	chatCmd.Flags().String("password", "", "room password (required)")
	chatCmd.MarkFlagRequired("user")
	chatCmd.MarkFlagRequired("channel")
	chatCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	user, _ := cmd.Flags().GetString("user")
	channel, _ := cmd.Flags().GetString("channel")
	password, _ := cmd.Flags().GetString("password")

	c, err := client.Dial(client.Config{
		URL:      url,
		UserName: user,
		Channel:  channel,
		Password: password,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go c.Run(ctx)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			// "/msg <client_id> <text>" sends privately.
			if rest, ok := strings.CutPrefix(line, "/msg "); ok {
				target, text, found := strings.Cut(rest, " ")
				if !found {
					fmt.Println("usage: /msg <client_id> <text>")
					continue
				}
				if err := c.SendPrivateText(target, text); err != nil {
					fmt.Printf("! %v\n", err)
				}
				continue
			}
			if err := c.SendText(line); err != nil {
				fmt.Printf("! %v\n", err)
			}
		}
		c.Close()
	}()

	for ev := range c.Events() {
		switch ev.Type {
		case client.EventJoined:
			fmt.Printf("* joined %s as %s (%d peers)\n", channel, user, len(ev.Roster))
		case client.EventPeerJoined:
			fmt.Printf("* %s joined\n", ev.Peer.UserName)
		case client.EventPeerLeft:
			fmt.Printf("* %s left\n", ev.Peer.UserName)
		case client.EventMessage:
			var text string
			if err := json.Unmarshal(ev.Payload.Data, &text); err != nil {
				text = string(ev.Payload.Data)
			}
			if ev.Payload.IsPrivate() {
				fmt.Printf("[%s -> you] %s\n", ev.Payload.UserName, text)
			} else {
				fmt.Printf("[%s] %s\n", ev.Payload.UserName, text)
			}
		case client.EventClosed:
			if ev.Err != nil {
				return ev.Err
			}
			return nil
		}
	}
	return nil
}
