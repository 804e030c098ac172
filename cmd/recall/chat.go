package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/flemzord/recall/internal/assistant"
)

const chatHelp = `Commands:
  /history   show the current conversation window
  /memories  list what is remembered about the user
  /forget    erase the user's memories
  /reset     start the session over
  /quit      leave`

// runChat reads one message per line from in until EOF or /quit.
func runChat(ctx context.Context, a *app, in io.Reader, out io.Writer, userID, sessionID string) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Type a message, or /help for commands.")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/history":
			printHistory(ctx, a, out, sessionID)
			continue
		case "/memories":
			printMemories(ctx, a, out, userID)
			continue
		case "/forget":
			if userID == "" {
				fmt.Fprintln(out, "Memories need a user; start chat with --user.")
				continue
			}
			n := a.memory.ClearUserMemories(ctx, userID)
			fmt.Fprintf(out, "Forgot %d memories.\n", n)
			continue
		case "/reset":
			if sessionID != "" {
				if err := a.responder.Reset(ctx, sessionID); err != nil {
					fmt.Fprintf(out, "reset failed: %v\n", err)
					continue
				}
			}
			fmt.Fprintln(out, "Session cleared.")
			continue
		}

		resp, err := a.responder.Respond(ctx, assistant.Request{
			Message:   line,
			SessionID: sessionID,
			UserID:    userID,
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		sessionID = resp.SessionID
		fmt.Fprintln(out, resp.Reply)
		if resp.MemoriesStored > 0 {
			fmt.Fprintf(out, "(remembered %d new fact(s))\n", resp.MemoriesStored)
		}
	}
}

func printHistory(ctx context.Context, a *app, out io.Writer, sessionID string) {
	if sessionID == "" {
		fmt.Fprintln(out, "No conversation yet.")
		return
	}
	turns, err := a.responder.History(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(out, "history unavailable: %v\n", err)
		return
	}
	for _, t := range turns {
		fmt.Fprintf(out, "[%s] %s: %s\n", t.Timestamp.Format("15:04:05"), t.Role, t.Content)
	}
}

func printMemories(ctx context.Context, a *app, out io.Writer, userID string) {
	if userID == "" {
		fmt.Fprintln(out, "Memories need a user; start chat with --user.")
		return
	}
	entries := a.memory.UserMemories(ctx, userID)
	if len(entries) == 0 {
		fmt.Fprintln(out, "Nothing remembered yet.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "- %s (accessed %d times)\n", e.Text, e.AccessCount)
	}
}
