package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const streamPath = "/ws/notes/stream"

var errSessionExpired = errors.New("stream closed by server: session expired, run watch again")

// streamEvent is one message pushed by the notes stream.
type streamEvent struct {
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
	Note  *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"note"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live changes to notes you own or collaborate on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := requireSession()
		if err != nil {
			return err
		}

		u, err := streamURL(clientCfg.APIURL, sess.Token)
		if err != nil {
			return err
		}

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
		if err != nil {
			if resp != nil {
				return fmt.Errorf("stream rejected with status %d", resp.StatusCode)
			}
			return err
		}
		defer func() { _ = conn.Close() }()

		slog.Info("watching notes", "email", sess.Email)
		return streamEvents(ctx, conn, cmd.OutOrStdout())
	},
}

// streamURL maps the API base URL onto the websocket endpoint.
func streamURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported API URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + streamPath
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// streamEvents prints events until ctx ends or the server closes the stream.
func streamEvents(ctx context.Context, conn *websocket.Conn, w io.Writer) error {
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
		case <-finished:
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				return errSessionExpired
			}
			return err
		}
		fmt.Fprintln(w, formatEvent(ev))
	}
}

func formatEvent(ev streamEvent) string {
	var b strings.Builder
	b.WriteString(time.Now().Format(time.TimeOnly))
	b.WriteString(" ")
	b.WriteString(ev.Type)
	if ev.Note != nil {
		b.WriteString(" ")
		b.WriteString(ev.Note.ID)
		if ev.Note.Title != "" {
			fmt.Fprintf(&b, " %q", ev.Note.Title)
		}
	}
	if ev.Email != "" {
		b.WriteString(" ")
		b.WriteString(ev.Email)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

