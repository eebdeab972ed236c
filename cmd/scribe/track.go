package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mind-scribe/internal/proximity"
	"mind-scribe/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var trackInput string

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Notify when a location feed comes near one of your notes",
	Long: `Track reads "longitude,latitude" samples, one per line, from --input
(stdin by default). Whenever you have moved far enough it asks the server
for your notes within SCRIBE_RADIUS_M and prints one JSON notification per
note, at most once per SCRIBE_DEBOUNCE_SEC. Tracking stops at the end of the
feed, on Ctrl-C, or when you log out from another terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := requireSession()
		if err != nil {
			return err
		}

		in, closeIn, err := openInput(trackInput, cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer closeIn()

		log := slog.Default()
		notifier := proximity.NewNotifier(api, store, proximity.NewWriterSink(cmd.OutOrStdout()),
			proximity.WithDebounce(time.Duration(clientCfg.DebounceSec)*time.Second),
			proximity.WithRadius(clientCfg.RadiusM),
			proximity.WithLogger(log),
		)
		tracker := proximity.NewTracker(proximity.NewLineSource(in, log), notifier, float64(clientCfg.MinMoveM))

		return runTracker(ctx, tracker, notifier, store, sess, log)
	},
}

// runTracker runs tracker until its source ends, ctx is cancelled, or the
// session file loses its token.
func runTracker(ctx context.Context, tracker *proximity.Tracker, notifier *proximity.Notifier, store *session.Store, sess *session.Session, log *slog.Logger) error {
	if err := tracker.Start(ctx); err != nil {
		return err
	}
	done := tracker.Done()
	log.Info("tracking started", "email", sess.Email)

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, cancelWatch := context.WithCancel(gctx)

	g.Go(func() error {
		defer cancelWatch()
		select {
		case <-done:
		case <-gctx.Done():
		}
		tracker.Stop()
		log.Info("tracking stopped")
		return nil
	})

	g.Go(func() error {
		return store.Watch(watchCtx, log, func(s *session.Session) {
			if s != nil {
				log.Debug("session refreshed", "email", s.Email)
				return
			}
			log.Info("session ended, stopping tracker")
			tracker.Stop()
			notifier.Reset(sess.Identity())
		})
	})

	return g.Wait()
}

// openInput returns r for "" or "-", the named file otherwise.
func openInput(path string, r io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return r, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.Flags().StringVarP(&trackInput, "input", "i", "-", "Location feed file, - for stdin")
}
