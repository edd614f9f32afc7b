package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/feed"
	"github.com/noai-dev/noai/pkg/notify"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
)

func demoCmd() *cobra.Command {
	var latency float64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through optimistic updates against the mock backend",
		Long: `Run a scripted session and print every optimistic transition:
a confirmed like, a rejected like, a dropped double tap, a rejected
follow, comments, and notification read state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			return runDemo(ctx, cmd.OutOrStdout(), latency)
		},
	}
	cmd.Flags().Float64Var(&latency, "latency", 0.2, "Multiplier for mock backend latency")
	return cmd
}

// demo drives controllers on a private loop.
type demo struct {
	ctx  context.Context
	out  io.Writer
	loop *reactive.Loop
	api  *backend.Mock
	opts []feed.Option
}

func runDemo(ctx context.Context, out io.Writer, latency float64) error {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := reactive.NewLoop(&reactive.LoopConfig{Logger: quiet})
	loop.Start()
	defer loop.Close()

	d := &demo{
		ctx:  ctx,
		out:  out,
		loop: loop,
		api:  backend.NewMock(backend.MockConfig{LatencyScale: latency, Logger: quiet}),
	}
	d.opts = []feed.Option{
		feed.WithLogger(quiet),
		feed.WithReporter(optimistic.ReporterFunc(func(action, key string, err error) {
			d.printf("  ! %s %s failed: %v", action, key, err)
		})),
	}

	steps := []struct {
		title string
		run   func() error
	}{
		{"Like, confirmed", d.likeConfirmed},
		{"Like, rejected by the backend", d.likeRejected},
		{"Double tap while pending", d.likeDropped},
		{"Follow, rejected by the backend", d.followRejected},
		{"Comments", d.comments},
		{"Notifications", d.notifications},
	}
	for i, step := range steps {
		d.printf("\n%d. %s", i+1, step.title)
		if err := step.run(); err != nil {
			return err
		}
	}
	return nil
}

func (d *demo) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format+"\n", args...)
}

func (d *demo) wait(op *optimistic.Op) error {
	err := op.Wait(d.ctx)
	if d.ctx.Err() != nil {
		return d.ctx.Err()
	}
	return err
}

func likeString(s backend.LikeState) string {
	mark := "♡"
	if s.IsLiked {
		mark = "♥"
	}
	return fmt.Sprintf("%s %d", mark, s.Count)
}

func (d *demo) newLike(postID string, count int) (*feed.Like, error) {
	var l *feed.Like
	err := d.loop.Do(func() {
		l = feed.NewLike(d.loop, d.api, backend.LikeState{PostID: postID, Count: count}, d.opts...)
	})
	return l, err
}

func (d *demo) likeConfirmed() error {
	l, err := d.newLike("1", 12)
	if err != nil {
		return err
	}
	var op *optimistic.Op
	_ = d.loop.Do(func() {
		d.printf("  before     %s", likeString(l.State()))
		op = l.Toggle()
		d.printf("  optimistic %s (pending)", likeString(l.State()))
	})
	if err := d.wait(op); err != nil {
		return err
	}
	d.printf("  confirmed  %s", likeString(l.State()))
	return nil
}

func (d *demo) likeRejected() error {
	l, err := d.newLike("2", 5)
	if err != nil {
		return err
	}
	d.api.FailNext(backend.OpToggleLike, 1)

	var op *optimistic.Op
	_ = d.loop.Do(func() {
		d.printf("  before     %s", likeString(l.State()))
		op = l.Toggle()
		d.printf("  optimistic %s (pending)", likeString(l.State()))
	})
	if err := d.wait(op); err == nil {
		return fmt.Errorf("demo: expected the like to be rejected")
	}
	d.printf("  rolled back %s", likeString(l.State()))
	return nil
}

func (d *demo) likeDropped() error {
	l, err := d.newLike("3", 8)
	if err != nil {
		return err
	}
	var first, second *optimistic.Op
	_ = d.loop.Do(func() {
		first = l.Toggle()
		second = l.Toggle()
	})
	d.printf("  first tap accepted: %v, second tap accepted: %v", first.Accepted(), second.Accepted())
	if err := d.wait(first); err != nil {
		return err
	}
	d.printf("  settled    %s", likeString(l.State()))
	return nil
}

func (d *demo) followRejected() error {
	var f *feed.Follow
	_ = d.loop.Do(func() {
		f = feed.NewFollow(d.loop, d.api, backend.FollowState{UserID: "10"}, d.opts...)
	})
	d.api.FailNext(backend.OpToggleFollow, 1)

	var op *optimistic.Op
	_ = d.loop.Do(func() {
		op = f.Toggle()
		d.printf("  optimistic following=%v", f.IsFollowing())
	})
	_ = d.wait(op)
	d.printf("  rolled back following=%v", f.IsFollowing())
	return nil
}

func (d *demo) comments() error {
	var c *feed.Comments
	var load *reactive.Future[[]backend.Comment]
	_ = d.loop.Do(func() {
		c = feed.NewComments(d.loop, d.api, "1", d.opts...)
		load = c.Load()
	})
	if _, err := load.Wait(d.ctx); err != nil {
		return err
	}

	var submitErr error
	var op *optimistic.Op
	_ = d.loop.Do(func() {
		d.printf("  loaded %d comments", len(c.List()))
		c.SetDraft("   ")
		_, submitErr = c.Submit()
		d.printf("  whitespace draft refused: %v", submitErr != nil)

		c.SetDraft("  Welcome!  ")
		op, submitErr = c.Submit()
		d.printf("  submitting, draft now %q", c.Draft())
	})
	if submitErr != nil {
		return submitErr
	}
	if err := d.wait(op); err != nil {
		return err
	}
	reload := time.Now().Add(5 * time.Second)
	for {
		var n int
		_ = d.loop.Do(func() { n = len(c.List()) })
		if n == 3 || time.Now().After(reload) {
			d.printf("  after reload %d comments", n)
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (d *demo) notifications() error {
	var store *notify.Store
	var fetch *reactive.Future[[]backend.Notification]
	_ = d.loop.Do(func() {
		store = notify.New(d.loop, d.api, notify.Config{Probability: -1, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
		fetch = store.Fetch()
	})
	if _, err := fetch.Wait(d.ctx); err != nil {
		return err
	}
	defer store.Dispose()

	d.api.FailNext(backend.OpMarkAllRead, 1)
	var op *optimistic.Op
	_ = d.loop.Do(func() {
		d.printf("  unread %d (badge %q)", store.UnreadCount(), notify.Badge(store.UnreadCount()))
		op = store.MarkAllAsRead()
		d.printf("  mark all read, optimistic unread %d", store.UnreadCount())
	})
	_ = d.wait(op)
	_ = d.loop.Do(func() {
		d.printf("  rejected, unread restored to %d", store.UnreadCount())
		op = store.MarkAsRead("n1")
	})
	if err := d.wait(op); err != nil {
		return err
	}
	_ = d.loop.Do(func() {
		d.printf("  marked n1 read, unread %d", store.UnreadCount())
	})
	return nil
}
