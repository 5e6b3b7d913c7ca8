// Package bridge runs the capture → inference → publish loop.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/Brownie44l1/steer-bridge/internal/capture"
	"github.com/Brownie44l1/steer-bridge/internal/publish"
)

// Watcher is satisfied by *capture.Watcher.
type Watcher interface {
	Present() bool
	Next(ctx context.Context) error
}

type FrameLoader interface {
	Load() (image.Image, error)
}

// Loop processes one frame at a time until ctx is cancelled. All of its
// state lives on the stack of Run.
type Loop struct {
	Watcher   Watcher
	Loader    FrameLoader
	Predictor Predictor
	Channel   *publish.Channel
	Logger    *log.Logger

	// Dir is published at startup so the operator can paste it into the
	// simulator.
	Dir string
	// Name is the capture filename used in console notices.
	Name string
	// StalePath, when set, is removed before the loop starts.
	StalePath string

	OnState func(State)
}

// Run returns ctx.Err() on cancellation. Inference and publish failures are
// returned as is and end the loop; load failures never do.
func (l *Loop) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.prepare(); err != nil {
		return err
	}

	logger := l.logger()
	last := noticeNone

	for {
		l.enter(StateWaiting)
		for !l.Watcher.Present() {
			if last != noticeWaiting {
				logger.Println("\nWaiting for capture...")
				last = noticeWaiting
			}
			if err := l.Watcher.Next(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		l.enter(StateFound)
		img, err := l.Loader.Load()
		if err != nil && !errors.Is(err, capture.ErrConsume) {
			logger.Println("Warning: Cannot open file. Continuing...")
			last = noticeWarning
			// Give the producer a chance to finish writing before re-polling.
			if err := l.Watcher.Next(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			logger.Printf("Warning: %v", err)
		}
		if last != noticeFound {
			logger.Printf("\n%s found! Making predictions...\nPress Ctrl-C to quit...", l.Name)
			last = noticeFound
		}

		l.enter(StatePredicting)
		steer, err := l.Predictor.Predict(img)
		if err != nil {
			return fmt.Errorf("predict steering: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := l.Channel.Steer(steer); err != nil {
			return err
		}
		l.enter(StatePublished)

		// Without consume the same frame is still on disk; pace reprocessing.
		if err := l.Watcher.Next(ctx); err != nil {
			return err
		}
	}
}

func (l *Loop) prepare() error {
	if err := l.Channel.Path(l.Dir); err != nil {
		return err
	}
	if l.StalePath != "" {
		if err := capture.RemoveStale(l.StalePath); err != nil {
			return fmt.Errorf("remove stale capture: %w", err)
		}
	}
	return l.Channel.Path(l.Dir)
}

func (l *Loop) enter(s State) {
	if l.OnState != nil {
		l.OnState(s)
	}
}

func (l *Loop) logger() *log.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return log.Default()
}
