package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"SubredditOfTheDay/internal/domain"
)

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, domain.Message) error {
	c.calls++
	return c.err
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	t.Parallel()

	broken := &countingNotifier{err: errors.New("boom")}
	healthy := &countingNotifier{}
	d := NewDispatcher(nil,
		Sink{Name: "broken", Notifier: broken},
		Sink{Name: "missing"},
		Sink{Name: "healthy", Notifier: healthy},
	)

	err := d.Notify(context.Background(), domain.Message{Title: "hello"})

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, healthy.calls)
}

func TestDispatcherWithoutSinks(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)
	assert.Equal(t, nil, d.Notify(context.Background(), domain.Message{}))
}
