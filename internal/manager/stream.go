package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// accumulator collects the assistant reply of one generation.
type accumulator struct {
	b          strings.Builder
	n          int
	keepRepeat bool
}

// add appends frag and reports whether it should be forwarded. A fragment
// that the buffer already ends with is treated as a replayed chunk and dropped.
func (a *accumulator) add(frag string) bool {
	if frag == "" {
		return false
	}
	if !a.keepRepeat && strings.HasSuffix(a.b.String(), frag) {
		return false
	}
	a.b.WriteString(frag)
	a.n++
	return true
}

func (a *accumulator) String() string { return a.b.String() }

// consumeStream drains s into h. The token and ctx are re-checked after every
// Recv so at most one fragment is forwarded after Cancel returns. A cancelled
// stream, including one whose ctx was cancelled before it started, ends
// without a terminal callback. A deadline on ctx is reported as an error.
func consumeStream(ctx context.Context, tok *CancelToken, s FragmentStream, h StreamHandlers, keepRepeat bool) {
	defer s.Close()
	acc := accumulator{keepRepeat: keepRepeat}
	finish := "stop"
	received := 0
	for {
		frag, err := s.Recv()
		if tok.Cancelled() || errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if received >= defaultMaxTokens {
					finish = "length"
				}
				h.done(FinalResult{Content: acc.String(), Usage: Usage{CompletionTokens: acc.n}, FinishReason: finish})
				return
			}
			if errors.Is(err, ErrGeneration) {
				h.fail(err)
			} else {
				h.fail(fmt.Errorf("%w: %v", ErrGeneration, err))
			}
			return
		}
		if frag != "" {
			received++
		}
		if !acc.add(frag) {
			continue
		}
		h.token(frag)
	}
}

// chanStream adapts a push-style producer (a token callback) to FragmentStream.
// The channel holds at most one fragment of lookahead.
type chanStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	frags  chan string
	result chan error

	once sync.Once
	err  error
}

// newChanStream runs produce in its own goroutine. produce calls emit for each
// fragment; emit returns false once the consumer has gone away.
func newChanStream(ctx context.Context, produce func(ctx context.Context, emit func(string) bool) error) *chanStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &chanStream{ctx: ctx, cancel: cancel, frags: make(chan string, 1), result: make(chan error, 1)}
	go func() {
		defer close(s.frags)
		s.result <- produce(ctx, func(frag string) bool {
			select {
			case s.frags <- frag:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return s
}

func (s *chanStream) Recv() (string, error) {
	select {
	case frag, ok := <-s.frags:
		if ok {
			return frag, nil
		}
		s.once.Do(func() {
			s.err = <-s.result
			if s.err == nil {
				s.err = io.EOF
			}
		})
		return "", s.err
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	}
}

func (s *chanStream) Close() error {
	s.cancel()
	return nil
}
