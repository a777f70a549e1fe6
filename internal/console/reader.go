package console

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Read parses lines from r and sends each intent to out until r is
// exhausted or ctx is cancelled. Malformed lines are reported to errOut and
// skipped. The game loop drains out in its input phase.
func Read(ctx context.Context, r io.Reader, out chan<- Intent, errOut io.Writer, log *zap.Logger) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		in, ok, err := Parse(sc.Text())
		if err != nil {
			log.Debug("console parse error", zap.Int("line", line), zap.Error(err))
			if errOut != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
			}
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- in:
		case <-ctx.Done():
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read console: %w", err)
	}
	return nil
}
