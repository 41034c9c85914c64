package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type Spinner struct {
	Frames  []string
	Message string
	Console *Console

	out  io.Writer
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewSpinner(message string, out io.Writer, console *Console) *Spinner {
	return &Spinner{
		Message: message,
		Frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Console: console,
		out:     out,
		done:    make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s ", s.Frames[i%len(s.Frames)], s.Message)
			select {
			case <-s.done:
				fmt.Fprint(s.out, "\r")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and logs message. Only the first call has an effect.
func (s *Spinner) Stop(success bool, message string) {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()

		if success {
			s.Console.Success("%s", message)
		} else {
			s.Console.Error("%s", message)
		}
	})
}
