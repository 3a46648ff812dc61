package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter задаёт оператору вопросы да/нет.
//
// Ввод читается одной фоновой горутиной. Отмена контекста прерывает
// ожидание ответа, Close отпускает горутину чтения.
type Prompter struct {
	out io.Writer

	once      sync.Once
	closeOnce sync.Once
	in        *bufio.Reader
	lines     chan string
	done      chan struct{}
}

// NewPrompter создаёт Prompter, читающий ответы из in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		out:   out,
		in:    bufio.NewReader(in),
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

func (p *Prompter) readLoop() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if line != "" || err == nil {
			select {
			case p.lines <- line:
			case <-p.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Confirm задаёт вопрос и ждёт ответа. "y" и "yes" — согласие,
// всё остальное (включая конец ввода) — отказ.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	p.once.Do(func() { go p.readLoop() })

	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.out)
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// Close завершает фоновое чтение. Строка, прочитанная после Close,
// отбрасывается.
func (p *Prompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
