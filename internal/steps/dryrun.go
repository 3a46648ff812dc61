package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// DryRunDoer печатает запросы вместо отправки и отвечает пустым 200.
type DryRunDoer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDryRunDoer создаёт DryRunDoer, пишущий в w.
func NewDryRunDoer(w io.Writer) *DryRunDoer {
	return &DryRunDoer{out: w}
}

// Do выводит запрос и возвращает пустой успешный ответ.
func (d *DryRunDoer) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.out, "  %s %s\n", req.Method, req.URL)
	if req.HasBody {
		body, err := json.MarshalIndent(req.Body, "    ", "  ")
		if err != nil {
			return nil, fmt.Errorf("%w: serialize body: %v", ErrHTTPRequest, err)
		}
		fmt.Fprintf(d.out, "    %s\n", body)
	}

	return &Response{StatusCode: http.StatusOK, Headers: map[string]string{}}, nil
}
