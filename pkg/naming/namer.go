// Package naming suggests names for extracted methods. Suggestions are best
// effort: any failure or timeout yields Placeholder.
package naming

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mamaar/extractor/pkg/types"
)

// Placeholder names an extracted method when no suggestion is available.
const Placeholder = "extractedMethod"

// DefaultTimeout bounds a single suggestion call.
const DefaultTimeout = 10 * time.Second

// Namer suggests a method name for a method body.
type Namer interface {
	SuggestName(ctx context.Context, body string) (string, error)
}

// NamerFunc adapts a function to Namer.
type NamerFunc func(ctx context.Context, body string) (string, error)

func (f NamerFunc) SuggestName(ctx context.Context, body string) (string, error) {
	return f(ctx, body)
}

// Static always suggests the placeholder. It is used when naming is disabled.
type Static struct{}

func (Static) SuggestName(context.Context, string) (string, error) { return Placeholder, nil }

// WithFallback asks n for a name, giving up after timeout. Errors, timeouts
// and unusable suggestions are logged and replaced by Placeholder.
func WithFallback(ctx context.Context, n Namer, timeout time.Duration, body string, logger *slog.Logger) string {
	if n == nil {
		return Placeholder
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		name string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		name, err := n.SuggestName(ctx, body)
		ch <- reply{name, err}
	}()

	var err error
	select {
	case r := <-ch:
		if r.err == nil {
			if name := Normalize(r.name, false); name != "" {
				return name
			}
			r.err = fmt.Errorf("unusable suggestion %q", r.name)
		}
		err = r.err
	case <-ctx.Done():
		err = ctx.Err()
	}

	logger.Debug("naming failed, using placeholder", "err", namingFailure(err))
	return Placeholder
}

func namingFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out: %w", err)
	}
	return &types.RefactorError{Type: types.NamingFailure, Message: err.Error(), Cause: err}
}

// Normalize turns a free-form suggestion such as "calculate total" or
// "`calculateTotal()`" into a Go identifier, exported or not. It returns ""
// when nothing usable remains.
func Normalize(suggestion string, exported bool) string {
	line, _, _ := strings.Cut(strings.TrimSpace(suggestion), "\n")
	words := strings.FieldsFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}

	title := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	for i, w := range words {
		if i == 0 && !exported {
			r, size := utf8.DecodeRuneInString(w)
			b.WriteRune(unicode.ToLower(r))
			b.WriteString(w[size:])
			continue
		}
		b.WriteString(title.String(w))
	}

	name := b.String()
	first, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsLetter(first) || token.IsKeyword(name) || !token.IsIdentifier(name) {
		return ""
	}
	return name
}
