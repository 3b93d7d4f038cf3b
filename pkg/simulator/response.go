package simulator

import (
	"context"
	"time"

	"github.com/beevik/etree"
)

// Body is either an XML document or plain text.
type Body interface {
	isBody()
}

// XMLBody is a document body.
type XMLBody struct {
	Doc *etree.Document
}

// TextBody is a plain text body.
type TextBody struct {
	Text string
}

func (XMLBody) isBody()  {}
func (TextBody) isBody() {}

// Response is the protocol-neutral result of an execute call.
type Response struct {
	Headers map[string]string
	Body    Body
}

// Sleep waits for d or until ctx is done. Delays are applied after the
// registry lock has been released.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CopyHeaders returns a copy of h that callers may modify.
func CopyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
