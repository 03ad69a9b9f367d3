// Package rendertest menyediakan render.Engine palsu untuk test tanpa browser.
package rendertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/render"
)

// Engine mengembalikan markup apa adanya dengan prefix format, sehingga field yang tampil
// bisa dicek langsung dari artefak.
type Engine struct {
	// FailFor membuat render gagal untuk certificate ID tertentu
	FailFor map[string]bool

	mu       sync.Mutex
	inFlight int32
	peak     int32
	calls    atomic.Int64
}

func New() *Engine {
	return &Engine{FailFor: map[string]bool{}}
}

func (e *Engine) Render(ctx context.Context, doc render.Document, format model.ArtifactFormat) ([]byte, error) {
	e.calls.Add(1)
	cur := atomic.AddInt32(&e.inFlight, 1)
	defer atomic.AddInt32(&e.inFlight, -1)

	e.mu.Lock()
	if cur > e.peak {
		e.peak = cur
	}
	fail := doc.Data != nil && e.FailFor[doc.Data.CertificateID]
	e.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: simulated failure", render.ErrEngine)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := "%PDF-fake\n"
	if format == model.FormatImage {
		prefix = "PNG-fake\n"
	}
	return []byte(prefix + doc.Markup), nil
}

// Calls jumlah pemanggilan Render
func (e *Engine) Calls() int64 {
	return e.calls.Load()
}

// Peak jumlah render bersamaan tertinggi yang pernah terjadi
func (e *Engine) Peak() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peak
}
