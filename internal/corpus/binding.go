// Package corpus owns the active knowledge-base binding: the search client,
// the blob container and the two strategies built against them.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/metrics"
	"github.com/futig/kbchat-backend/internal/strategy"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Container reads source documents from the bound blob container.
type Container interface {
	Download(ctx context.Context, name string) (*entity.Blob, error)
}

// Snapshot is one immutable binding. Requests hold on to the snapshot they
// started with, so a concurrent rebind never mixes two corpora in one request.
type Snapshot struct {
	Corpus    entity.Corpus
	Search    strategy.Searcher
	Container Container
	Ask       strategy.Strategy
	Chat      strategy.Strategy
}

// Factory builds every client a snapshot needs for one corpus.
type Factory interface {
	Build(ctx context.Context, c entity.Corpus) (*Snapshot, error)
}

// Binding holds the active snapshot. Rebinds are not serialized against each
// other: the last one to finish wins, and in-flight requests keep the
// snapshot they already loaded.
type Binding struct {
	factory Factory
	current atomic.Pointer[Snapshot]
}

// New builds the initial snapshot. Startup fails if it cannot be built.
func New(ctx context.Context, factory Factory, initial entity.Corpus) (*Binding, error) {
	b := &Binding{factory: factory}
	if _, err := b.build(ctx, initial); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Binding) Current() *Snapshot {
	return b.current.Load()
}

// Rebind switches to c and returns the snapshot serving it. Clients are built
// fresh even when c is already bound, so settings changed in the environment
// take effect. On failure the previous snapshot stays active.
func (b *Binding) Rebind(ctx context.Context, c entity.Corpus) (*Snapshot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return b.build(ctx, c)
}

func (b *Binding) build(ctx context.Context, c entity.Corpus) (*Snapshot, error) {
	snap, err := b.factory.Build(ctx, c)
	if err != nil {
		metrics.CorpusRebindsTotal.WithLabelValues("failed").Inc()
		ctxzap.Error(ctx, "corpus rebind failed", zap.Stringer("corpus", c), zap.Error(err))

		if errors.Is(err, entity.ErrConfiguration) || errors.Is(err, entity.ErrCorpusUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", entity.ErrCorpusUnavailable, c, err)
	}

	snap.Corpus = c
	prev := b.current.Swap(snap)

	metrics.CorpusRebindsTotal.WithLabelValues("succeeded").Inc()
	fields := []zap.Field{zap.Stringer("corpus", c)}
	if prev != nil {
		fields = append(fields, zap.Stringer("previous", prev.Corpus))
	}
	ctxzap.Info(ctx, "corpus bound", fields...)

	return snap, nil
}
