package ops

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/hpungsan/chattoc/internal/transport"
)

// Background answers engine messages from the snapshot cache: it records every
// updateToc and serves requestTocExport from the latest snapshot of the page.
type Background struct {
	DB   *sql.DB
	Log  *zap.Logger
	Keep int
}

// Register installs the handlers on bus.
func (b *Background) Register(bus *transport.Bus) {
	bus.Handle(transport.TypeUpdateToc, b.handleUpdate)
	bus.Handle(transport.TypeRequestTocExport, b.handleExport)
}

func (b *Background) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b *Background) handleUpdate(ctx context.Context, msg transport.Message) (*transport.Response, error) {
	out, err := Store(ctx, b.DB, StoreInput{Page: msg.Page, Sections: msg.Sections, Keep: b.Keep})
	if err != nil {
		b.logger().Warn("failed to cache table of contents", zap.String("page", msg.Page), zap.Error(err))
		return nil, err
	}
	b.logger().Debug("cached table of contents",
		zap.String("page", out.Page),
		zap.String("snapshot", out.ID),
		zap.Int("entries", out.Entries),
		zap.Int("pruned", out.Pruned))
	return nil, nil
}

func (b *Background) handleExport(ctx context.Context, msg transport.Message) (*transport.Response, error) {
	out, err := Export(ctx, b.DB, ExportInput{Page: msg.Page})
	if err != nil {
		return nil, err
	}
	return &transport.Response{Text: out.Text}, nil
}
