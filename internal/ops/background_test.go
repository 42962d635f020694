package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/transport"
)

func TestBackground_CachesAndExports(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	bus := transport.NewBus()
	(&Background{DB: database, Log: zaptest.NewLogger(t)}).Register(bus)

	_, err := bus.Send(ctx, transport.UpdateToc("chat", summaries("Intro", "Plan")))
	require.NoError(t, err)

	resp, err := bus.Send(ctx, transport.RequestTocExport("chat"))
	require.NoError(t, err)
	require.Equal(t, "#1 User Intro\n#2 Assistant Plan", resp.Text)

	_, err = bus.Send(ctx, transport.UpdateToc("chat", nil))
	require.NoError(t, err)
	_, err = bus.Send(ctx, transport.RequestTocExport("chat"))
	requireCode(t, err, errors.ErrNothingToExport)
}

func TestBackground_RejectsBadUpdate(t *testing.T) {
	bus := transport.NewBus()
	(&Background{DB: openTestDB(t)}).Register(bus)

	_, err := bus.Send(context.Background(), transport.UpdateToc("", summaries("Intro")))
	requireCode(t, err, errors.ErrInvalidRequest)
}
