package app_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyphertext/internal/app"
	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/notify"
	"cyphertext/internal/relay"
	"cyphertext/internal/transport/memory"
)

func relayURL(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(relay.NewServer(memory.New(), nil).ConfigRoutes(gin.New(), relay.RouteOptions{}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newWire(t *testing.T, url, cache string) *app.Wire {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.RelayURL = url
	cfg.Cache = cache
	cfg.TransportTimeout = 5 * time.Second
	w, err := app.NewWire(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestLogin_ExchangeOverRelay(t *testing.T) {
	ctx := context.Background()
	url := relayURL(t)

	aliceWire := newWire(t, url, app.CacheFile)
	_, _, err := aliceWire.IDs.GenerateIdentity("0xalice", "correct horse battery")
	require.NoError(t, err)
	alice, err := aliceWire.Login(ctx, "0xalice", "correct horse battery", nil)
	require.NoError(t, err)
	defer alice.Logout()
	assert.False(t, alice.Session.Guest)
	assert.True(t, alice.Session.Published)

	bob, err := newWire(t, url, app.CacheSQLite).Login(ctx, "0xbob", "", notify.NewChannel(4))
	require.NoError(t, err)
	defer bob.Logout()
	assert.True(t, bob.Session.Guest)

	dm := alice.Engine.StartConversation("0xbob")
	_, err = alice.Engine.SendMessage(ctx, dm, "over the wire")
	require.NoError(t, err)

	res, err := bob.Engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "over the wire", res.Records[0].Text)
	assert.Equal(t, "0xalic", res.Records[0].SenderLabel)
}

func TestLogin_NoRelayStaysLocal(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, "", app.CacheFile)
	a, err := w.Login(ctx, "0xcarol", "", nil)
	require.NoError(t, err)
	defer a.Logout()

	assert.False(t, a.Engine.TransportAvailable())
	assert.False(t, a.Session.Published)

	_, err = a.Engine.SendMessage(ctx, domaintypes.GlobalConversationID, "offline note")
	require.NoError(t, err)
	cached, err := w.Cache.Get(ctx, domaintypes.GlobalConversationID)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestLogin_ConversationsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, "", app.CacheFile)

	first, err := w.Login(ctx, "0xdave", "", nil)
	require.NoError(t, err)
	dm := first.Engine.StartConversation("0xerin")
	first.Logout()

	second, err := w.Login(ctx, "0xdave", "", nil)
	require.NoError(t, err)
	defer second.Logout()
	var ids []domain.ConversationID
	for _, c := range second.Engine.Conversations() {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, dm)
}
