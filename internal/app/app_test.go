package app

import (
	"context"
	"testing"

	"github.com/dvloznov/ledgr/internal/config"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_InitAndClose(t *testing.T) {
	ctx := context.Background()
	a := New(&config.Config{Store: config.StoreMemory}, zerolog.Nop())
	require.NoError(t, a.Init(ctx))

	cats, err := worker.Do[[]domain.Category](ctx, a.Worker, worker.GetAllCategoriesRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, cats, "categories are seeded on init")

	assert.Error(t, a.Init(ctx), "second init is rejected")

	a.Close(ctx)
	a.Close(ctx)

	_, err = a.Worker.Call(ctx, worker.GetAllAccountsRequest{})
	assert.ErrorIs(t, err, worker.ErrClosed)
}

func TestApp_UnknownStore(t *testing.T) {
	a := New(&config.Config{Store: "sqlite"}, zerolog.Nop())
	assert.Error(t, a.Init(context.Background()))
}

func TestApp_BadTaggerRules(t *testing.T) {
	a := New(&config.Config{Store: config.StoreMemory, TaggerRules: "/does/not/exist.yaml"}, zerolog.Nop())
	assert.Error(t, a.Init(context.Background()))
}

func TestApp_SyncClientNeedsConfig(t *testing.T) {
	a := New(&config.Config{Store: config.StoreMemory}, zerolog.Nop())
	_, err := a.SyncClient()
	assert.Error(t, err)

	a.Config.SyncURL = "http://localhost:8080"
	a.Config.UserID = "user-1"
	client, err := a.SyncClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
