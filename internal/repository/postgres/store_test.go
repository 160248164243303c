package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/stylishcuts/internal/repository/records/recordstest"
)

func TestContract(t *testing.T) {
	url := os.Getenv("STYLISHCUTS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("STYLISHCUTS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, url, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = store.pool.Exec(ctx, `DELETE FROM records`)
	require.NoError(t, err)

	store.Start(ctx)
	t.Cleanup(store.Close)
	recordstest.Run(t, store)
}
