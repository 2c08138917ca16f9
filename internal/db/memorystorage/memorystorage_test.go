package memorystorage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactbook/internal/db/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	theStorage, err := New()
	require.NoError(t, err)
	require.NotNil(t, theStorage)
	defer func() {
		require.NoError(t, theStorage.Close())
	}()

	storagetest.Run(t, theStorage)
}
