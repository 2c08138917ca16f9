package app

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactbook/internal/config"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

func TestGetAvailableStorageType(t *testing.T) {
	type tTestCase struct {
		name     string
		cfg      config.Config
		expected int
	}
	testCases := []tTestCase{
		{"postgres_wins", config.Config{DatabaseDSN: "postgres://x", SQLitePath: "db.sqlite"}, models.StorageTypePostgresql},
		{"sqlite", config.Config{SQLitePath: "db.sqlite"}, models.StorageTypeSQLite},
		{"memory", config.Config{}, models.StorageTypeMemory},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, getAvailableStorageType(&testCase.cfg))
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")

	_, err := New(config.WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestServeAndShutdown(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("ACCESS_TOKEN_SECRET", "app-test-secret")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "contacts.db"))
	t.Setenv("REDIS_ADDR", mr.Addr())

	app, err := New(config.WithDisableFlagsParsing(true))
	require.NoError(t, err)
	defer app.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- app.serve(ctx, listener)
	}()

	baseURL := "http://" + listener.Addr().String()
	client := resty.New().SetBaseURL(baseURL)

	resp, err := client.R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = client.R().
		SetBody(models.RegisterRequest{Username: "al", Email: "al@x.com", Password: "pw"}).
		Post("/api/users/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var login models.LoginResponse
	resp, err = client.R().
		SetBody(models.LoginRequest{Email: "al@x.com", Password: "pw"}).
		SetResult(&login).
		Post("/api/users/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.NotEmpty(t, login.AccessToken)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
