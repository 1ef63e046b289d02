package auth

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/config"
	"github.com/stretchr/testify/require"
)

func TestNewModuleAndAccessors(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	m := NewModule(&sqlx.DB{}, rdb,
		config.JWTConfig{Secret: "secret", Expiry: time.Hour},
		config.GoogleConfig{ClientID: "test-client-id"},
		slog.Default())
	require.NotNil(t, m)
	require.NotNil(t, m.Service())
	require.NotNil(t, m.HTTPHandler())
}
