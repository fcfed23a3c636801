package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
port: "8082"
admin_email: ${TEST_ADMIN_EMAIL}
jwt_secret: secret
mongo:
  host: localhost
  port: 27017
  database: portfolio
  retry_interval: 1
  retry_count: 3
redis:
  addr: localhost:6379
minio:
  host: localhost
  port: 9000
  bucket: attachments
kafka:
  brokers: ["localhost:9092"]
  topic: chat.messages
sync:
  typing_quiet_period: 3s
`

func TestReadConfig_ExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_service.yaml"), []byte(sampleYAML), 0o644))
	t.Setenv("TEST_ADMIN_EMAIL", "owner@example.com")

	cfg, err := ReadConfig[Chat]("chat_service", dir)
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "owner@example.com", cfg.AdminEmail)
	assert.Equal(t, 27017, cfg.MongoSQL.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "attachments", cfg.MinIO.Bucket)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Sync.TypingQuietPeriod)
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig[Chat]("missing", t.TempDir())
	assert.Error(t, err)
}

func TestSyncConfig_WithDefaults(t *testing.T) {
	s := SyncConfig{TypingQuietPeriod: time.Second}.WithDefaults()

	assert.Equal(t, time.Second, s.TypingQuietPeriod)
	assert.Equal(t, DefaultPresenceWindow, s.PresenceWindow)
	assert.Equal(t, DefaultHeartbeatInterval, s.HeartbeatInterval)
	assert.Equal(t, uint64(DefaultReactionRetries), s.ReactionRetries)
	assert.Equal(t, int64(DefaultInboxLimit), s.InboxLimit)
}

func TestGetRedisSetting(t *testing.T) {
	t.Setenv("REDIS_SENTINEL1_IP", "10.0.0.1")
	t.Setenv("REDIS_SENTINEL1_PORT", "26379")
	t.Setenv("REDIS_MASTER_NAME", "")

	master, addrs := GetRedisSetting()
	assert.Equal(t, "mymaster", master)
	assert.Contains(t, addrs, "10.0.0.1:26379")
}
