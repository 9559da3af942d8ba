package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(buffer *bytes.Buffer) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buffer), // 写 buffer 不写控制台
		zap.DebugLevel,
	)
	Log = zap.New(core)
}

func TestLogger_Info_WithConnID(t *testing.T) {
	buffer := &bytes.Buffer{}
	newBufferLogger(buffer)

	ctx := context.WithValue(context.Background(), TraceIdKey, "conn-12345")

	Info(ctx, "stream connected", zap.String("endpoint", "all"))

	var entry map[string]interface{}
	err := json.Unmarshal(buffer.Bytes(), &entry)
	assert.NoError(t, err, "log output must be valid JSON")

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "stream connected", entry["msg"])
	assert.Equal(t, "all", entry["endpoint"])

	// 核心验证：conn_id 自动注入
	assert.Equal(t, "conn-12345", entry["conn_id"])
}

func TestLogger_NoConnID(t *testing.T) {
	buffer := &bytes.Buffer{}
	newBufferLogger(buffer)

	Warn(context.Background(), "health check failed")

	var entry map[string]interface{}
	err := json.Unmarshal(buffer.Bytes(), &entry)
	assert.NoError(t, err)

	assert.Equal(t, "warn", entry["level"])
	_, has := entry["conn_id"]
	assert.False(t, has, "conn_id should be absent when ctx carries none")
}
