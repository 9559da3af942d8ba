package stream

import (
	"bytes"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pumpwatch.com/pkg/logger"
)

// 包里的组件到处打日志，测试统一喂一个内存 logger
func TestMain(m *testing.M) {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&bytes.Buffer{}),
		zap.ErrorLevel,
	)
	logger.Log = zap.New(core)

	os.Exit(m.Run())
}
