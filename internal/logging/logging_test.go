package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		debug bool
		level zapcore.Level
	}{
		{debug: true, level: zapcore.DebugLevel},
		{debug: false, level: zapcore.InfoLevel},
	} {
		log, err := New(tc.debug)
		if err != nil {
			t.Fatalf("debug=%v: %v", tc.debug, err)
		}
		if !log.Desugar().Core().Enabled(tc.level) {
			t.Fatalf("debug=%v: expected %s enabled", tc.debug, tc.level)
		}
		if !tc.debug && log.Desugar().Core().Enabled(zapcore.DebugLevel) {
			t.Fatal("production logger should not emit debug")
		}
		if zap.L().Core().Enabled(zapcore.DebugLevel) != tc.debug {
			t.Fatalf("debug=%v: expected globals replaced", tc.debug)
		}
	}
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })
}
