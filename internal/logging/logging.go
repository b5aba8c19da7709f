package logging

import (
	"go.uber.org/zap"
)

var logger = zap.NewNop().Sugar()

// Init configures the process-wide logger. Debug enables development output;
// otherwise only warnings and errors reach stderr so that stdout stays clean
// for report JSON.
func Init(debug bool) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		panic("initializing logger: " + err.Error())
	}
	logger = l.Sugar()
}

// L returns the configured logger. Before Init it is a no-op, which keeps
// library code and tests quiet by default.
func L() *zap.SugaredLogger {
	return logger
}
