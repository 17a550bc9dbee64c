package streamplay

import "go.uber.org/zap"

// Logger is the package-wide logging seam. Any type providing Printf can be
// installed with SetLogger; the default wraps a zap.SugaredLogger.
type Logger interface {
	Printf(format string, v ...any)
}

var pkgLogger Logger = newZapLogger()

// SetLogger overrides the package's default logger. Pass nil to restore the
// zap-backed default.
func SetLogger(logger Logger) {
	if logger == nil {
		pkgLogger = newZapLogger()
		return
	}
	pkgLogger = logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func newZapLogger() *zapLogger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) Printf(format string, v ...any) {
	l.sugar.Infof(format, v...)
}
