package logger

// nopLogger discards everything. Used by tests and tooling that need a
// Logger but no output.
type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) InitLogger()                             {}
func (nopLogger) Debug(args ...interface{})               {}
func (nopLogger) Debugf(t string, args ...interface{})    {}
func (nopLogger) Info(args ...interface{})                {}
func (nopLogger) Infof(t string, args ...interface{})     {}
func (nopLogger) Warn(args ...interface{})                {}
func (nopLogger) Warnf(t string, args ...interface{})     {}
func (nopLogger) Error(args ...interface{})               {}
func (nopLogger) Errorf(t string, args ...interface{})    {}
func (nopLogger) Fatal(args ...interface{})               {}
func (nopLogger) Fatalf(t string, args ...interface{})    {}
