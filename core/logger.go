package core

// Logger is implemented by all logging services.
// Expected args fmt: error, map[string]interface{}, student.Student (logged-in subject)
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
