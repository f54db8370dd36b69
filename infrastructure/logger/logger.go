package logger

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// backendLog is the logging backend used to create all subsystem loggers.
var backendLog = NewBackend()

var (
	subsystemsMtx sync.Mutex
	subsystems    = make(map[string]*Logger)
)

// RegisterSubSystem returns a logger for the given subsystem tag, creating
// it if it wasn't registered before. All subsystem loggers share the same
// backend.
func RegisterSubSystem(subsystem string) *Logger {
	subsystemsMtx.Lock()
	defer subsystemsMtx.Unlock()
	log, ok := subsystems[subsystem]
	if !ok {
		log = &Logger{level: uint32(LevelInfo), tag: subsystem, b: backendLog}
		subsystems[subsystem] = log
	}
	return log
}

// InitLog attaches log file and error log file to the backend log and
// launches it. It's used by binaries; library tests typically leave the
// backend unconfigured, in which case logging is a no-op.
func InitLog(logFile, errLogFile string) error {
	err := backendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		return err
	}
	err = backendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		return err
	}
	err = backendLog.AddLogWriter(os.Stdout, LevelInfo)
	if err != nil {
		return err
	}
	return backendLog.Run()
}

// SetLogLevels sets the logging level of all registered subsystems.
func SetLogLevels(level Level) {
	subsystemsMtx.Lock()
	defer subsystemsMtx.Unlock()
	for _, log := range subsystems {
		log.SetLevel(level)
	}
}

// Close shuts down the logging backend, flushing anything still buffered.
func Close() {
	backendLog.Close()
}

// Logger is a subsystem logger. All messages are tagged with the subsystem
// name and routed through the shared backend.
type Logger struct {
	level uint32
	tag   string
	b     *Backend
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

func (l *Logger) print(level Level, args ...interface{}) {
	if level < l.Level() {
		return
	}
	l.b.write(level, l.formatLine(level, fmt.Sprint(args...)))
}

func (l *Logger) printf(level Level, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}
	l.b.write(level, l.formatLine(level, fmt.Sprintf(format, args...)))
}

func (l *Logger) formatLine(level Level, msg string) []byte {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return []byte(fmt.Sprintf("%s [%s] %s: %s\n", timestamp, level, l.tag, msg))
}

// Trace logs a message at the trace level.
func (l *Logger) Trace(args ...interface{}) { l.print(LevelTrace, args...) }

// Tracef logs a formatted message at the trace level.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.printf(LevelTrace, format, args...)
}

// Debug logs a message at the debug level.
func (l *Logger) Debug(args ...interface{}) { l.print(LevelDebug, args...) }

// Debugf logs a formatted message at the debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args...)
}

// Info logs a message at the info level.
func (l *Logger) Info(args ...interface{}) { l.print(LevelInfo, args...) }

// Infof logs a formatted message at the info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args...)
}

// Warn logs a message at the warn level.
func (l *Logger) Warn(args ...interface{}) { l.print(LevelWarn, args...) }

// Warnf logs a formatted message at the warn level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.printf(LevelWarn, format, args...)
}

// Error logs a message at the error level.
func (l *Logger) Error(args ...interface{}) { l.print(LevelError, args...) }

// Errorf logs a formatted message at the error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(LevelError, format, args...)
}

// Critical logs a message at the critical level.
func (l *Logger) Critical(args ...interface{}) { l.print(LevelCritical, args...) }

// Criticalf logs a formatted message at the critical level.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.printf(LevelCritical, format, args...)
}
