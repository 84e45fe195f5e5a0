package ui

import "fmt"

var levelnames = map[LogLevel]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

func (l LogLevel) String() string {
	if name, found := levelnames[l]; found {
		return name
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

func LogLevelString(name string) (LogLevel, error) {
	for level, levelname := range levelnames {
		if levelname == name {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

func LogLevelStrings() []string {
	return []string{"trace", "debug", "info", "warn", "error", "fatal"}
}
