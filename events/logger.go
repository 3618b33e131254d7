package events

import "github.com/rs/zerolog"

// Logger mirrors notifications into a zerolog logger.
type Logger struct {
	Log zerolog.Logger
}

func (l Logger) event(sev Severity) *zerolog.Event {
	switch sev {
	case Warning:
		return l.Log.Warn()
	case Error:
		return l.Log.Error()
	}
	return l.Log.Info()
}

func (l Logger) OnLog(msg string, sev Severity) {
	l.event(sev).Str("severity", sev.String()).Msg(msg)
}

func (l Logger) OnStatus(msg string, sev Severity) {
	l.event(sev).Str("severity", sev.String()).Bool("status", true).Msg(msg)
}

func (l Logger) OnConnected(device string) {
	l.Log.Info().Str("device", device).Msg("connected")
}

func (l Logger) OnDisconnected() {
	l.Log.Info().Msg("disconnected")
}

func (l Logger) OnAngleConfirmed(angle int) {
	l.Log.Info().Int("angle", angle).Msg("angle confirmed")
}
