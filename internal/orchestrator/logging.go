package orchestrator

import "fmt"

// logInfo logs at INFO level to both the local and cloud loggers.
func (s *Service) logInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.logger != nil {
		s.logger.Printf("%s", msg)
	}
	if s.cloudLogger != nil {
		s.cloudLogger.Info(msg)
	}
}

// logWarning logs at WARNING level to both the local and cloud loggers.
func (s *Service) logWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.logger != nil {
		s.logger.Printf("Warning: %s", msg)
	}
	if s.cloudLogger != nil {
		s.cloudLogger.Warning(msg)
	}
}

// logError logs at ERROR level to both the local and cloud loggers.
func (s *Service) logError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.logger != nil {
		s.logger.Printf("Error: %s", msg)
	}
	if s.cloudLogger != nil {
		s.cloudLogger.Error(msg)
	}
}
