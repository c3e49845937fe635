package automation

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// LocatorMiss - ни одна стратегия не нашла элемент для обязательного шага.
	LocatorMiss ErrorKind = iota
	// UploadInjectionFailure - нет ни одного input[type=file] даже после клика по "Upload".
	UploadInjectionFailure
	// TimeoutExceeded - поллер исчерпал свой лимит времени.
	TimeoutExceeded
	// TransientTraversalError - сбой обхода DOM; наружу не поднимается.
	TransientTraversalError
	// RemoteConfigFetchFailure - не удалось скачать override селекторов; наружу не поднимается.
	RemoteConfigFetchFailure
	// Canceled - запуск остановлен отменой контекста.
	Canceled
	// InvalidRequest - запрос не прошел проверку до начала автоматизации.
	InvalidRequest
)

func (k ErrorKind) String() string {
	switch k {
	case LocatorMiss:
		return "locator_miss"
	case UploadInjectionFailure:
		return "upload_injection_failure"
	case TimeoutExceeded:
		return "timeout_exceeded"
	case TransientTraversalError:
		return "transient_traversal_error"
	case RemoteConfigFetchFailure:
		return "remote_config_fetch_failure"
	case Canceled:
		return "canceled"
	case InvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// StageError - отказ обязательного шага. Прерывает запуск целиком.
type StageError struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

var (
	ErrBackwardTransition = errors.New("переход назад по стадиям запрещен")
	ErrEmptyPayload       = errors.New("пустой base64")
)

func stageFailure(stage Stage, kind ErrorKind, msg string) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: msg}
}

// KindOf извлекает ErrorKind из цепочки ошибок.
func KindOf(err error) (ErrorKind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
