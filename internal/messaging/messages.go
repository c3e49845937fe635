// Package messaging - контракт сообщений между панелью управления и движком:
// входящий TWO_STAGE_PIPELINE и исходящие результат, ошибка и прогресс.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"flowAgent/internal/prompt"
)

type MessageType string

const (
	TypeTwoStagePipeline MessageType = "TWO_STAGE_PIPELINE"
	TypeVideoComplete    MessageType = "VIDEO_GENERATION_COMPLETE"
	TypePipelineError    MessageType = "PIPELINE_ERROR"
	TypePipelineProgress MessageType = "PIPELINE_PROGRESS"
)

var (
	ErrUnknownType   = errors.New("неизвестный тип сообщения")
	ErrEmptyPayload  = errors.New("пустой payload")
	ErrMissingImages = errors.New("нужны обе картинки: characterImage и productImage")
)

type PipelinePayload struct {
	CharacterImage string `json:"characterImage"`
	ProductImage   string `json:"productImage"`
	ProductName    string `json:"productName"`
	Gender         string `json:"gender"`
	Emotion        string `json:"emotion"`
}

func (p PipelinePayload) Params() prompt.Params {
	return prompt.Params{ProductName: p.ProductName, Gender: p.Gender, Emotion: p.Emotion}
}

func (p PipelinePayload) Validate() error {
	if strings.TrimSpace(p.CharacterImage) == "" || strings.TrimSpace(p.ProductImage) == "" {
		return ErrMissingImages
	}
	return p.Params().Validate()
}

type InboundMessage struct {
	Type    MessageType      `json:"type"`
	Payload *PipelinePayload `json:"payload"`
}

// DecodeInbound разбирает и проверяет входящее сообщение.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("разбор сообщения: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return InboundMessage{}, err
	}
	return msg, nil
}

func (m InboundMessage) Validate() error {
	if m.Type != TypeTwoStagePipeline {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if m.Payload == nil {
		return ErrEmptyPayload
	}
	return m.Payload.Validate()
}

// OutboundMessage - одно сообщение наружу. Ошибки уже приведены к строке.
type OutboundMessage struct {
	Type              MessageType `json:"type"`
	RunID             string      `json:"runId,omitempty"`
	VideoURL          string      `json:"videoUrl,omitempty"`
	GeneratedImageURL string      `json:"generatedImageUrl,omitempty"`
	Error             string      `json:"error,omitempty"`
	Stage             string      `json:"stage,omitempty"`
	ElapsedMs         int64       `json:"elapsedMs,omitempty"`
}

func Complete(runID, videoURL, generatedImageURL string) OutboundMessage {
	return OutboundMessage{
		Type:              TypeVideoComplete,
		RunID:             runID,
		VideoURL:          videoURL,
		GeneratedImageURL: generatedImageURL,
	}
}

func Failure(runID, errMsg string) OutboundMessage {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	return OutboundMessage{Type: TypePipelineError, RunID: runID, Error: errMsg}
}

func Progress(runID, stage string, elapsedMs int64) OutboundMessage {
	return OutboundMessage{Type: TypePipelineProgress, RunID: runID, Stage: stage, ElapsedMs: elapsedMs}
}
