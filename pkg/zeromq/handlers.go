package zeromq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-teleop/legged-teleop/pkg/config"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
)

// ConfigProvider returns the configuration currently in effect
type ConfigProvider interface {
	GetCurrentConfig() *config.Config
}

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	provider ConfigProvider
	logger   customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(provider ConfigProvider, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{
		provider: provider,
		logger:   logger,
	}
}

// HandleMessage processes a CONFIG_REQUEST message and returns a CONFIG_RESPONSE
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if msg.Type != MsgTypeConfigRequest {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}

	cfg := h.provider.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}

	response := ZeroMQMessage{
		Type:      MsgTypeConfigResponse,
		Timestamp: float64(time.Now().Unix()),
		Data:      cfg,
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	h.logger.Debugf("Sending configuration response (%d bytes)", len(responseData))
	return responseData, nil
}

// RegisterConfigHandlers registers the CONFIG_REQUEST handler and returns a
// publisher for status and configuration notices
func RegisterConfigHandlers(service *ZeroMQService, provider ConfigProvider, logger customlog.Logger) *StatusPublisher {
	service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(provider, logger))
	return NewStatusPublisher(service, logger)
}
