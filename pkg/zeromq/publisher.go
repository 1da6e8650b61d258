package zeromq

import (
	"github.com/open-teleop/legged-teleop/domain/teleop"
	"github.com/open-teleop/legged-teleop/pkg/config"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
)

// Topics published besides motion commands
const (
	TopicIndicator          = "teleop.status.indicator"
	TopicConfigUpdate       = "configuration.update"
	TopicConfigNotification = "configuration.notification"
)

// JSONPublisher publishes typed JSON envelopes
type JSONPublisher interface {
	PublishJSON(topic string, messageType string, data interface{}) error
}

// StatusPublisher publishes operator feedback and configuration notices
// alongside the motion command stream.
type StatusPublisher struct {
	publisher JSONPublisher
	logger    customlog.Logger
}

// NewStatusPublisher creates a publisher on top of the ZeroMQ service
func NewStatusPublisher(publisher JSONPublisher, logger customlog.Logger) *StatusPublisher {
	return &StatusPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishIndicator sets the operator's status light
func (p *StatusPublisher) PublishIndicator(color teleop.IndicatorColor) error {
	if err := color.Validate(); err != nil {
		return err
	}
	p.logger.Debugf("Publishing indicator color r=%d g=%d b=%d", color.R, color.G, color.B)
	return p.publisher.PublishJSON(TopicIndicator, MsgTypeIndicator, map[string]interface{}{
		"color": color,
	})
}

// PublishConfigUpdate publishes the full configuration
func (p *StatusPublisher) PublishConfigUpdate(cfg *config.Config) error {
	p.logger.Infof("Publishing configuration update (ID: %s)", cfg.ConfigID)
	return p.publisher.PublishJSON(TopicConfigUpdate, MsgTypeConfigResponse, cfg)
}

// PublishConfigUpdatedNotification publishes a notification that the config has been updated
func (p *StatusPublisher) PublishConfigUpdatedNotification(cfg *config.Config) error {
	p.logger.Infof("Publishing configuration update notification")

	notification := map[string]interface{}{
		"config_id":    cfg.ConfigID,
		"version":      cfg.Version,
		"last_updated": cfg.LastUpdated,
	}
	return p.publisher.PublishJSON(TopicConfigNotification, MsgTypeConfigUpdated, notification)
}
