package storage

import (
	"context"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// LogPublisher stands in for the command queue when no storage account is configured.
type LogPublisher struct {
	Log *log.Logger
}

func (p LogPublisher) PublishIntents(_ context.Context, boardID string, cmds []domain.Command) error {
	logger := p.Log
	if logger == nil {
		logger = log.StandardLogger()
	}
	for _, cmd := range cmds {
		logger.WithFields(log.Fields{
			"board":     boardID,
			"type":      cmd.Type,
			"task":      cmd.TaskID,
			"anchor":    cmd.AnchorID,
			"position":  cmd.Position,
			"timestamp": cmd.Timestamp,
		}).Info("intent applied")
	}
	return nil
}
