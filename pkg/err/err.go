package errprocess

import (
	"errors"
	"fmt"

	"portfolio_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap log cause and return errMsg wrapping it
func Wrap(errMsg string, cause error) error {
	logger.Log.Error(errMsg, zap.Error(cause))
	return fmt.Errorf("%s: %w", errMsg, cause)
}
