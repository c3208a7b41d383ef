package vkng

import (
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
)

// debugMessenger forwards validation layer messages to a logger.
type debugMessenger struct {
	log logrus.FieldLogger
}

func (m *debugMessenger) createInfo(verbose bool) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	severity := ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning
	if verbose {
		severity |= ext_debug_utils.SeverityInfo | ext_debug_utils.SeverityVerbose
	}

	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: severity,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    m.logMessage,
	}
}

func (m *debugMessenger) logMessage(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	entry := m.log.WithField("type", msgType)
	if data.MessageIDName != "" {
		entry = entry.WithField("id", data.MessageIDName)
	}

	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		entry.Error("[LAYER ERROR] " + data.Message)
	case severity&ext_debug_utils.SeverityWarning != 0:
		entry.Warn("[LAYER WARNING] " + data.Message)
	case severity&ext_debug_utils.SeverityInfo != 0:
		entry.Info("[LAYER INFO] " + data.Message)
	default:
		entry.Debug("[LAYER VERBOSE] " + data.Message)
	}
	return false
}
