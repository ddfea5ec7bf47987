package main

import (
	"github.com/OCAP2/siegelimit/internal/dispatcher"
)

// registerLifecycleHandlers registers system/lifecycle command handlers with the dispatcher
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Host initialized extension", "version", CurrentExtensionVersion)
		return "ok", nil
	})

	// Simple queries - sync return is sufficient, no callback needed
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentExtensionVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:ADDON:", func(e dispatcher.Event) (any, error) {
		return AddonFolder, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":STATUS:", func(e dispatcher.Event) (any, error) {
		if monitorService == nil {
			return nil, nil
		}
		return monitorService.GetStatus(), nil
	})

	d.Register(":SHUTDOWN:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SHUTDOWN:, flushing audit trail")
		go func() {
			if err := shutdown(); err != nil {
				Logger.Warn("Shutdown incomplete", "error", err)
			}
		}()
		return "ok", nil
	})
}
