// Package mqtt publishes pjinventory lifecycle events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - JSON lifecycle events, one topic per projector or bulb serial
//
// # Topics
//
//	{prefix}/event/projector/{serial}   install, uninstall, ship, ...
//	{prefix}/event/bulb/{serial}        bulb changes and re-lamps
//	{prefix}/system/status              retained online/offline
//
// Events are published after the transaction that recorded the change has
// committed. A publish failure is logged by the caller and never undoes the
// change.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	orchestrator.SetEventPublisher(mqtt.NewEventPublisher(client))
package mqtt
