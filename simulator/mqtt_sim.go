package main

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hems/infra/logger"
)

// newMQTTClient connects with auto-reconnect. The command subscription is
// restored by the broker session because CleanSession is off.
func newMQTTClient(broker, clientID string) (paho.Client, error) {
	log := logger.New("simulator-mqtt")
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warnf("connection lost: %v", err)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
