// Package monitor lets an MQTT broker drive the players and receive their status events.
//
// Commands arrive on <topic>/<player>/<action> where action is play, stop, record or
// stopRecording. Every status event is published as JSON on <topic>/<player>/status.
package monitor

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/owlcms/recorder/internal/iputils"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/player"
	"github.com/owlcms/recorder/internal/status"
)

const statusAction = "status"

// Monitor is the MQTT connection of the recorder.
type Monitor struct {
	topic    string
	registry *player.Registry
	client   mqtt.Client
}

// New prepares a monitor for broker; Connect starts it.
func New(broker, topic string, registry *player.Registry) *Monitor {
	m := &Monitor{topic: strings.Trim(topic, "/"), registry: registry}

	opts := mqtt.NewClientOptions().AddBroker(BrokerURL(broker))
	opts.SetClientID(iputils.ClientID("recorder"))
	opts.SetResumeSubs(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		commands := m.topic + "/+/+"
		logging.InfoLogger.Printf("Subscribing to topic %s", commands)
		if token := client.Subscribe(commands, 0, m.messageHandler()); token.Wait() && token.Error() != nil {
			logging.ErrorLogger.Printf("Failed to subscribe to topic %s: %v", commands, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.WarningLogger.Printf("MQTT connection lost: %v", err)
	})
	m.client = mqtt.NewClient(opts)
	return m
}

// BrokerURL accepts host, host:port or a full URL. The port defaults to 1883.
func BrokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	if _, _, err := net.SplitHostPort(broker); err != nil {
		broker = net.JoinHostPort(broker, "1883")
	}
	return "tcp://" + broker
}

// Connect starts connecting in the background; the client keeps retrying until Stop.
func (m *Monitor) Connect() {
	token := m.client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logging.ErrorLogger.Printf("Failed to connect to MQTT broker: %v", token.Error())
			return
		}
		logging.InfoLogger.Printf("MQTT monitoring started on topic %s", m.topic)
	}()
}

// Stop disconnects from the broker
func (m *Monitor) Stop() {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}

// OnEvent publishes ev on the status topic of its player. Events are dropped while disconnected.
func (m *Monitor) OnEvent(ev status.Event) {
	if !m.client.IsConnectionOpen() {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.ErrorLogger.Printf("Error encoding event: %v", err)
		return
	}
	m.client.Publish(StatusTopic(m.topic, ev.Player), 0, false, payload)
}

// StatusTopic is where the events of playerName are published.
func StatusTopic(topic, playerName string) string {
	return fmt.Sprintf("%s/%s/%s", topic, playerName, statusAction)
}

// parseTopic splits <topic>/<player>/<action>.
func parseTopic(prefix, topic string) (name, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[1] == statusAction {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (m *Monitor) messageHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		m.handle(msg.Topic(), msg.Payload())
	}
}

func (m *Monitor) handle(topic string, payload []byte) {
	name, action, ok := parseTopic(m.topic, topic)
	if !ok {
		return
	}
	c, found := m.registry.Get(name)
	if !found {
		logging.WarningLogger.Printf("MQTT %s: no player %q", topic, name)
		return
	}
	logging.InfoLogger.Printf("Handling %s message for %s: %s", action, name, payload)
	if _, err := c.Do(action); err != nil {
		logging.WarningLogger.Printf("MQTT %s: %v", topic, err)
	}
}
