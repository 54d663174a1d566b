package pipeline

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/zigbridge/zigbridge-core/internal/fabric"
)

// commandQoS is the delivery level for outbound command publishes.
const commandQoS byte = 2

// Publisher is the transport surface of the outbound translator.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// OutboundOptions configures the command translator for one entity.
type OutboundOptions struct {
	// Prefix is the gateway base topic.
	Prefix string

	// Entity is the gateway friendly name the set payloads target.
	Entity string

	// Router marks routing devices whose lock endpoint mirrors the
	// commissioning window. Lock commands then drive permit_join
	// instead of a real door lock.
	Router bool

	Publisher Publisher
	Logger    Logger
}

// CommandHandler builds the fabric command handler for an endpoint: each
// northbound command becomes one <entity>/set publish (or a permit_join
// request for router lock endpoints).
func CommandHandler(ep *fabric.Endpoint, opts OutboundOptions) fabric.CommandHandler {
	return func(cmd fabric.Command) error {
		topic := opts.Prefix + "/" + opts.Entity + "/set"

		switch cmd.Name {
		case fabric.CmdOn:
			return opts.publishJSON(topic, map[string]any{"state": "ON"})
		case fabric.CmdOff:
			return opts.publishJSON(topic, map[string]any{"state": "OFF"})
		case fabric.CmdToggle:
			return opts.publishJSON(topic, map[string]any{"state": "TOGGLE"})

		case fabric.CmdMoveToLevel:
			level, err := commandField(cmd, "level")
			if err != nil {
				return err
			}
			return opts.publishJSON(topic, map[string]any{"brightness": int64(math.Round(level))})

		case fabric.CmdMoveToLevelWithOnOff:
			level, err := commandField(cmd, "level")
			if err != nil {
				return err
			}
			state := "ON"
			if level == 0 {
				state = "OFF"
			}
			return opts.publishJSON(topic, map[string]any{
				"brightness": int64(math.Round(level)),
				"state":      state,
			})

		case fabric.CmdMoveToColorTemperature:
			mireds, err := commandField(cmd, "colorTemperatureMireds")
			if err != nil {
				return err
			}
			return opts.publishJSON(topic, map[string]any{"color_temp": int64(math.Round(mireds))})

		case fabric.CmdMoveToHue:
			hue, err := commandField(cmd, "hue")
			if err != nil {
				return err
			}
			return opts.publishColor(topic, hue, currentAttr(ep, fabric.AttrCurrentSaturation))

		case fabric.CmdMoveToSaturation:
			sat, err := commandField(cmd, "saturation")
			if err != nil {
				return err
			}
			return opts.publishColor(topic, currentAttr(ep, fabric.AttrCurrentHue), sat)

		case fabric.CmdMoveToHueAndSaturation:
			hue, err := commandField(cmd, "hue")
			if err != nil {
				return err
			}
			sat, err := commandField(cmd, "saturation")
			if err != nil {
				return err
			}
			return opts.publishColor(topic, hue, sat)

		case fabric.CmdUpOrOpen:
			return opts.publishJSON(topic, map[string]any{"state": "OPEN"})
		case fabric.CmdDownOrClose:
			return opts.publishJSON(topic, map[string]any{"state": "CLOSE"})
		case fabric.CmdStopMotion:
			return opts.publishJSON(topic, map[string]any{"state": "STOP"})

		case fabric.CmdGoToLiftPercentage:
			lift, err := commandField(cmd, "liftPercent100thsValue")
			if err != nil {
				return err
			}
			return opts.publishJSON(topic, map[string]any{"position": int64(math.Round(lift / 100))})

		case fabric.CmdLockDoor:
			if opts.Router {
				return opts.permitJoin(false)
			}
			return opts.publishJSON(topic, map[string]any{"state": "LOCK"})

		case fabric.CmdUnlockDoor:
			if opts.Router {
				return opts.permitJoin(true)
			}
			return opts.publishJSON(topic, map[string]any{"state": "UNLOCK"})

		case fabric.CmdSetpointRaiseLower:
			amount, err := commandField(cmd, "amount")
			if err != nil {
				return err
			}
			// Amount is tenths of a degree; the stored setpoint is
			// hundredths. The gateway takes degrees.
			current := currentAttr(ep, fabric.AttrOccupiedHeatingSetpoint)
			target := (current + amount*10) / 100
			return opts.publishJSON(topic, map[string]any{"current_heating_setpoint": target})
		}

		return fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Name)
	}
}

// publishColor converts a hue/saturation pair to the RGB form the gateway
// accepts and publishes it.
func (o *OutboundOptions) publishColor(topic string, hue, sat float64) error {
	r, g, b := HueSatToRGB(hue, sat)
	return o.publishJSON(topic, map[string]any{
		"color": map[string]any{"r": r, "g": g, "b": b},
	})
}

// permitJoin publishes a commissioning window request. Unlocking opens
// the window, locking closes it.
func (o *OutboundOptions) permitJoin(open bool) error {
	topic := o.Prefix + "/bridge/request/permit_join"
	if o.Logger != nil {
		o.Logger.Info("commissioning window request", "open", open, "entity", o.Entity)
	}
	return o.publishJSON(topic, map[string]any{"value": open})
}

func (o *OutboundOptions) publishJSON(topic string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding set payload: %w", err)
	}
	if o.Logger != nil {
		o.Logger.Debug("publishing command", "topic", topic, "payload", string(data))
	}
	return o.Publisher.Publish(topic, data, commandQoS, false)
}

// commandField reads a required numeric command field.
func commandField(cmd fabric.Command, name string) (float64, error) {
	v, ok := toFloat(cmd.Fields[name])
	if !ok {
		return 0, fmt.Errorf("%w: %s needs field %q", ErrMissingCommandField, cmd.Name, name)
	}
	return v, nil
}

// currentAttr reads a numeric attribute, defaulting to zero.
func currentAttr(ep *fabric.Endpoint, attr fabric.Attribute) float64 {
	v, ok := ep.Attribute(attr)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
