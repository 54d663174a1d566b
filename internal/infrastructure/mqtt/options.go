package mqtt

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 60 * time.Second

	// defaultReconnectPeriod is the interval between reconnection attempts.
	defaultReconnectPeriod = 5 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection and the
	// heartbeat publication period.
	defaultKeepAlive = 60 * time.Second

	// DefaultQoS is the quality-of-service level used for every subscribe
	// and publish against the gateway.
	DefaultQoS byte = 2

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// clientIDRandomBytes is the entropy behind a generated client ID
	// (hex-encoded to 16 characters).
	clientIDRandomBytes = 8

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// brokerTarget is the result of resolving the configured host scheme.
type brokerTarget struct {
	// url is the broker URL in paho form (tcp://, ssl://, ws://, wss://, unix://).
	url string

	// secure is true for mqtts:// and wss:// hosts.
	secure bool

	// warnings collects non-fatal scheme problems for the caller to log.
	warnings []string
}

// resolveBroker maps the configured scheme-prefixed host onto a paho broker URL.
//
// Scheme handling:
//   - mqtt:// and ws://: plaintext; TLS material provokes a warning
//   - mqtts:// and wss://: TLS
//   - mqtt+unix://: Unix-socket transport, port is not appended
//   - anything else: warning, treated as plaintext TCP
func resolveBroker(cfg config.MQTTConfig) brokerTarget {
	host := cfg.Host
	var t brokerTarget

	switch {
	case strings.HasPrefix(host, "mqtt+unix://"):
		t.url = "unix://" + strings.TrimPrefix(host, "mqtt+unix://")
	case strings.HasPrefix(host, "mqtt://"):
		t.url = fmt.Sprintf("tcp://%s:%d", strings.TrimPrefix(host, "mqtt://"), cfg.Port)
	case strings.HasPrefix(host, "ws://"):
		t.url = fmt.Sprintf("ws://%s:%d", strings.TrimPrefix(host, "ws://"), cfg.Port)
	case strings.HasPrefix(host, "mqtts://"):
		t.url = fmt.Sprintf("ssl://%s:%d", strings.TrimPrefix(host, "mqtts://"), cfg.Port)
		t.secure = true
	case strings.HasPrefix(host, "wss://"):
		t.url = fmt.Sprintf("wss://%s:%d", strings.TrimPrefix(host, "wss://"), cfg.Port)
		t.secure = true
	default:
		t.warnings = append(t.warnings,
			fmt.Sprintf("unsupported protocol in host %q, using plain TCP", host))
		t.url = fmt.Sprintf("tcp://%s:%d", host, cfg.Port)
	}

	if !t.secure && hasTLSMaterial(cfg.TLS) {
		t.warnings = append(t.warnings,
			"TLS material configured but host scheme is plaintext, ignoring")
	}

	return t
}

// hasTLSMaterial reports whether any TLS option is set.
func hasTLSMaterial(tlsCfg config.MQTTTLSConfig) bool {
	return tlsCfg.CA != "" || tlsCfg.Cert != "" || tlsCfg.Key != ""
}

// buildTLSConfig assembles the tls.Config for mqtts:// and wss:// hosts.
//
// When no CA is configured the system pool is used, server verification
// stays on (rejectUnauthorized defaults to true) and a warning is returned.
// When both cert and key are configured they are loaded for mutual TLS.
func buildTLSConfig(tlsCfg config.MQTTTLSConfig) (*tls.Config, []string, error) {
	var warnings []string

	tc := &tls.Config{
		MinVersion: tlsMinVersion,
	}

	if tlsCfg.CA != "" {
		pem, err := os.ReadFile(tlsCfg.CA)
		if err != nil {
			return nil, warnings, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, warnings, fmt.Errorf("CA bundle %q contains no certificates", tlsCfg.CA)
		}
		tc.RootCAs = pool
	} else {
		warnings = append(warnings,
			"no CA configured for TLS connection, using system pool with verification enabled")
	}

	rejectUnauthorized := true
	if tlsCfg.RejectUnauthorized != nil {
		rejectUnauthorized = *tlsCfg.RejectUnauthorized
	}
	tc.InsecureSkipVerify = !rejectUnauthorized

	if tlsCfg.Cert != "" && tlsCfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			return nil, warnings, fmt.Errorf("loading client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, warnings, nil
}

// protocolVersion maps the configured MQTT level onto what paho supports.
//
// paho.mqtt.golang speaks MQTT 3.1 (level 3) and 3.1.1 (level 4). A
// configured level 5 falls back to 3.1.1 with a warning.
func protocolVersion(configured int) (uint, string) {
	switch configured {
	case 3:
		return 3, ""
	case 5:
		return 4, "MQTT 5 requested but client speaks 3.1.1, falling back"
	default:
		return 4, ""
	}
}

// generateClientID builds "<prefix>_<16-hex>" for sessions without a
// configured client ID.
func generateClientID(prefix string) string {
	buf := make([]byte, clientIDRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// fixed suffix rather than aborting the connection.
		return prefix + "_0000000000000000"
	}
	return prefix + "_" + hex.EncodeToString(buf)
}

// buildClientOptions creates paho MQTT options from the adapter config.
//
// This configures:
//   - Broker URL resolved from the scheme-prefixed host
//   - Client ID (generated when absent)
//   - Authentication credentials (if provided)
//   - Auto-reconnect on a fixed 5 s period
//   - TLS configuration for secure schemes
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig) (*pahomqtt.ClientOptions, string, []string, error) {
	target := resolveBroker(cfg)
	warnings := target.warnings

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(target.url)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = generateClientID(cfg.Topic)
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	version, warn := protocolVersion(cfg.ProtocolVersion)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	opts.SetProtocolVersion(version)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultReconnectPeriod)
	opts.SetMaxReconnectInterval(defaultReconnectPeriod)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetOrderMatters(true)

	if target.secure {
		tc, tlsWarnings, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, "", warnings, err
		}
		warnings = append(warnings, tlsWarnings...)
		opts.SetTLSConfig(tc)
	}

	return opts, clientID, warnings, nil
}

// HeartbeatTopic returns the keepalive topic for a client ID.
//
// Example: clients/zigbee2mqtt_1a2b3c4d5e6f7a8b/heartbeat
func HeartbeatTopic(clientID string) string {
	return fmt.Sprintf("clients/%s/heartbeat", clientID)
}
