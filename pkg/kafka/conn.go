// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	tlslib "github.com/xataio/eventpipe/pkg/tls"

	"github.com/segmentio/kafka-go"
)

const dialTimeout = 10 * time.Second

// withConnection creates a connection to the cluster controller that can be
// used by the kafka operation passed in the parameters. All the connection
// resources are released once the operation returns.
func withConnection(config *ConnConfig, kafkaOperation func(conn *kafka.Conn) error) error {
	dialer, err := buildDialer(&config.TLS)
	if err != nil {
		return err
	}

	var conn *kafka.Conn
	for _, server := range config.Servers {
		conn, err = dialer.Dial("tcp", server)
		if err != nil {
			continue
		}
		defer conn.Close()
		break
	}

	if conn == nil {
		return errors.New("error connecting to kafka, all servers failed")
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	controllerConn, err := dialer.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("controller connection: %w", err)
	}
	defer controllerConn.Close()

	return kafkaOperation(controllerConn)
}

// ReadPartitions returns the ids of the partitions of the configured topic.
// It can be used to check the topic is reachable on the brokers.
func ReadPartitions(config *ConnConfig) ([]string, error) {
	ids := []string{}
	err := withConnection(config, func(conn *kafka.Conn) error {
		partitions, err := conn.ReadPartitions(config.Topic.Name)
		if err != nil {
			return fmt.Errorf("reading partitions for topic %s: %w", config.Topic.Name, err)
		}
		for _, p := range partitions {
			ids = append(ids, PartitionID(p.Topic, p.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func buildDialer(cfg *tlslib.Config) (*kafka.Dialer, error) {
	tlsConfig, err := tlslib.NewConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading TLS configuration: %w", err)
	}

	return &kafka.Dialer{
		Timeout:   dialTimeout,
		DualStack: true,
		TLS:       tlsConfig,
	}, nil
}
