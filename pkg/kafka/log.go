// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	loglib "github.com/xataio/eventpipe/pkg/log"
)

func makeLogger(logFn func(msg string, fields ...loglib.Fields)) kafka.LoggerFunc {
	return func(msg string, args ...any) {
		logFn(fmt.Sprintf(msg, args...))
	}
}

// makeErrLogger reports the kafka-go error logs as errors, since the library
// only provides a formatted message.
func makeErrLogger(logFn func(err error, msg string, fields ...loglib.Fields)) kafka.LoggerFunc {
	return func(msg string, args ...any) {
		formatted := fmt.Sprintf(msg, args...)
		logFn(errors.New(formatted), "kafka client error")
	}
}
