package rabbitmq

import (
	"errors"
	"time"

	"uptimer/config"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const dialAttempts = 5

func NewConnection(rmqCfg *config.RabbitMQConfig, logger *zerolog.Logger) (*amqp091.Connection, error) {

	var conn *amqp091.Connection
	var err error
	for i := range dialAttempts {
		conn, err = amqp091.Dial(rmqCfg.BrokerLink)
		if err == nil {
			return conn, nil
		}
		time.Sleep(2 * time.Second)
		logger.Warn().Err(err).Int("attempt", i+1).Msg("rabbitmq reconnection attempt")
	}
	logger.Error().Err(err).Int("attempts", dialAttempts).Msg("failed to connect to rabbitmq")
	return nil, errors.New("failed to connect to rabbitmq")
}

// SetupTopology declares the exchange and binds the lifecycle queue to it.
// Alert and refresh messages go to the same exchange under their own routing keys.
func SetupTopology(conn *amqp091.Connection, rmqCfg *config.RabbitMQConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		rmqCfg.ExchangeName,
		rmqCfg.ExchangeType,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		rmqCfg.QueueName,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if err = ch.QueueBind(
		rmqCfg.QueueName,
		rmqCfg.RoutingKey,
		rmqCfg.ExchangeName,
		false, nil,
	); err != nil {
		return err
	}

	return nil
}
