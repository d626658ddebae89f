package service

import (
	"context"
	"encoding/json"

	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/pkg/mailer"
	"giving-ledger-be/pkg/ledgerevents"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService drains the receipt topic and mails each donor.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	mailer    mailer.IEmailService
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	mailer mailer.IEmailService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		mailer:    mailer,
		logger:    logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload ledgerevents.ReceiptMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(logger.ModuleEvents, "Failed to unmarshal receipt message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // malformed payloads never succeed on retry
		return
	}

	if payload.PayerEmail == "" {
		cs.logger.Info(logger.ModuleEvents, "Receipt skipped, no payer email", map[string]interface{}{
			"transaction_id": payload.TransactionId,
		})
		msg.Ack()
		return
	}

	err := cs.mailer.SendReceipt(payload.PayerEmail, mailer.Receipt{
		TransactionId: payload.TransactionId,
		AmountCents:   payload.AmountCents,
		Currency:      payload.Currency,
		ReceiptUrl:    payload.ReceiptUrl,
		PaidAt:        payload.PaidAt,
		Recurring:     payload.Recurring,
	})
	if err != nil {
		cs.logger.Error(logger.ModuleEvents, "Failed to send receipt", map[string]interface{}{
			"transaction_id": payload.TransactionId,
			"error":          err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info(logger.ModuleEvents, "Receipt sent", map[string]interface{}{
		"transaction_id": payload.TransactionId,
	})
	msg.Ack()
}
