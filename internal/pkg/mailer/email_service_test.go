package mailer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, m...)
	return nil
}

func TestSendReceipt(t *testing.T) {
	sender := &captureSender{}
	svc := NewEmailServiceWithSender(sender, "giving@example.org", "Giving")
	paidAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := svc.SendReceipt("donor@example.org", Receipt{
		TransactionId: 42,
		AmountCents:   2550,
		Currency:      "usd",
		ReceiptUrl:    "https://pay/r/ch_1",
		PaidAt:        &paidAt,
		Recurring:     true,
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"donor@example.org"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Thank you for your recurring gift"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "25.50 USD")
	assert.Contains(t, buf.String(), "March 1, 2024")
	assert.Contains(t, buf.String(), "https://pay/r/ch_1")
}

func TestSendReceipt_SenderError(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	svc := NewEmailServiceWithSender(sender, "giving@example.org", "Giving")

	err := svc.SendReceipt("donor@example.org", Receipt{TransactionId: 1, AmountCents: 100, Currency: "usd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.05 USD", FormatAmount(5, "usd"))
	assert.Equal(t, "100.00 EUR", FormatAmount(10000, "eur"))
	assert.Equal(t, "-1.20 USD", FormatAmount(-120, "usd"))
}
