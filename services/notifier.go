// services/notifier.go
package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier sends turn alerts over SMS. It is optional: without Twilio
// credentials in the environment it stays disabled and only the websocket
// notification is delivered.
type Notifier struct {
	client *twilio.RestClient
	from   string
}

func NewNotifier() *Notifier {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_PHONE_NUMBER")

	if accountSid == "" || authToken == "" || from == "" {
		log.Println("Twilio credentials not set, SMS alerts disabled")
		return &Notifier{}
	}

	return &Notifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		from: from,
	}
}

// SendTurnAlert fires a best-effort SMS. Errors are logged, never returned.
func (n *Notifier) SendTurnAlert(phone, tokenNumber string) {
	if n.client == nil {
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(n.from)
	params.SetBody(fmt.Sprintf("It's your turn! Your token %s is being served.", tokenNumber))

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("Failed to send turn alert to %s: %v", phone, err)
		return
	}
	if resp.Sid != nil {
		log.Printf("Turn alert sent to %s, SID: %s", phone, *resp.Sid)
	}
}
