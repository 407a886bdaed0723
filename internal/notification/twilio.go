package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioNotifier delivers messages as SMS through the Twilio REST API.
type TwilioNotifier struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewTwilioNotifier builds a Twilio-backed notifier.
func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Send posts the message to the Twilio messages endpoint.
func (n *TwilioNotifier) Send(ctx context.Context, message Message) error {
	form := url.Values{}
	form.Set("To", message.Destination)
	form.Set("From", n.from)
	form.Set("Body", message.Body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.accountSID, n.authToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var decoded twilioResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.ErrorMessage != "" {
			return fmt.Errorf("twilio api status %d: %s", resp.StatusCode, decoded.ErrorMessage)
		}
		return fmt.Errorf("twilio api status %d", resp.StatusCode)
	}
	return nil
}
