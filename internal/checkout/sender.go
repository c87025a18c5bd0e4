package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// LogSender writes codes to the server log. For local development only.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, phone, code string) error {
	log.Printf("verification code for %s: %s", phone, code)
	return nil
}

// HTTPSender posts codes to an SMS gateway webhook as
// {"phone": "...", "message": "..."}.
type HTTPSender struct {
	URL    string
	Client *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *HTTPSender) SendCode(ctx context.Context, phone, code string) error {
	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": fmt.Sprintf("Your MenuCraft verification code is %s", code),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
