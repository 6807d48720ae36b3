package notifications

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SendWebhook posts the JSON payload to the subscriber's URL, signed with
// an HMAC-SHA256 of the body so receivers can verify origin.
func SendWebhook(url string, payload interface{}, secret string) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PesaTap-Webhook/1.0")
	req.Header.Set("X-PesaTap-Signature", Sign(jsonData, secret))

	// Slow subscribers must not block us.
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("subscriber returned error: %d", resp.StatusCode)
}

// Sign computes the hex HMAC-SHA256 signature for a payload body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
