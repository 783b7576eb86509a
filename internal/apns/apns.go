package apns

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mithileshchellappan/pushgate/internal/storage"
)

const (
	DevelopmentEndpoint = "https://api.sandbox.push.apple.com"
	ProductionEndpoint  = "https://api.push.apple.com"
)

type Client struct {
	httpClient *http.Client
	keyID      string
	teamID     string
	topic      string
	signingKey []byte
	endpoint   string
}

func NewClient(p8KeyBytes []byte, keyID string, teamID string, topic string, useSandbox bool) *Client {
	var endpoint string
	if useSandbox {
		endpoint = DevelopmentEndpoint
	} else {
		endpoint = ProductionEndpoint
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		keyID:      keyID,
		teamID:     teamID,
		topic:      topic,
		signingKey: p8KeyBytes,
		endpoint:   endpoint,
	}
}

func (c *Client) generateJWT() (string, error) {
	token := jwt.New(jwt.SigningMethodES256)

	claims := token.Claims.(jwt.MapClaims)
	claims["iss"] = c.teamID
	claims["iat"] = time.Now().Unix()
	claims["exp"] = time.Now().Add(time.Hour * 24).Unix()

	token.Header["kid"] = c.keyID
	key, err := jwt.ParseECPrivateKeyFromPEM(c.signingKey)
	if err != nil {
		return "", err
	}

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Send posts the generator's APNS wire payload to the device. The payload is
// already complete JSON (aps plus the custom section), so it goes on the wire
// untouched.
func (c *Client) Send(ctx context.Context, token *storage.DeviceToken, wirePayload string) error {
	bearer, err := c.generateJWT()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/3/device/%s", c.endpoint, token.Token)

	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(wirePayload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	req.Header.Set("apns-topic", c.topic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send notification: %s", resp.Status)
	}

	return nil
}
