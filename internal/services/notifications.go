package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/models"
	"github.com/harentsoaR/counsel-api/internal/repository"
)

const textbeltURL = "https://textbelt.com/text"

// Notifier is told about every session status change.
type Notifier interface {
	SessionChanged(ctx context.Context, s *models.Session)
}

// SMSNotifier texts the client through Textbelt.
type SMSNotifier struct {
	users    repository.UserRepository
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewSMSNotifier(users repository.UserRepository, apiKey string, logger *zap.Logger) *SMSNotifier {
	return &SMSNotifier{
		users:    users,
		apiKey:   apiKey,
		endpoint: textbeltURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// SessionChanged sends in a goroutine so it doesn't block the API response.
func (n *SMSNotifier) SessionChanged(_ context.Context, s *models.Session) {
	sess := *s
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.Deliver(ctx, &sess); err != nil {
			n.logger.Warn("session notification not sent", zap.String("sessionId", sess.ID.Hex()), zap.Error(err))
		}
	}()
}

// Deliver texts the session's client synchronously.
func (n *SMSNotifier) Deliver(ctx context.Context, s *models.Session) error {
	client, err := n.users.GetByID(ctx, s.ClientID)
	if err != nil {
		return fmt.Errorf("load client: %w", err)
	}
	if client.Phone == "" {
		n.logger.Debug("SMS not sent: client has no phone number", zap.String("userId", client.ID.Hex()))
		return nil
	}
	counsellor, err := n.users.GetByID(ctx, s.CounsellorID)
	if err != nil {
		return fmt.Errorf("load counsellor: %w", err)
	}
	return n.send(ctx, client.Phone, SessionSMSBody(s, counsellor.FullName))
}

// SessionSMSBody renders the text for a status change.
func SessionSMSBody(s *models.Session, counsellorName string) string {
	when := s.Slot.Start.Format("Jan 2 at 3:04 PM MST")
	switch s.Status {
	case models.StatusRequested:
		return fmt.Sprintf("Session requested with %s on %s. You will be notified once it is confirmed.", counsellorName, when)
	case models.StatusConfirmed:
		return fmt.Sprintf("Session confirmed with %s on %s.", counsellorName, when)
	case models.StatusCancelled:
		return fmt.Sprintf("Your session with %s on %s has been cancelled.", counsellorName, when)
	case models.StatusCompleted:
		return fmt.Sprintf("Thank you for attending your session with %s. You can now leave a review.", counsellorName)
	default:
		return fmt.Sprintf("Your session with %s on %s was updated.", counsellorName, when)
	}
}

func (n *SMSNotifier) send(ctx context.Context, phone, message string) error {
	postBody, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     n.apiKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(postBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected message: %s", result.Error)
	}
	n.logger.Info("SMS sent", zap.String("phone", maskPhone(phone)))
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) SessionChanged(context.Context, *models.Session) {}
