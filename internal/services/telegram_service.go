package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/utils"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     telegramAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the service at another Bot API host.
func (s *TelegramService) WithBaseURL(url string) *TelegramService {
	s.baseURL = strings.TrimRight(url, "/")
	return s
}

// Enabled reports whether messages can reach the admin chat.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		utils.InfoLogger.Debug("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		utils.ErrorLogger.Warnf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		utils.ErrorLogger.Warnf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		utils.InfoLogger.Debug("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// OrderNotification contains order data for Telegram notification.
type OrderNotification struct {
	OrderNumber  string
	CustomerName string
	FunctionType models.FunctionType
	WeddingDate  *time.Time
	WeddingVenue *string
	Members      int
	CreatedBy    string
}

// NewOrderNotification builds a notification from a stored order.
func NewOrderNotification(order models.Order, customerName, createdBy string) OrderNotification {
	members := len(order.Members)
	if members == 0 {
		members = order.TotalMembers
	}
	return OrderNotification{
		OrderNumber:  order.OrderNumber,
		CustomerName: customerName,
		FunctionType: order.FunctionType,
		WeddingDate:  order.WeddingDate,
		WeddingVenue: order.WeddingVenue,
		Members:      members,
		CreatedBy:    createdBy,
	}
}

// FormatOrderMessage renders the staff chat message for a new order.
func FormatOrderMessage(order OrderNotification) string {
	date := "TBC"
	if order.WeddingDate != nil {
		date = order.WeddingDate.Format("Mon 2 Jan 2006")
	}
	venue := "TBC"
	if order.WeddingVenue != nil && *order.WeddingVenue != "" {
		venue = *order.WeddingVenue
	}
	function := strings.ReplaceAll(string(order.FunctionType), "_", " ")

	var b strings.Builder
	b.WriteString("<b>New order</b>\n")
	fmt.Fprintf(&b, "<b>Order:</b> %s\n", html.EscapeString(order.OrderNumber))
	fmt.Fprintf(&b, "<b>Customer:</b> %s\n", html.EscapeString(order.CustomerName))
	fmt.Fprintf(&b, "<b>Function:</b> %s on %s\n", html.EscapeString(function), date)
	fmt.Fprintf(&b, "<b>Venue:</b> %s\n", html.EscapeString(venue))
	fmt.Fprintf(&b, "<b>Party:</b> %d\n", order.Members)
	if order.CreatedBy != "" {
		fmt.Fprintf(&b, "<i>Booked by %s</i>", html.EscapeString(order.CreatedBy))
	}
	return strings.TrimSpace(b.String())
}

// NotifyNewOrder sends notification about new order to admin chat.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendToAdmin(ctx, FormatOrderMessage(order))
}
